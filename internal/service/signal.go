package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/usecase"
)

// SignalService fans request lifecycle events out over redis pub/sub. Each
// wallet has its own channel; websocket sessions subscribe to the channel of
// the wallet they authenticated as.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) PublishRequestEvent(ctx context.Context, ev domain.RequestEvent) error {

	if ev.ID == "" {
		ev.ID = eventID(ev)
	}

	jsonstr, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, WalletChannel(ev.Wallet), jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Subscribe delivers events for one wallet until the context dies. The
// returned channel closes when the subscription ends.
func (s *SignalService) Subscribe(ctx context.Context, wallet string) <-chan domain.RequestEvent {

	events := make(chan domain.RequestEvent)

	pubsub := s.rdb.Subscribe(ctx, WalletChannel(wallet))

	go func() {
		defer close(events)
		defer pubsub.Close()
		pump(ctx, pubsub.Channel(), events)
	}()

	return events
}

// pump forwards decoded messages until the context dies or the source
// closes. The send is guarded so a consumer that stopped receiving cannot
// strand the goroutine and its subscription.
func pump(ctx context.Context, msgs <-chan *redis.Message, events chan<- domain.RequestEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev domain.RequestEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// WalletChannel names the pub/sub channel carrying one wallet's events.
func WalletChannel(wallet string) string {
	return "wallet:" + wallet
}

// eventID derives a compact id from the event content and emission time, so
// subscribers can deduplicate across reconnects.
func eventID(ev domain.RequestEvent) string {
	seed := fmt.Sprintf("%s:%s:%s:%d", ev.Type, ev.Wallet, ev.Request.ID, time.Now().UnixNano())
	return fmt.Sprintf("%016x", xxh3.HashString(seed))
}

var _ usecase.Signal = (*SignalService)(nil)

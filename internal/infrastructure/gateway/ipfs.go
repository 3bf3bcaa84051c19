package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/memoryvault/vault"
	"github.com/memoryvault/vault/internal/usecase"
)

const defaultAttemptTimeout = 15 * time.Second

// Attempt records one failed gateway try, in the order it was made.
type Attempt struct {
	Gateway string
	Err     error
}

// ExhaustedError reports that every configured gateway failed for an
// address. Attempts preserves gateway order.
type ExhaustedError struct {
	Address  string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Gateway, a.Err))
	}
	return fmt.Sprintf("all gateways failed for %s: %s", e.Address, strings.Join(parts, "; "))
}

// IPFSGateway fetches content-addressed bytes through a fixed list of public
// gateways, tried in order. Fetched bytes are immutable for their address, so
// they cache indefinitely within the cache window.
type IPFSGateway struct {
	client   *http.Client
	gateways []string
	timeout  time.Duration
	cache    *cache.Cache
}

func NewIPFSGateway(gateways []string, timeout time.Duration) *IPFSGateway {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &IPFSGateway{
		client:   &http.Client{},
		gateways: gateways,
		timeout:  timeout,
		cache:    cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (g *IPFSGateway) Fetch(ctx context.Context, address string) ([]byte, error) {

	if cached, found := g.cache.Get(address); found {
		return cached.([]byte), nil
	}

	attempts := []Attempt{}
	for _, gw := range g.gateways {
		body, err := g.attempt(ctx, gw, address)
		if err == nil {
			g.cache.Set(address, body, cache.DefaultExpiration)
			return body, nil
		}

		attempts = append(attempts, Attempt{Gateway: gw, Err: err})

		// A dead parent context makes every remaining attempt fail the
		// same way, so stop here.
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ExhaustedError{Address: address, Attempts: attempts}
}

// attempt tries a single gateway. The timeout bounds this attempt only; a
// slow gateway costs at most the timeout before the next one is tried.
func (g *IPFSGateway) attempt(ctx context.Context, gw string, address string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vault.GatewayURL(gw, address), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

var _ usecase.ContentFetcher = (*IPFSGateway)(nil)

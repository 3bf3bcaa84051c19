package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/usecase"
)

// PointerRepository tracks the current grant document address for each
// content ref. Advance is a compare-and-swap: it only succeeds if the
// pointer still holds the address the caller last read, which turns the
// read-modify-republish race between two writers into ErrPointerConflict
// for the loser instead of a silently dropped grant.
type PointerRepository struct {
	rdb *redis.Client
}

func NewPointerRepository(rdb *redis.Client) *PointerRepository {
	return &PointerRepository{rdb: rdb}
}

func (r *PointerRepository) Current(ctx context.Context, contentRef string) (string, error) {
	address, err := r.rdb.Get(ctx, pointerKey(contentRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.NotFoundError{Resource: "document pointer"}
	}
	if err != nil {
		return "", err
	}
	return address, nil
}

func (r *PointerRepository) Advance(ctx context.Context, contentRef, prevAddress, newAddress string) error {
	key := pointerKey(contentRef)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			current = ""
		} else if err != nil {
			return err
		}

		if current != prevAddress {
			return domain.ErrPointerConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newAddress, 0)
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Someone wrote the key between our read and the commit.
		return domain.ErrPointerConflict
	}
	return err
}

func pointerKey(contentRef string) string {
	return "pointer:" + contentRef
}

var _ usecase.PointerResolver = (*PointerRepository)(nil)

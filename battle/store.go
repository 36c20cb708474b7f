package battle

import (
	"context"
	"fmt"
	"time"

	"go-battle/entities"
	"go-battle/repository"
)

// Store is the typed key-value service battle state round-trips through.
// repository.RedisStore is the production implementation.
type Store interface {
	GetDouble(ctx context.Context, key string) (float64, bool, error)
	GetInt(ctx context.Context, key string) (int64, bool, error)
	GetBool(ctx context.Context, key string) (bool, bool, error)
	GetString(ctx context.Context, key string) (string, bool, error)
	SetDouble(ctx context.Context, key string, v float64) error
	SetInt(ctx context.Context, key string, v int64) error
	SetBool(ctx context.Context, key string, v bool) error
	SetString(ctx context.Context, key string, v string) error
	RemoveKeysWithPrefix(ctx context.Context, prefix string) error
	// Commit applies every write in b or none of them.
	Commit(ctx context.Context, b *repository.Batch) error
}

// TemplateSource resolves card ids. catalog.Catalog implements it.
type TemplateSource interface {
	ByID(id string) (*entities.CardTemplate, bool)
}

// RandomSource yields uniform values in [0,1).
type RandomSource interface {
	Float64() float64
}

// SpeedProvider returns the current accrual speed. 0 pauses accrual.
type SpeedProvider func() float64

type Clock func() time.Time

// keyspace is the namespace prefix of one battle, e.g. "battle:3f2a9c1d:".
type keyspace string

func (k keyspace) initialized() string { return string(k) + "initialized" }
func (k keyspace) lastTick() string    { return string(k) + "last_tick" }
func (k keyspace) canPurchase() string { return string(k) + "can_purchase" }
func (k keyspace) played() string      { return string(k) + "played" }

func (k keyspace) shared(r entities.Resource) string {
	return fmt.Sprintf("%sshared:%s", k, r)
}

func (k keyspace) sharedRate(r entities.Resource) string {
	return fmt.Sprintf("%sshared_rate:%s", k, r)
}

func (k keyspace) privateGold(side entities.Side) string {
	return fmt.Sprintf("%sprivate_gold:%s", k, side)
}

func (k keyspace) privateGoldRate(side entities.Side) string {
	return fmt.Sprintf("%sprivate_gold_rate:%s", k, side)
}

func (k keyspace) totalGained(side entities.Side) string {
	return fmt.Sprintf("%stotal_gained:%s", k, side)
}

func (k keyspace) multiplier(side entities.Side, cardID string) string {
	return fmt.Sprintf("%smultiplier:%s:%s", k, side, cardID)
}

func (k keyspace) currentCard(side entities.Side) string {
	return fmt.Sprintf("%scurrent_card:%s", k, side)
}

func (k keyspace) deck(side entities.Side) string {
	return fmt.Sprintf("%sdeck:%s", k, side)
}

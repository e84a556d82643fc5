package repositories

import (
	"context"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
)

// ExchangeRepository is the durable session buffer backing store.
// Implementations must serialize writers so the cap/TTL prune is atomic
// with the insert, and must never surface a partially pruned state.
type ExchangeRepository interface {
	// Append stores one exchange and prunes the buffer: keep only the most
	// recent cap rows and drop rows past the TTL. Durable before return.
	Append(ctx context.Context, userText, responseText, category string) (entities.Exchange, error)

	// Recent returns up to maxN non-expired exchanges in chronological order.
	Recent(ctx context.Context, maxN int) ([]entities.Exchange, error)

	// LastCategory returns the category of the most recent non-expired
	// exchange. ok is false when the buffer is empty after TTL filtering.
	LastCategory(ctx context.Context) (category string, ok bool, err error)

	// Clear removes all rows. Test/reset use only.
	Clear(ctx context.Context) error

	Close() error
}

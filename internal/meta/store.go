package meta

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store — хранилище метаданных. Ошибки: EntityNotFound, EntityTypeNotFound,
// EntityAlreadyExists, StoreIOError.
type Store interface {
	GetByName(ctx context.Context, name string) (*Entity, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Create присваивает ID и CreatedAt, если они пустые.
	Create(ctx context.Context, e *Entity) error
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, e *Entity) error
	EntityType(ctx context.Context, name string) (*EntityType, error)
	List(ctx context.Context) ([]*Entity, error)
}

// ids выдаёт ULID; ulid.Monotonic не потокобезопасен, поэтому под мьютексом.
type ids struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newIDs() *ids {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ids{entropy: ulid.Monotonic(src, 0)}
}

func (g *ids) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
}

func stamp(g *ids, e *Entity) {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = g.next(now)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

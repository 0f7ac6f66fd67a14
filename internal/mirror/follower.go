package mirror

import (
	"context"
	"log/slog"

	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/models"
)

// Source is what the follower copies. *index.Synchronizer implements it.
type Source interface {
	Snapshot() map[string][]models.Item
	Mode() extract.Mode
}

// Follower keeps a DB in step with a Source. Notify signals are coalesced:
// any number of them while a write is running produce one more write.
type Follower struct {
	db     *DB
	src    Source
	logger *slog.Logger
	kick   chan struct{}
}

// NewFollower creates a follower. Call Run to start it.
func NewFollower(db *DB, src Source, logger *slog.Logger) *Follower {
	return &Follower{db: db, src: src, logger: logger, kick: make(chan struct{}, 1)}
}

// Notify asks for a write. It never blocks.
func (f *Follower) Notify() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Run writes the current snapshot once, then again after every Notify,
// until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	f.flush()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.kick:
			f.flush()
		}
	}
}

func (f *Follower) flush() {
	wrote, err := f.db.Replace(f.src.Snapshot(), f.src.Mode().String())
	if err != nil {
		f.logger.Warn("mirror: write failed", slog.String("error", err.Error()))
		return
	}
	if wrote {
		f.logger.Debug("mirror: written")
	}
}

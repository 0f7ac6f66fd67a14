package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/models"
)

// Source is the document store the synchronizer reads from.
type Source interface {
	extract.Source
	Documents(ctx context.Context) ([]models.Document, error)
}

// Summary describes one full rebuild.
type Summary struct {
	Mode      extract.Mode  `json:"mode"`
	Documents int           `json:"documents"`
	Days      int           `json:"days"`
	Items     int           `json:"items"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// Synchronizer applies vault lifecycle events to a Store. Calls are
// serialized: each one runs to completion, including any content read,
// before the next starts.
type Synchronizer struct {
	mu     sync.Mutex
	store  *Store
	src    Source
	ext    *extract.Extractor
	logger *slog.Logger
	last   Summary

	lmu       sync.Mutex
	listeners []func()
}

// NewSynchronizer wires a store to its document source.
func NewSynchronizer(store *Store, src Source, ext *extract.Extractor, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, src: src, ext: ext, logger: logger}
}

// Store returns the index the synchronizer writes to.
func (s *Synchronizer) Store() *Store { return s.store }

// ItemsForDay returns the items currently dated on day.
func (s *Synchronizer) ItemsForDay(day string) []models.Item {
	return s.store.ItemsForDay(day)
}

// Extractor returns the active extractor.
func (s *Synchronizer) Extractor() *extract.Extractor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ext
}

// Mode returns the active extraction mode.
func (s *Synchronizer) Mode() extract.Mode {
	return s.Extractor().Mode()
}

// LastRebuild returns the summary of the most recent full rebuild.
func (s *Synchronizer) LastRebuild() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// OnIndexChanged registers fn to be called, without arguments, after every
// change to the index. It is not called for events that changed nothing.
func (s *Synchronizer) OnIndexChanged(fn func()) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Synchronizer) notify() {
	s.lmu.Lock()
	fns := make([]func(), len(s.listeners))
	copy(fns, s.listeners)
	s.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Rebuild discards the index and repopulates it from every document.
func (s *Synchronizer) Rebuild(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	sum, err := s.rebuildLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return Summary{}, err
	}
	s.notify()
	return sum, nil
}

func (s *Synchronizer) rebuildLocked(ctx context.Context) (Summary, error) {
	start := time.Now()
	docs, err := s.src.Documents(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("sync: list documents: %w", err)
	}
	var entries []extract.Entry
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		entries = append(entries, s.ext.Extract(ctx, doc, s.src)...)
	}
	s.store.Rebuild(entries)
	s.last = Summary{
		Mode:      s.ext.Mode(),
		Documents: len(docs),
		Days:      len(s.store.Days()),
		Items:     len(entries),
		Duration:  time.Since(start),
		At:        start,
	}
	s.logger.Info("sync: rebuilt",
		slog.String("mode", s.ext.Mode().String()),
		slog.Int("documents", s.last.Documents),
		slog.Int("days", s.last.Days),
		slog.Int("items", s.last.Items),
		slog.Duration("took", s.last.Duration))
	return s.last, nil
}

// SetMode switches the extraction mode. The whole index is rebuilt under
// the new mode before SetMode returns.
func (s *Synchronizer) SetMode(ctx context.Context, mode extract.Mode) (Summary, error) {
	s.mu.Lock()
	ext, err := s.ext.WithMode(mode)
	if err != nil {
		s.mu.Unlock()
		return Summary{}, err
	}
	prev := s.ext
	s.ext = ext
	sum, err := s.rebuildLocked(ctx)
	if err != nil {
		s.ext = prev
	}
	s.mu.Unlock()
	if err != nil {
		return Summary{}, err
	}
	s.logger.Info("sync: mode switched",
		slog.String("from", prev.Mode().String()),
		slog.String("to", ext.Mode().String()))
	s.notify()
	return sum, nil
}

// InitialScanComplete runs the first full rebuild once the vault listing
// is available.
func (s *Synchronizer) InitialScanComplete(ctx context.Context) error {
	_, err := s.Rebuild(ctx)
	return err
}

// LayoutReady runs the second full rebuild, after the watcher is armed, so
// documents created between the first scan and the watch are picked up.
func (s *Synchronizer) LayoutReady(ctx context.Context) error {
	_, err := s.Rebuild(ctx)
	return err
}

// Created handles a new document.
func (s *Synchronizer) Created(ctx context.Context, doc models.Document) bool {
	return s.apply(func() bool { return s.handlers().created(s, ctx, doc) })
}

// Changed handles an edited document. fm is the document's frontmatter as
// freshly parsed, nil when it has none.
func (s *Synchronizer) Changed(ctx context.Context, doc models.Document, fm map[string]interface{}) bool {
	return s.apply(func() bool { return s.handlers().changed(s, ctx, doc, fm) })
}

// Renamed handles a document moved from oldPath to doc.Path.
func (s *Synchronizer) Renamed(ctx context.Context, doc models.Document, oldPath string) bool {
	return s.apply(func() bool { return s.handlers().renamed(s, ctx, doc, oldPath) })
}

// Deleted handles a removed document. Every mode purges by path.
func (s *Synchronizer) Deleted(_ context.Context, path string) bool {
	return s.apply(func() bool { return s.store.RemoveByPath(path) })
}

func (s *Synchronizer) apply(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return changed
}

// handlers is one row of the dispatch table. Deletion is the same in
// every mode and has no column.
type handlers struct {
	created func(s *Synchronizer, ctx context.Context, doc models.Document) bool
	changed func(s *Synchronizer, ctx context.Context, doc models.Document, fm map[string]interface{}) bool
	renamed func(s *Synchronizer, ctx context.Context, doc models.Document, oldPath string) bool
}

var dispatch = map[extract.Mode]handlers{
	// Frontmatter is not trusted at creation time; the changed event that
	// follows carries it.
	extract.ModeMetadata: {
		created: func(*Synchronizer, context.Context, models.Document) bool { return false },
		changed: (*Synchronizer).rescanMetadata,
		renamed: (*Synchronizer).relocate,
	},
	// Only the path matters, so edits are ignored.
	extract.ModeFilename: {
		created: (*Synchronizer).insertByName,
		changed: func(*Synchronizer, context.Context, models.Document, map[string]interface{}) bool { return false },
		renamed: (*Synchronizer).reinsertByName,
	},
	extract.ModeTag: {
		created: (*Synchronizer).rescanTags,
		changed: func(s *Synchronizer, ctx context.Context, doc models.Document, _ map[string]interface{}) bool {
			return s.rescanTags(ctx, doc)
		},
		renamed: (*Synchronizer).rescanTagsAfterRename,
	},
}

// handlers must be called with s.mu held.
func (s *Synchronizer) handlers() handlers {
	return dispatch[s.ext.Mode()]
}

func (s *Synchronizer) rescanMetadata(_ context.Context, doc models.Document, fm map[string]interface{}) bool {
	removed := s.store.RemoveByPath(doc.Path)
	inserted := s.insert(s.ext.FromMetadata(doc, fm))
	return removed || inserted
}

// relocate keeps metadata-dated entries where they are and only follows
// the path; the frontmatter does not depend on it.
func (s *Synchronizer) relocate(_ context.Context, doc models.Document, oldPath string) bool {
	return s.store.Relocate(oldPath, doc)
}

func (s *Synchronizer) insertByName(_ context.Context, doc models.Document) bool {
	return s.insert(s.ext.FromFilename(doc))
}

func (s *Synchronizer) reinsertByName(_ context.Context, doc models.Document, oldPath string) bool {
	removed := s.store.RemoveByPath(oldPath)
	inserted := s.insert(s.ext.FromFilename(doc))
	return removed || inserted
}

// rescanTags replaces every tag item of doc with a fresh scan of its
// content. Removing first keeps a repeated created event from duplicating
// tags.
func (s *Synchronizer) rescanTags(ctx context.Context, doc models.Document) bool {
	removed := s.store.RemoveByPath(doc.Path)
	inserted := s.insert(s.ext.Extract(ctx, doc, s.src))
	return removed || inserted
}

func (s *Synchronizer) rescanTagsAfterRename(ctx context.Context, doc models.Document, oldPath string) bool {
	removed := s.store.RemoveByPath(oldPath)
	rescanned := s.rescanTags(ctx, doc)
	return removed || rescanned
}

// insert adds entries, skipping a NoteItem already present for the same
// (day, path).
func (s *Synchronizer) insert(entries []extract.Entry) bool {
	inserted := false
	for _, e := range entries {
		if e.Item.Kind() == models.KindNote && s.store.Has(e.Day, models.KindNote, e.Item.Source()) {
			continue
		}
		s.store.Insert(e.Day, e.Item)
		inserted = true
	}
	return inserted
}

// Snapshot returns a deep copy of the index.
func (s *Synchronizer) Snapshot() map[string][]models.Item {
	return s.store.Snapshot()
}

package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/storage"
)

// Handler receives the lifecycle events produced by Watch. Synchronizer
// implements it.
type Handler interface {
	Created(ctx context.Context, doc models.Document) bool
	Changed(ctx context.Context, doc models.Document, fm map[string]interface{}) bool
	Renamed(ctx context.Context, doc models.Document, oldPath string) bool
	Deleted(ctx context.Context, path string) bool
	Rebuild(ctx context.Context) (Summary, error)
}

// WatchSource is the part of the vault the watcher needs. *storage.Vault
// implements it.
type WatchSource interface {
	Stat(path string) (models.Document, error)
	Frontmatter(ctx context.Context, path string) (map[string]interface{}, error)
	Invalidate(path string)
	Ignored(path string) bool
}

// RenameWindow is how long a rename waits for the create event carrying
// its new name before it is treated as a deletion.
const RenameWindow = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and turns file events
// into lifecycle events on h until ctx is cancelled. onReady, when non-nil,
// runs once every directory is being watched.
//
// fsnotify reports a rename as a Rename on the old name followed by a
// Create on the new one. The two are paired within RenameWindow when the new
// file has the size and modification time last seen at the old name;
// otherwise, or when the rename stays unpaired, the old name is a deletion
// and the new one a creation. Every paired rename is followed by a change,
// so the index reads the moved document's current content. A renamed
// directory whose new name never shows up triggers a full rebuild.
func Watch(ctx context.Context, h Handler, src WatchSource, vaultRoot string, logger *slog.Logger, onReady func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	wt := &watcher{
		w:      w,
		h:      h,
		src:    src,
		root:   vaultRoot,
		logger: logger,
		dirs:   make(map[string]struct{}),
		known:  make(map[string]stamp),
	}
	if err := wt.addDirsRecursive(vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))
	if onReady != nil {
		onReady()
	}

	for {
		select {
		case <-ctx.Done():
			wt.stopTimer()
			logger.Info("watcher: stopped")
			return nil

		case <-wt.timerC:
			wt.flushPending(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			wt.handle(ctx, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type watcher struct {
	w      *fsnotify.Watcher
	h      Handler
	src    WatchSource
	root   string
	logger *slog.Logger

	dirs  map[string]struct{} // absolute paths currently watched
	known map[string]stamp    // last seen size and mtime per document

	// Old names waiting for their Create, oldest first.
	pendingFiles []string
	pendingDirs  []string
	timer        *time.Timer
	timerC       <-chan time.Time
}

// stamp identifies a file's content across a rename.
type stamp struct {
	size  int64
	mtime time.Time
}

func stampOf(doc models.Document) stamp {
	return stamp{size: doc.Size, mtime: doc.UpdatedAt}
}

func (wt *watcher) handle(ctx context.Context, ev fsnotify.Event) {
	abs := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			wt.dirCreated(ctx, abs)
			return
		}
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := wt.dirs[abs]; ok {
			wt.dirGone(abs, ev.Op&fsnotify.Rename != 0)
			return
		}
	}

	if !strings.HasSuffix(abs, storage.MarkdownExt) {
		return
	}
	rel, ok := wt.rel(abs)
	if !ok {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if len(wt.pendingFiles) > 0 {
			old := wt.pendingFiles[0]
			wt.pendingFiles = wt.pendingFiles[1:]
			if wt.sameFile(old, rel) {
				wt.renamed(ctx, rel, old)
				return
			}
			wt.deleted(ctx, old)
		}
		wt.created(ctx, rel)

	case ev.Op&fsnotify.Write != 0:
		wt.changed(ctx, rel)

	case ev.Op&fsnotify.Remove != 0:
		wt.src.Invalidate(rel)
		wt.deleted(ctx, rel)

	case ev.Op&fsnotify.Rename != 0:
		wt.src.Invalidate(rel)
		wt.pendingFiles = append(wt.pendingFiles, rel)
		wt.resetTimer()
	}
}

// rel converts an absolute event path to a slash-separated vault path,
// rejecting paths outside the vault and ignored or hidden ones.
func (wt *watcher) rel(abs string) (string, bool) {
	r, err := filepath.Rel(wt.root, abs)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", false
	}
	r = filepath.ToSlash(r)
	if strings.HasPrefix(path.Base(r), ".") || wt.src.Ignored(r) {
		return "", false
	}
	return r, true
}

// relDir is rel for directories.
func (wt *watcher) relDir(abs string) (string, bool) {
	r, err := filepath.Rel(wt.root, abs)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", false
	}
	r = filepath.ToSlash(r)
	if wt.src.Ignored(r + "/") {
		return "", false
	}
	return r, true
}

// sameFile reports whether the file now at rel is the one last seen at old.
// A file the watcher never saw is given the benefit of the doubt.
func (wt *watcher) sameFile(old, rel string) bool {
	prev, ok := wt.known[old]
	if !ok {
		return true
	}
	doc, err := wt.src.Stat(rel)
	if err != nil {
		return true
	}
	if stampOf(doc) != prev {
		wt.logger.Debug("watcher: create does not match rename",
			slog.String("from", old), slog.String("to", rel))
		return false
	}
	return true
}

func (wt *watcher) deleted(ctx context.Context, rel string) {
	delete(wt.known, rel)
	if wt.h.Deleted(ctx, rel) {
		wt.logger.Debug("watcher: deleted", slog.String("path", rel))
	}
}

func (wt *watcher) created(ctx context.Context, rel string) {
	doc, err := wt.src.Stat(rel)
	if err != nil {
		wt.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if wt.h.Created(ctx, doc) {
		wt.logger.Debug("watcher: created", slog.String("path", rel))
	}
	wt.changedDoc(ctx, doc)
}

func (wt *watcher) changed(ctx context.Context, rel string) {
	wt.src.Invalidate(rel)
	doc, err := wt.src.Stat(rel)
	if err != nil {
		wt.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	wt.changedDoc(ctx, doc)
}

// changedDoc stands in for the "metadata resolved" signal: the frontmatter
// is parsed from the current content and handed over with the event.
func (wt *watcher) changedDoc(ctx context.Context, doc models.Document) {
	wt.known[doc.Path] = stampOf(doc)
	fm, err := wt.src.Frontmatter(ctx, doc.Path)
	if err != nil {
		wt.logger.Warn("watcher: read failed", slog.String("path", doc.Path), slog.String("error", err.Error()))
		fm = nil
	}
	if wt.h.Changed(ctx, doc, fm) {
		wt.logger.Debug("watcher: changed", slog.String("path", doc.Path))
	}
}

func (wt *watcher) renamed(ctx context.Context, rel, old string) {
	doc, err := wt.src.Stat(rel)
	if err != nil {
		wt.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
		wt.deleted(ctx, old)
		return
	}
	delete(wt.known, old)
	if wt.h.Renamed(ctx, doc, old) {
		wt.logger.Debug("watcher: renamed", slog.String("from", old), slog.String("to", rel))
	}
	wt.changedDoc(ctx, doc)
}

// dirCreated watches a new directory and reports the documents inside it,
// as renames when the directory is the new name of a pending one.
func (wt *watcher) dirCreated(ctx context.Context, abs string) {
	if err := wt.addDirsRecursive(abs); err != nil {
		wt.logger.Warn("watcher: add new dir failed",
			slog.String("path", abs),
			slog.String("error", err.Error()))
		return
	}
	wt.logger.Debug("watcher: watching new dir", slog.String("path", abs))

	var oldDir string
	if len(wt.pendingDirs) > 0 {
		oldDir = wt.pendingDirs[0]
		wt.pendingDirs = wt.pendingDirs[1:]
	}
	newDir, ok := wt.relDir(abs)
	if !ok {
		return
	}

	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, storage.MarkdownExt) {
			return nil
		}
		rel, ok := wt.rel(p)
		if !ok {
			return nil
		}
		if oldDir != "" {
			wt.renamed(ctx, rel, oldDir+strings.TrimPrefix(rel, newDir))
			return nil
		}
		wt.created(ctx, rel)
		return nil
	})
}

// dirGone forgets a removed or renamed directory. Files inside a removed
// directory get their own Remove events; a renamed one is held until its
// new name appears.
func (wt *watcher) dirGone(abs string, renamed bool) {
	for d := range wt.dirs {
		if d == abs || strings.HasPrefix(d, abs+string(filepath.Separator)) {
			_ = wt.w.Remove(d)
			delete(wt.dirs, d)
		}
	}
	if !renamed {
		return
	}
	r, err := filepath.Rel(wt.root, abs)
	if err != nil {
		return
	}
	wt.pendingDirs = append(wt.pendingDirs, filepath.ToSlash(r))
	wt.resetTimer()
}

// flushPending settles renames whose new name never arrived.
func (wt *watcher) flushPending(ctx context.Context) {
	for _, old := range wt.pendingFiles {
		delete(wt.known, old)
		if wt.h.Deleted(ctx, old) {
			wt.logger.Debug("watcher: moved out", slog.String("path", old))
		}
	}
	wt.pendingFiles = nil
	if len(wt.pendingDirs) > 0 {
		wt.logger.Debug("watcher: unpaired dir rename, rebuilding", slog.Int("dirs", len(wt.pendingDirs)))
		wt.pendingDirs = nil
		if _, err := wt.h.Rebuild(ctx); err != nil {
			wt.logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
		}
	}
}

func (wt *watcher) resetTimer() {
	if wt.timer == nil {
		wt.timer = time.NewTimer(RenameWindow)
		wt.timerC = wt.timer.C
		return
	}
	wt.timer.Reset(RenameWindow)
}

func (wt *watcher) stopTimer() {
	if wt.timer != nil {
		wt.timer.Stop()
	}
}

// addDirsRecursive adds root and its subdirectories to the watcher,
// skipping hidden and ignored folders, and records the stamp of every
// document found on the way.
func (wt *watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			wt.remember(p)
			return nil
		}
		if p != wt.root {
			if _, ok := wt.relDir(p); !ok {
				return filepath.SkipDir
			}
		}
		if err := wt.w.Add(p); err != nil {
			return err
		}
		wt.dirs[p] = struct{}{}
		return nil
	})
}

func (wt *watcher) remember(abs string) {
	if !strings.HasSuffix(abs, storage.MarkdownExt) {
		return
	}
	rel, ok := wt.rel(abs)
	if !ok {
		return
	}
	if doc, err := wt.src.Stat(rel); err == nil {
		wt.known[rel] = stampOf(doc)
	}
}

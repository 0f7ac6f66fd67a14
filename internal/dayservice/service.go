// Package dayservice is the view collaborator of the day index: it answers
// day-list, day-range and month queries and runs the user commands (create
// a note for a day, rebuild, switch mode). The HTTP API and the MCP server
// both sit on top of it.
package dayservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/storage"
)

// Sort orders for a day's items.
const (
	SortName    = "name"
	SortNameRev = "name-rev"
)

// Item is one entry of a day list.
type Item struct {
	Kind        models.ItemKind `json:"kind"`
	DisplayName string          `json:"display_name"`
	Path        string          `json:"path"`
	Line        *int            `json:"line,omitempty"`
}

// DayItems is the content of one day.
type DayItems struct {
	Day   string `json:"day"`
	Items []Item `json:"items"`
}

// DayCount is the number of items on a day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// CreatedNote describes a note written by CreateNote.
type CreatedNote struct {
	Day  string `json:"day"`
	Path string `json:"path"`
}

// Status summarises the index.
type Status struct {
	Mode        extract.Mode  `json:"mode"`
	Days        int           `json:"days"`
	Items       int           `json:"items"`
	LastRebuild index.Summary `json:"last_rebuild"`
}

// Options configure the view side.
type Options struct {
	Sorting       string // SortName or SortNameRev
	NewNoteFolder string
	NewNoteFormat string // dayjs format of new note names
	Now           func() time.Time
}

// Service serves the day index.
type Service struct {
	idx     *index.Synchronizer
	store   storage.Provider
	opts    Options
	newNote extract.Layout

	cmu      sync.Mutex
	collator *collate.Collator
}

// NewService creates a day service. An empty NewNoteFormat selects
// YYYY-MM-DD.
func NewService(s *index.Synchronizer, store storage.Provider, opts Options) (*Service, error) {
	if opts.NewNoteFormat == "" {
		opts.NewNoteFormat = "YYYY-MM-DD"
	}
	layout, err := extract.ParseLayout(opts.NewNoteFormat)
	if err != nil {
		return nil, fmt.Errorf("dayservice: new note format: %w", err)
	}
	if opts.Sorting == "" {
		opts.Sorting = SortName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		idx:      s,
		store:    store,
		opts:     opts,
		newNote:  layout,
		collator: collate.New(language.English, collate.Numeric),
	}, nil
}

// ItemsForDay returns the items of day ("today" or YYYY-MM-DD) moved by
// shift days, sorted by display name with numbers compared by value.
func (s *Service) ItemsForDay(_ context.Context, day string, shift int) (*DayItems, error) {
	key, err := index.ResolveDay(day, shift, s.opts.Now())
	if err != nil {
		return nil, err
	}
	items := s.idx.ItemsForDay(key)
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = toItem(it)
	}
	s.sortItems(out)
	return &DayItems{Day: key, Items: out}, nil
}

func toItem(it models.Item) Item {
	out := Item{Kind: it.Kind(), DisplayName: it.Label(), Path: it.Source()}
	if tag, ok := it.(models.TagItem); ok {
		line := tag.Line
		out.Line = &line
	}
	return out
}

func (s *Service) sortItems(items []Item) {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	rev := s.opts.Sorting == SortNameRev
	sort.SliceStable(items, func(i, j int) bool {
		c := s.collator.CompareString(items[i].DisplayName, items[j].DisplayName)
		if rev {
			return c > 0
		}
		return c < 0
	})
}

// Days lists the days holding at least one item within [from, to]. Empty
// bounds are open.
func (s *Service) Days(_ context.Context, from, to string) ([]DayCount, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := index.ParseDay(d); err != nil {
			return nil, err
		}
	}
	if from != "" && to != "" && from > to {
		return nil, fmt.Errorf("from %s is after to %s: %w", from, to, apperr.ErrInvalidDay)
	}
	counts := s.idx.Store().Counts()
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		if (from != "" && day < from) || (to != "" && day > to) {
			continue
		}
		out = append(out, DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// CreateNote writes a note for day into the new-note folder, named by the
// new-note format. In filename mode the name comes from the date format
// instead, since that is what the index reads back. In metadata-field mode
// the note is given the date field so that it is indexed under day.
// Existing files are never overwritten.
func (s *Service) CreateNote(ctx context.Context, day, content string) (*CreatedNote, error) {
	key, err := index.ResolveDay(day, 0, s.opts.Now())
	if err != nil {
		return nil, err
	}
	t, _ := index.ParseDay(key)

	ext := s.idx.Extractor()
	naming := s.newNote
	if ext.Mode() == extract.ModeFilename {
		naming = ext.Layout()
	}
	name := naming.Render(t) + storage.MarkdownExt
	p := path.Join(strings.Trim(s.opts.NewNoteFolder, "/"), name)

	if _, err := s.store.Stat(p); err == nil {
		return nil, fmt.Errorf("%s: %w", p, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	body := content
	var fm map[string]interface{}
	if ext.Mode() == extract.ModeMetadata {
		cfg := ext.Config()
		fm = map[string]interface{}{cfg.YAMLKey: ext.Layout().Render(t)}
		head, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("dayservice: encode frontmatter: %w", err)
		}
		body = "---\n" + string(head) + "---\n" + content
	}
	if err := s.store.Write(p, []byte(body)); err != nil {
		return nil, err
	}

	// Apply the lifecycle events now instead of waiting for the watcher,
	// which will replay them harmlessly.
	doc, err := s.store.Stat(p)
	if err != nil {
		return nil, err
	}
	s.idx.Created(ctx, doc)
	s.idx.Changed(ctx, doc, fm)
	return &CreatedNote{Day: key, Path: p}, nil
}

// Rebuild forces a full rebuild of the index.
func (s *Service) Rebuild(ctx context.Context) (index.Summary, error) {
	return s.idx.Rebuild(ctx)
}

// SetMode switches the extraction mode, accepting the legacy mode names.
func (s *Service) SetMode(ctx context.Context, mode string) (index.Summary, error) {
	m, err := extract.ParseMode(mode)
	if err != nil {
		return index.Summary{}, err
	}
	return s.idx.SetMode(ctx, m)
}

// Status reports the active mode and index size.
func (s *Service) Status(_ context.Context) Status {
	st := s.idx.Store()
	return Status{
		Mode:        s.idx.Mode(),
		Days:        len(st.Days()),
		Items:       st.Len(),
		LastRebuild: s.idx.LastRebuild(),
	}
}

// DateSource returns the active extraction settings.
func (s *Service) DateSource() extract.Config {
	return s.idx.Extractor().Config()
}

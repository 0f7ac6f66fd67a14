package dayservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/parser"
	"github.com/starford/daymark/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

type env struct {
	dir string
	svc *Service
	idx *index.Synchronizer
}

func newEnv(t *testing.T, mode extract.Mode, opts Options, files map[string]string) *env {
	t.Helper()
	dir, vault := testutil.TestVault(t)
	for rel, content := range files {
		testutil.WriteNote(t, dir, rel, content)
	}
	ext, err := extract.New(extract.Config{
		Mode:           mode,
		YAMLKey:        "date",
		DateFormat:     "YYYY-MM-DD",
		HashtagPattern: "#event/YYYY/MM/DD",
	}, testutil.Logger())
	require.NoError(t, err)
	idx := index.NewSynchronizer(index.NewStore(), vault, ext, testutil.Logger())
	require.NoError(t, idx.InitialScanComplete(context.Background()))

	opts.Now = func() time.Time { return fixedNow }
	svc, err := NewService(idx, vault, opts)
	require.NoError(t, err)
	return &env{dir: dir, svc: svc, idx: idx}
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.DisplayName
	}
	return out
}

func TestItemsForDay_NumericSort(t *testing.T) {
	files := map[string]string{
		"meeting 10.md": "#event/2024/03/15\n",
		"meeting 2.md":  "#event/2024/03/15\n",
		"agenda.md":     "#event/2024/03/15 call Bob\n",
	}
	e := newEnv(t, extract.ModeTag, Options{}, files)

	got, err := e.svc.ItemsForDay(context.Background(), "2024-03-15", 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", got.Day)
	assert.Equal(t, []string{"[[agenda##event/2024/03/15|call Bob]]", "[[meeting 2]]", "[[meeting 10]]"}, names(got.Items))
	require.NotNil(t, got.Items[0].Line)
	assert.Equal(t, 0, *got.Items[0].Line)
	assert.Equal(t, models.KindTag, got.Items[0].Kind)

	e.svc.opts.Sorting = SortNameRev
	got, err = e.svc.ItemsForDay(context.Background(), "2024-03-15", 0)
	require.NoError(t, err)
	assert.Equal(t, "[[meeting 10]]", got.Items[0].DisplayName)
}

func TestItemsForDay_TodayAndShift(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{}, map[string]string{
		"2024-03-14.md": "",
		"2024-03-15.md": "",
	})

	got, err := e.svc.ItemsForDay(context.Background(), "today", 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", got.Day)
	require.Len(t, got.Items, 1)
	assert.Nil(t, got.Items[0].Line)

	got, err = e.svc.ItemsForDay(context.Background(), "today", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", got.Day)

	got, err = e.svc.ItemsForDay(context.Background(), "2024-03-15", 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-16", got.Day)
	assert.Empty(t, got.Items)

	_, err = e.svc.ItemsForDay(context.Background(), "15/03/2024", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidDay)
}

func TestDays_Range(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{}, map[string]string{
		"2024-01-01.md":       "",
		"2024-02-01.md":       "",
		"2024-02-01 extra.md": "",
		"2024-03-01.md":       "",
	})
	ctx := context.Background()

	all, err := e.svc.Days(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	feb, err := e.svc.Days(ctx, "2024-02-01", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{Day: "2024-02-01", Count: 2}}, feb)

	_, err = e.svc.Days(ctx, "2024-03-01", "2024-02-01")
	assert.ErrorIs(t, err, apperr.ErrInvalidDay)
	_, err = e.svc.Days(ctx, "yesterday", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidDay)
}

func TestCreateNote_MetadataMode(t *testing.T) {
	e := newEnv(t, extract.ModeMetadata, Options{NewNoteFolder: "daily/", NewNoteFormat: "DD-MM-YYYY"}, nil)
	ctx := context.Background()

	created, err := e.svc.CreateNote(ctx, "2024-03-20", "# Plan\n")
	require.NoError(t, err)
	assert.Equal(t, CreatedNote{Day: "2024-03-20", Path: "daily/20-03-2024.md"}, *created)

	data, err := e.svc.store.Read(created.Path)
	require.NoError(t, err)
	res := parser.Parse(data)
	assert.Equal(t, "2024-03-20", res.Frontmatter["date"])
	assert.Equal(t, "# Plan\n", res.Body)

	got, err := e.svc.ItemsForDay(ctx, "2024-03-20", 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "daily/20-03-2024.md", got.Items[0].Path)

	_, err = e.svc.CreateNote(ctx, "2024-03-20", "again")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Equal(t, 1, e.idx.Store().Len())
}

func TestCreateNote_FilenameModeToday(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{}, nil)

	created, err := e.svc.CreateNote(context.Background(), "today", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15.md", created.Path)

	data, err := e.svc.store.Read(created.Path)
	require.NoError(t, err)
	assert.Empty(t, data, "no frontmatter outside metadata mode")
	assert.Equal(t, []string{"2024-03-15"}, e.idx.Store().Days())
}

func TestCreateNote_FilenameModeNamesByDateFormat(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{NewNoteFormat: "DD-MM-YYYY"}, nil)
	ctx := context.Background()

	created, err := e.svc.CreateNote(ctx, "2024-03-20", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-20.md", created.Path)

	got, err := e.svc.ItemsForDay(ctx, created.Day, 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, created.Path, got.Items[0].Path)
}

func TestSetModeAndStatus(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{}, map[string]string{
		"2024-03-15.md": "#event/2024/04/01 a\n#event/2024/04/02 b\n",
	})
	ctx := context.Background()

	st := e.svc.Status(ctx)
	assert.Equal(t, extract.ModeFilename, st.Mode)
	assert.Equal(t, 1, st.Items)

	sum, err := e.svc.SetMode(ctx, "hashtag")
	require.NoError(t, err)
	assert.Equal(t, extract.ModeTag, sum.Mode)

	st = e.svc.Status(ctx)
	assert.Equal(t, 2, st.Days)
	assert.Equal(t, 2, st.Items)
	assert.Equal(t, 1, st.LastRebuild.Documents)

	_, err = e.svc.SetMode(ctx, "weekly")
	assert.ErrorIs(t, err, apperr.ErrInvalidMode)
}

func TestMonth_Grid(t *testing.T) {
	e := newEnv(t, extract.ModeFilename, Options{}, map[string]string{
		"2024-03-01.md":   "",
		"2024-03-15.md":   "",
		"2024-03-15 b.md": "",
		"2024-04-01.md":   "",
	})

	m, err := e.svc.Month(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", m.Month)
	assert.Equal(t, "March 2024", m.Label)
	assert.Equal(t, "2024-02", m.Prev)
	assert.Equal(t, "2024-04", m.Next)

	// March 2024 starts on a Friday and ends on a Sunday: six rows.
	require.Len(t, m.Weeks, 6)
	first := m.Weeks[0].Days
	assert.Equal(t, "2024-02-25", first[0].Date)
	assert.False(t, first[0].InMonth)
	assert.Equal(t, "2024-03-01", first[5].Date)
	assert.Equal(t, 1, first[5].Count)

	var today CalendarDay
	for _, w := range m.Weeks {
		require.Len(t, w.Days, 7)
		for _, d := range w.Days {
			if d.Today {
				today = d
			}
		}
	}
	assert.Equal(t, "2024-03-15", today.Date)
	assert.Equal(t, 2, today.Count)

	last := m.Weeks[5].Days
	assert.Equal(t, "2024-03-31", last[0].Date)
	assert.Equal(t, "2024-04-01", last[1].Date)
	assert.Equal(t, 1, last[1].Count)

	_, err = e.svc.Month(context.Background(), "March")
	assert.ErrorIs(t, err, apperr.ErrInvalidDay)
}

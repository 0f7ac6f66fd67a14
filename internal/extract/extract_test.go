package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/daymark/internal/models"
)

type fakeSource struct {
	content map[string]string
	fm      map[string]map[string]interface{}
	err     error
}

func (f fakeSource) ReadContent(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content[path], nil
}

func (f fakeSource) Frontmatter(_ context.Context, path string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fm[path], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doc(path string) models.Document {
	name := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			name = path[i+1:]
			break
		}
	}
	if len(name) > 3 && name[len(name)-3:] == ".md" {
		name = name[:len(name)-3]
	}
	return models.Document{Path: path, Basename: name, Extension: "md"}
}

func newExtractor(t *testing.T, cfg Config) *Extractor {
	t.Helper()
	if cfg.DateFormat == "" {
		cfg.DateFormat = "YYYY-MM-DD"
	}
	e, err := New(cfg, quietLogger())
	require.NoError(t, err)
	return e
}

func TestNew_RejectsUnknownModeAndFormat(t *testing.T) {
	_, err := New(Config{Mode: "calendar", DateFormat: "YYYY-MM-DD"}, quietLogger())
	require.Error(t, err)

	_, err = New(Config{Mode: ModeFilename, DateFormat: "HH:mm"}, quietLogger())
	require.Error(t, err)
}

func TestParseMode_Aliases(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"yaml", ModeMetadata},
		{"metadata-field", ModeMetadata},
		{"filename", ModeFilename},
		{"hashtag", ModeTag},
		{" Inline-Tag-Pattern ", ModeTag},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromMetadata(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeMetadata, YAMLKey: "date", DateFormat: "DD.MM.YYYY"})
	d := doc("notes/standup.md")

	entries := e.FromMetadata(d, map[string]interface{}{"date": "15.03.2024"})
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-15", entries[0].Day)
	assert.Equal(t, models.NoteItem{DisplayName: "standup", Path: "notes/standup.md"}, entries[0].Item)
}

func TestFromMetadata_NoEntry(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeMetadata, YAMLKey: "date"})
	d := doc("a.md")

	assert.Empty(t, e.FromMetadata(d, nil), "no frontmatter")
	assert.Empty(t, e.FromMetadata(d, map[string]interface{}{"created": "2024-03-15"}), "other key")
	assert.Empty(t, e.FromMetadata(d, map[string]interface{}{"date": "next tuesday"}), "unparseable")
	assert.Empty(t, e.FromMetadata(d, map[string]interface{}{"date": "2024-02-30"}), "impossible date")
	assert.Empty(t, e.FromMetadata(d, map[string]interface{}{"date": nil}), "null value")
}

func TestFromMetadata_TimestampAndTrailingText(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeMetadata, YAMLKey: "date"})
	d := doc("a.md")

	ts := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	entries := e.FromMetadata(d, map[string]interface{}{"date": ts})
	require.Len(t, entries, 1)
	assert.Equal(t, "2023-12-31", entries[0].Day)

	entries = e.FromMetadata(d, map[string]interface{}{"date": "2024-01-05T10:30"})
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-01-05", entries[0].Day)
}

func TestFromFilename(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeFilename})

	entries := e.FromFilename(doc("journal/2024-03-15.md"))
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-15", entries[0].Day)
	assert.Equal(t, models.NoteItem{DisplayName: "2024-03-15", Path: "journal/2024-03-15.md"}, entries[0].Item)

	entries = e.FromFilename(doc("2024-03-15 planning.md"))
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-15", entries[0].Day)

	assert.Empty(t, e.FromFilename(doc("not-a-date.md")))
	assert.Empty(t, e.FromFilename(doc("2024-3-1.md")), "shorter than the format")
	assert.Empty(t, e.FromFilename(doc("2024-13-01.md")))
}

func TestFromFilename_CustomFormat(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeFilename, DateFormat: "DD MMM YYYY"})
	entries := e.FromFilename(doc("14 Sep 2025.md"))
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-09-14", entries[0].Day)
}

func TestFromContent_Caption(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeTag, HashtagPattern: "#event/YYYY/MM/DD"})
	d := doc("todo/shopping.md")

	entries := e.FromContent(d, "# Shopping\n- #event/2025/09/14 Buy bread\n#event/2025/09/15\n")
	require.Len(t, entries, 2)

	first := entries[0].Item.(models.TagItem)
	assert.Equal(t, "2025-09-14", entries[0].Day)
	assert.Equal(t, "[[shopping##event/2025/09/14|Buy bread]]", first.DisplayName)
	assert.Equal(t, "#event/2025/09/14", first.Tag)
	assert.Equal(t, "todo/shopping.md", first.SourcePath)
	assert.Equal(t, 1, first.Line)

	second := entries[1].Item.(models.TagItem)
	assert.Equal(t, "2025-09-15", entries[1].Day)
	assert.Equal(t, "[[shopping]]", second.DisplayName)
	assert.Equal(t, 2, second.Line)
}

func TestFromContent_MultipleMatchesPerLine(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeTag, HashtagPattern: "#event/YYYY/MM/DD"})
	entries := e.FromContent(doc("plan.md"), "intro\n#event/2025/01/02 call #event/2025/01/03 meet")
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-01-02", entries[0].Day)
	assert.Equal(t, "2025-01-03", entries[1].Day)
	assert.Equal(t, 1, entries[0].Item.(models.TagItem).Line)
	assert.Equal(t, 1, entries[1].Item.(models.TagItem).Line)
	assert.NotEqual(t, entries[0].Item, entries[1].Item)
}

func TestFromContent_InvalidDateAndNoMatch(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeTag, HashtagPattern: "#event/YYYY/MM/DD"})
	assert.Empty(t, e.FromContent(doc("a.md"), "#event/2025/02/30 nope"))
	assert.Empty(t, e.FromContent(doc("a.md"), "nothing dated here"))
}

func TestFromContent_PatternWithoutPlaceholders(t *testing.T) {
	e := newExtractor(t, Config{Mode: ModeTag, HashtagPattern: "#event"})
	assert.Empty(t, e.FromContent(doc("a.md"), "#event/2025/01/02"))
	assert.Empty(t, e.Extract(context.Background(), doc("a.md"), fakeSource{}))
}

func TestExtract_ReadFailureYieldsNothing(t *testing.T) {
	src := fakeSource{err: errors.New("disk on fire")}

	e := newExtractor(t, Config{Mode: ModeTag, HashtagPattern: "#event/YYYY/MM/DD"})
	assert.Empty(t, e.Extract(context.Background(), doc("a.md"), src))

	e = newExtractor(t, Config{Mode: ModeMetadata, YAMLKey: "date"})
	assert.Empty(t, e.Extract(context.Background(), doc("a.md"), src))
}

func TestExtract_Dispatch(t *testing.T) {
	src := fakeSource{
		content: map[string]string{"a.md": "#d/2024/05/06 x"},
		fm:      map[string]map[string]interface{}{"a.md": {"day": "2024-05-07"}},
	}
	ctx := context.Background()
	d := doc("a.md")

	e := newExtractor(t, Config{Mode: ModeMetadata, YAMLKey: "day", HashtagPattern: "#d/YYYY/MM/DD"})
	entries := e.Extract(ctx, d, src)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05-07", entries[0].Day)

	tagMode, err := e.WithMode(ModeTag)
	require.NoError(t, err)
	entries = tagMode.Extract(ctx, d, src)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05-06", entries[0].Day)

	fileMode, err := e.WithMode(ModeFilename)
	require.NoError(t, err)
	assert.Empty(t, fileMode.Extract(ctx, d, src))
}

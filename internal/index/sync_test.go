package index

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/storage"
	"github.com/starford/daymark/internal/testutil"
)

type syncEnv struct {
	dir     string
	vault   *storage.Vault
	sync    *Synchronizer
	notices atomic.Int32
}

func newSyncEnv(t *testing.T, mode extract.Mode) *syncEnv {
	t.Helper()
	dir, vault := testutil.TestVault(t)
	ext, err := extract.New(extract.Config{
		Mode:           mode,
		YAMLKey:        "date",
		DateFormat:     "YYYY-MM-DD",
		HashtagPattern: "#event/YYYY/MM/DD",
	}, testutil.Logger())
	require.NoError(t, err)
	env := &syncEnv{dir: dir, vault: vault}
	env.sync = NewSynchronizer(NewStore(), vault, ext, testutil.Logger())
	env.sync.OnIndexChanged(func() { env.notices.Add(1) })
	return env
}

func (e *syncEnv) write(t *testing.T, rel, content string) models.Document {
	t.Helper()
	testutil.WriteNote(t, e.dir, rel, content)
	e.vault.Invalidate(rel)
	doc, err := e.vault.Stat(rel)
	require.NoError(t, err)
	return doc
}

func (e *syncEnv) changed(t *testing.T, doc models.Document) bool {
	t.Helper()
	fm, err := e.vault.Frontmatter(context.Background(), doc.Path)
	require.NoError(t, err)
	return e.sync.Changed(context.Background(), doc, fm)
}

func paths(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Source())
	}
	return out
}

func TestSync_RebuildIsIdempotent(t *testing.T) {
	for _, mode := range extract.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			env := newSyncEnv(t, mode)
			env.write(t, "2024-03-15.md", "---\ndate: 2024-03-16\n---\n#event/2024/03/17 a\n")
			env.write(t, "notes/plain.md", "no dates\n")
			env.write(t, "notes/2024-04-01 review.md", "#event/2024/04/02\n#event/2024/04/02 again\n")

			_, err := env.sync.Rebuild(context.Background())
			require.NoError(t, err)
			first := env.sync.Store().Snapshot()
			require.NotEmpty(t, first)

			sum, err := env.sync.Rebuild(context.Background())
			require.NoError(t, err)
			assert.Equal(t, first, env.sync.Store().Snapshot())
			assert.Equal(t, 3, sum.Documents)
			assert.Equal(t, mode, sum.Mode)
			assert.Equal(t, int32(2), env.notices.Load())
		})
	}
}

func TestSync_FilenameRoundTrip(t *testing.T) {
	env := newSyncEnv(t, extract.ModeFilename)
	ctx := context.Background()
	doc := env.write(t, "2024-03-15.md", "body")
	require.NoError(t, env.sync.InitialScanComplete(ctx))

	items := env.sync.ItemsForDay("2024-03-15")
	require.Len(t, items, 1)
	assert.Equal(t, models.NoteItem{DisplayName: "2024-03-15", Path: "2024-03-15.md"}, items[0])

	require.NoError(t, env.vault.Move(doc.Path, "not-a-date.md"))
	moved, err := env.vault.Stat("not-a-date.md")
	require.NoError(t, err)

	before := env.notices.Load()
	assert.True(t, env.sync.Renamed(ctx, moved, doc.Path))
	assert.Empty(t, env.sync.Store().Days())
	assert.Equal(t, before+1, env.notices.Load())

	require.NoError(t, env.vault.Move("not-a-date.md", "2024-03-20.md"))
	back, err := env.vault.Stat("2024-03-20.md")
	require.NoError(t, err)
	assert.True(t, env.sync.Renamed(ctx, back, "not-a-date.md"))
	assert.Equal(t, []string{"2024-03-20"}, env.sync.Store().Days())
}

func TestSync_FilenameCreateAndEdit(t *testing.T) {
	env := newSyncEnv(t, extract.ModeFilename)
	ctx := context.Background()

	doc := env.write(t, "2024-05-01.md", "x")
	assert.True(t, env.sync.Created(ctx, doc))
	assert.False(t, env.sync.Created(ctx, doc), "already indexed for that day")
	assert.Equal(t, 1, env.sync.Store().Len())

	doc = env.write(t, "2024-05-01.md", "edited")
	assert.False(t, env.changed(t, doc))

	other := env.write(t, "inbox.md", "x")
	assert.False(t, env.sync.Created(ctx, other))
	assert.Equal(t, int32(1), env.notices.Load())
}

func TestSync_TagCreateEditRename(t *testing.T) {
	env := newSyncEnv(t, extract.ModeTag)
	ctx := context.Background()

	doc := env.write(t, "todo/shopping.md", "# Shopping\n- #event/2025/09/14 Buy bread\n")
	assert.True(t, env.sync.Created(ctx, doc))
	items := env.sync.ItemsForDay("2025-09-14")
	require.Len(t, items, 1)
	assert.Equal(t, "[[shopping##event/2025/09/14|Buy bread]]", items[0].Label())

	// A second created event for the same document does not duplicate.
	assert.True(t, env.sync.Created(ctx, doc))
	assert.Len(t, env.sync.ItemsForDay("2025-09-14"), 1)

	doc = env.write(t, "todo/shopping.md", "#event/2025/09/15\n#event/2025/09/16 milk #event/2025/09/16 eggs\n")
	assert.True(t, env.changed(t, doc))
	assert.Nil(t, env.sync.ItemsForDay("2025-09-14"))
	assert.Len(t, env.sync.ItemsForDay("2025-09-15"), 1)
	assert.Len(t, env.sync.ItemsForDay("2025-09-16"), 2)

	require.NoError(t, env.vault.Move(doc.Path, "done/shopping.md"))
	moved, err := env.vault.Stat("done/shopping.md")
	require.NoError(t, err)
	assert.True(t, env.sync.Renamed(ctx, moved, doc.Path))
	for _, day := range env.sync.Store().Days() {
		for _, p := range paths(env.sync.ItemsForDay(day)) {
			assert.Equal(t, "done/shopping.md", p)
		}
	}
	assert.Equal(t, 3, env.sync.Store().Len())
}

func TestSync_DeletionPurgesEveryMode(t *testing.T) {
	for _, mode := range extract.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			env := newSyncEnv(t, mode)
			ctx := context.Background()
			env.write(t, "2024-03-15.md", "---\ndate: 2024-03-15\n---\n#event/2024/03/15 x\n#event/2024/03/18\n")
			env.write(t, "2024-03-18.md", "---\ndate: 2024-03-18\n---\n#event/2024/03/18 keep\n")
			_, err := env.sync.Rebuild(ctx)
			require.NoError(t, err)

			require.NoError(t, env.vault.Delete("2024-03-15.md"))
			assert.True(t, env.sync.Deleted(ctx, "2024-03-15.md"))
			for _, day := range env.sync.Store().Days() {
				assert.NotContains(t, paths(env.sync.ItemsForDay(day)), "2024-03-15.md")
			}
			assert.Equal(t, []string{"2024-03-18"}, env.sync.Store().Days())

			before := env.notices.Load()
			assert.False(t, env.sync.Deleted(ctx, "2024-03-15.md"))
			assert.Equal(t, before, env.notices.Load(), "no-op deletion is silent")
		})
	}
}

func TestSync_MetadataMovesBetweenDays(t *testing.T) {
	env := newSyncEnv(t, extract.ModeMetadata)
	ctx := context.Background()

	doc := env.write(t, "meeting.md", "---\ndate: 2024-01-10\n---\nnotes\n")
	assert.False(t, env.sync.Created(ctx, doc), "created is a no-op until metadata arrives")
	assert.Empty(t, env.sync.Store().Days())

	assert.True(t, env.changed(t, doc))
	assert.Equal(t, []string{"2024-01-10"}, env.sync.Store().Days())

	doc = env.write(t, "meeting.md", "---\ndate: 2024-01-12\n---\nnotes\n")
	assert.True(t, env.changed(t, doc))
	assert.Nil(t, env.sync.ItemsForDay("2024-01-10"))
	assert.Equal(t, []models.Item{models.NoteItem{DisplayName: "meeting", Path: "meeting.md"}},
		env.sync.ItemsForDay("2024-01-12"))
}

func TestSync_MetadataInvalidNeverInserted(t *testing.T) {
	env := newSyncEnv(t, extract.ModeMetadata)
	ctx := context.Background()

	env.write(t, "bad.md", "---\ndate: someday\n---\n")
	_, err := env.sync.Rebuild(ctx)
	require.NoError(t, err)
	assert.Empty(t, env.sync.Store().Days())

	doc := env.write(t, "bad.md", "---\ndate: 2024-13-45\n---\n")
	before := env.notices.Load()
	assert.False(t, env.changed(t, doc))
	assert.Empty(t, env.sync.Store().Days())
	assert.Equal(t, before, env.notices.Load())
}

func TestSync_MetadataRenameRelocatesInPlace(t *testing.T) {
	env := newSyncEnv(t, extract.ModeMetadata)
	ctx := context.Background()

	env.write(t, "a.md", "---\ndate: 2024-02-02\n---\n")
	env.write(t, "b.md", "---\ndate: 2024-02-02\n---\n")
	_, err := env.sync.Rebuild(ctx)
	require.NoError(t, err)
	order := paths(env.sync.ItemsForDay("2024-02-02"))

	require.NoError(t, env.vault.Move("a.md", "archive/a2.md"))
	moved, err := env.vault.Stat("archive/a2.md")
	require.NoError(t, err)
	assert.True(t, env.sync.Renamed(ctx, moved, "a.md"))

	got := paths(env.sync.ItemsForDay("2024-02-02"))
	require.Len(t, got, 2)
	for i, p := range order {
		if p == "a.md" {
			assert.Equal(t, "archive/a2.md", got[i], "position kept")
		}
	}
	assert.False(t, env.sync.Renamed(ctx, moved, "never-indexed.md"))
}

func TestSync_SetModeRebuilds(t *testing.T) {
	env := newSyncEnv(t, extract.ModeFilename)
	ctx := context.Background()
	env.write(t, "2024-03-15.md", "#event/2024/06/01 party\n")
	require.NoError(t, env.sync.InitialScanComplete(ctx))
	assert.Equal(t, []string{"2024-03-15"}, env.sync.Store().Days())

	sum, err := env.sync.SetMode(ctx, extract.ModeTag)
	require.NoError(t, err)
	assert.Equal(t, extract.ModeTag, sum.Mode)
	assert.Equal(t, extract.ModeTag, env.sync.Mode())
	assert.Equal(t, []string{"2024-06-01"}, env.sync.Store().Days())

	_, err = env.sync.SetMode(ctx, "calendar")
	assert.ErrorIs(t, err, apperr.ErrInvalidMode)
	assert.Equal(t, extract.ModeTag, env.sync.Mode())
}

func TestSync_LayoutReadyPicksUpLateFiles(t *testing.T) {
	env := newSyncEnv(t, extract.ModeFilename)
	ctx := context.Background()
	env.write(t, "2024-01-01.md", "")
	require.NoError(t, env.sync.InitialScanComplete(ctx))

	env.write(t, "2024-01-02.md", "")
	require.NoError(t, env.sync.LayoutReady(ctx))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, env.sync.Store().Days())
	assert.Equal(t, 2, env.sync.LastRebuild().Documents)
}

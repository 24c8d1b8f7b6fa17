package workspace

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/service/workspace/convert"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImporter(t *testing.T) (*NodeStore, *Importer) {
	t.Helper()
	store, tracker := newTestTracker(t)
	return store, NewImporter(tracker, convert.NewRegistry(), newTestLogger())
}

func upload(name, content string) UploadedFile {
	return UploadedFile{Filename: name, Content: strings.NewReader(content)}
}

func zipUpload(t *testing.T, name string, entries map[string]string, order ...string) UploadedFile {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, path := range order {
		w, err := zw.Create(path)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[path]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return UploadedFile{Filename: name, Content: &buf}
}

func fileContent(t *testing.T, store *NodeStore, id string) *models.FileBody {
	t.Helper()
	node, err := store.Read(id)
	require.NoError(t, err)
	file, ok := node.File()
	require.True(t, ok)
	return file
}

func TestImporter_LooseFiles(t *testing.T) {
	store, im := newTestImporter(t)

	result, err := im.Import(context.Background(), []UploadedFile{
		upload("chapter.md", "# One\n\nIt begins"),
		upload("notes.txt", "loose notes"),
		upload("page.html", "<p>Hello <em>there</em></p>"),
		upload("cover.png", "\x89PNG"),
	}, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, ImportSummary{Created: 3, Skipped: 1, TotalFiles: 4}, result.Summary)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Files, 3)
	assert.Equal(t, "chapter", result.Files[0].Name)
	assert.Equal(t, "chapter", result.Files[0].Path)
	assert.Equal(t, ImportCreated, result.Files[0].Action)

	file := fileContent(t, store, result.Files[0].ID)
	assert.Equal(t, "# One\n\nIt begins", file.Content)
	assert.Equal(t, 4, file.Metadata.WordCount)

	html := fileContent(t, store, result.Files[2].ID)
	assert.Contains(t, html.Content, "Hello")
	assert.Contains(t, html.Content, "there")
	assert.NotContains(t, html.Content, "<em>")
}

func TestImporter_IntoFolder(t *testing.T) {
	store, im := newTestImporter(t)
	buildTree(t, store)

	result, err := im.Import(context.Background(), []UploadedFile{upload("ch2.md", "two")}, ImportOptions{ParentID: ptr("n2")})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "Book/Part/ch2", result.Files[0].Path)

	for _, target := range []string{"n3", "ghost"} {
		_, err := im.Import(context.Background(), nil, ImportOptions{ParentID: ptr(target)})
		assert.ErrorIs(t, err, domain.ErrInvalidParent, target)
	}
}

func TestImporter_Zip(t *testing.T) {
	store, im := newTestImporter(t)
	existing := mustCreate(t, store, nil, "Book", models.NodeTypeFolder)

	archive := zipUpload(t, "book.zip", map[string]string{
		"Book/Part/ch1.md":       "chapter one",
		"Book/notes.md":          "notes",
		"../escape.md":           "flattened",
		"__MACOSX/Book/._ch1.md": "junk",
		"Book/.DS_Store":         "junk",
		"Book/image.jpg":         "jpg",
	}, "Book/Part/ch1.md", "Book/notes.md", "../escape.md", "__MACOSX/Book/._ch1.md", "Book/.DS_Store", "Book/image.jpg")

	result, err := im.Import(context.Background(), []UploadedFile{archive}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Created: 3, Skipped: 1, TotalFiles: 4}, result.Summary)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"Book/Part/ch1", "Book/notes", "escape"}, paths)

	book, err := store.Read(existing)
	require.NoError(t, err)
	assert.Equal(t, "Book", book.Name)
	roots := NewTreeQuery(store).RootNodes()
	assert.Len(t, roots, 2, "existing Book folder is reused")
}

func TestImporter_ExistingFiles(t *testing.T) {
	ctx := context.Background()
	store, im := newTestImporter(t)

	first, err := im.Import(ctx, []UploadedFile{upload("draft.md", "old words")}, ImportOptions{})
	require.NoError(t, err)
	id := first.Files[0].ID

	t.Run("skipped by default", func(t *testing.T) {
		result, err := im.Import(ctx, []UploadedFile{upload("draft.md", "new text here")}, ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Summary.Skipped)
		assert.Equal(t, ImportSkipped, result.Files[0].Action)
		assert.Equal(t, "old words", fileContent(t, store, id).Content)
	})

	t.Run("overwrite", func(t *testing.T) {
		result, err := im.Import(ctx, []UploadedFile{upload("draft.md", "new text here")}, ImportOptions{Overwrite: true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Summary.Updated)
		assert.Equal(t, id, result.Files[0].ID)

		file := fileContent(t, store, id)
		assert.Equal(t, "new text here", file.Content)
		assert.Equal(t, 3, file.Metadata.WordCount)
	})

	assert.Equal(t, 1, store.Len())
}

func TestImporter_Failures(t *testing.T) {
	_, im := newTestImporter(t)

	result, err := im.Import(context.Background(), []UploadedFile{
		upload("broken.zip", "not a zip"),
		upload("binary.txt", "\xff\xfe\x00"),
		upload(".md", "no name"),
		upload("fine.md", "ok"),
	}, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, ImportSummary{Created: 1, Failed: 3, TotalFiles: 4}, result.Summary)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "broken.zip", result.Errors[0].File)
	assert.Equal(t, "binary.txt", result.Errors[1].File)
}

func TestImporter_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, tracker := newTestTracker(t)
	buildTree(t, src)
	_, err := tracker.ApplyContent("n3", "It was a dark night")
	require.NoError(t, err)

	var buf bytes.Buffer
	name, err := NewExporter(src, newTestLogger()).Export(ctx, "n1", &buf, ExportOptions{})
	require.NoError(t, err)

	dst, im := newTestImporter(t)
	result, err := im.Import(ctx, []UploadedFile{{Filename: name, Content: &buf}}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Created)

	var ch1 string
	for _, f := range result.Files {
		if f.Path == "Book/Part/ch1" {
			ch1 = f.ID
		}
	}
	require.NotEmpty(t, ch1)
	assert.Equal(t, "It was a dark night", fileContent(t, dst, ch1).Content)
}

func TestImporter_Cancelled(t *testing.T) {
	store, im := newTestImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := im.Import(ctx, []UploadedFile{upload("a.md", "x")}, ImportOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
}

package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs yields n1, n2, ... so tests can name nodes up front
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func newTestStore(t *testing.T) *NodeStore {
	t.Helper()
	return NewNodeStore(newTestLogger(),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
	)
}

func ptr(s string) *string { return &s }

func mustCreate(t *testing.T, s *NodeStore, parent *string, name string, typ models.NodeType) string {
	t.Helper()
	id, err := s.Create(parent, name, typ)
	require.NoError(t, err)
	return id
}

// buildTree creates:
//
//	Book/          (n1)
//	  Part/        (n2)
//	    ch1.md     (n3)
//	  notes.md     (n4)
//	loose.md       (n5)
func buildTree(t *testing.T, s *NodeStore) {
	t.Helper()
	book := mustCreate(t, s, nil, "Book", models.NodeTypeFolder)
	part := mustCreate(t, s, &book, "Part", models.NodeTypeFolder)
	mustCreate(t, s, &part, "ch1", models.NodeTypeFile)
	mustCreate(t, s, &book, "notes", models.NodeTypeFile)
	mustCreate(t, s, nil, "loose", models.NodeTypeFile)
}

func TestNodeStore_Create(t *testing.T) {
	s := newTestStore(t)
	folder := mustCreate(t, s, nil, "Drafts", models.NodeTypeFolder)

	tests := []struct {
		name     string
		parent   *string
		nodeName string
		typ      models.NodeType
		wantName string
		wantErr  error
	}{
		{name: "root file", nodeName: "Intro", typ: models.NodeTypeFile, wantName: "Intro"},
		{name: "file in folder", parent: &folder, nodeName: "Ch1", typ: models.NodeTypeFile, wantName: "Ch1"},
		{name: "trims whitespace", nodeName: "  Spaced  ", typ: models.NodeTypeFolder, wantName: "Spaced"},
		{name: "composes to NFC", nodeName: "Cafe\u0301", typ: models.NodeTypeFile, wantName: "Caf\u00e9"},
		{name: "empty name", nodeName: "", typ: models.NodeTypeFile, wantErr: domain.ErrInvalidName},
		{name: "whitespace name", nodeName: " \t ", typ: models.NodeTypeFile, wantErr: domain.ErrInvalidName},
		{name: "missing parent", parent: ptr("ghost"), nodeName: "x", typ: models.NodeTypeFile, wantErr: domain.ErrInvalidParent},
		{name: "unknown type", nodeName: "x", typ: "symlink", wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Len()
			id, err := s.Create(tt.parent, tt.nodeName, tt.typ)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, s.Len())
				return
			}
			require.NoError(t, err)

			node, err := s.Read(id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, node.Name)
			assert.Equal(t, tt.typ, node.Type())
			assert.Equal(t, tt.parent, node.ParentID)
			assert.Equal(t, testNow.UnixMilli(), node.CreatedAt.Millis())
			assert.Equal(t, node.CreatedAt, node.UpdatedAt)
		})
	}
}

func TestNodeStore_CreateFileDefaults(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, nil, "a", models.NodeTypeFile)

	node, err := s.Read(id)
	require.NoError(t, err)
	file, ok := node.File()
	require.True(t, ok)
	assert.Empty(t, file.Content)
	assert.Equal(t, models.DefaultMetadata(), file.Metadata)
}

func TestNodeStore_CreateUnderFile(t *testing.T) {
	s := newTestStore(t)
	file := mustCreate(t, s, nil, "a", models.NodeTypeFile)

	_, err := s.Create(&file, "child", models.NodeTypeFile)
	assert.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestNodeStore_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)
	require.NoError(t, s.Open(ptr("n3")))

	var events []ChangeEvent
	s.Subscribe(func(ev ChangeEvent) { events = append(events, ev) })

	require.NoError(t, s.Delete("n1"))

	assert.Equal(t, 1, s.Len())
	for _, id := range []string{"n1", "n2", "n3", "n4"} {
		_, err := s.Read(id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
	assert.Nil(t, s.ActiveFileID(), "active file inside the subtree is closed")

	require.Len(t, events, 1)
	assert.Equal(t, OpDeleted, events[0].Op)
	assert.ElementsMatch(t, []string{"n1", "n2", "n3", "n4"}, events[0].IDs)
}

func TestNodeStore_DeleteMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var nodeErr *domain.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "delete", nodeErr.Op)
	assert.Equal(t, "ghost", nodeErr.ID)
}

func TestNodeStore_DeletedIDsAreNotReused(t *testing.T) {
	ids := []string{"a", "a", "b"}
	s := NewNodeStore(newTestLogger(), WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	first := mustCreate(t, s, nil, "one", models.NodeTypeFile)
	require.Equal(t, "a", first)
	require.NoError(t, s.Delete(first))

	second := mustCreate(t, s, nil, "two", models.NodeTypeFile)
	assert.Equal(t, "b", second)
}

func TestNodeStore_Rename(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, nil, "Old", models.NodeTypeFile)

	require.NoError(t, s.Rename(id, "  New  "))
	node, _ := s.Read(id)
	assert.Equal(t, "New", node.Name)

	err := s.Rename(id, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	node, _ = s.Read(id)
	assert.Equal(t, "New", node.Name, "rejected rename keeps the name")

	assert.ErrorIs(t, s.Rename("ghost", "x"), domain.ErrNotFound)
}

func TestNodeStore_Move(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		target     *string
		wantErr    error
		wantParent *string
	}{
		{name: "file to root", id: "n3", target: nil, wantParent: nil},
		{name: "file to other folder", id: "n4", target: ptr("n2"), wantParent: ptr("n2")},
		{name: "folder to root", id: "n2", target: nil, wantParent: nil},
		{name: "same parent is a no-op", id: "n3", target: ptr("n2"), wantParent: ptr("n2")},
		{name: "missing node", id: "ghost", target: nil, wantErr: domain.ErrNotFound},
		{name: "into itself", id: "n1", target: ptr("n1"), wantErr: domain.ErrCycleDetected},
		{name: "into own descendant", id: "n1", target: ptr("n2"), wantErr: domain.ErrCycleDetected},
		{name: "missing target", id: "n3", target: ptr("ghost"), wantErr: domain.ErrInvalidParent},
		{name: "under a file", id: "n3", target: ptr("n5"), wantErr: domain.ErrInvalidParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			buildTree(t, s)
			rev := s.Revision()

			err := s.Move(tt.id, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, rev, s.Revision(), "failed move changes nothing")
				return
			}
			require.NoError(t, err)

			node, err := s.Read(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantParent, node.ParentID)
		})
	}
}

func TestNodeStore_MoveSameParentDoesNotNotify(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)

	calls := 0
	s.Subscribe(func(ChangeEvent) { calls++ })
	rev := s.Revision()

	require.NoError(t, s.Move("n4", ptr("n1")))
	assert.Zero(t, calls)
	assert.Equal(t, rev, s.Revision())
}

func TestNodeStore_UpdateContent(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)

	require.NoError(t, s.UpdateContent("n3", "Once upon a time"))
	node, _ := s.Read("n3")
	file, _ := node.File()
	assert.Equal(t, "Once upon a time", file.Content)
	assert.Zero(t, file.Metadata.WordCount, "word count is the tracker's job")

	assert.ErrorIs(t, s.UpdateContent("n1", "x"), domain.ErrWrongType)
	assert.ErrorIs(t, s.UpdateContent("ghost", "x"), domain.ErrNotFound)
}

func TestNodeStore_UpdateMetadata(t *testing.T) {
	deadline := models.NewTimestamp(testNow.Add(72 * time.Hour))

	tests := []struct {
		name    string
		patch   models.MetadataPatch
		check   func(t *testing.T, m models.Metadata)
		wantErr error
	}{
		{
			name:  "set status",
			patch: models.MetadataPatch{Status: models.Set(models.StatusCompleted)},
			check: func(t *testing.T, m models.Metadata) {
				assert.Equal(t, models.StatusCompleted, m.Status)
				assert.Equal(t, 7, *m.TargetWordCount, "other fields untouched")
			},
		},
		{
			name:  "clear target",
			patch: models.MetadataPatch{TargetWordCount: models.Clear[int]()},
			check: func(t *testing.T, m models.Metadata) {
				assert.Nil(t, m.TargetWordCount)
			},
		},
		{
			name:  "set deadline",
			patch: models.MetadataPatch{Deadline: models.Set(deadline)},
			check: func(t *testing.T, m models.Metadata) {
				require.NotNil(t, m.Deadline)
				assert.Equal(t, deadline.Millis(), m.Deadline.Millis())
			},
		},
		{
			name:  "null status is ignored",
			patch: models.MetadataPatch{Status: models.Clear[models.Status]()},
			check: func(t *testing.T, m models.Metadata) {
				assert.Equal(t, models.StatusBrainstorming, m.Status)
			},
		},
		{name: "unknown status", patch: models.MetadataPatch{Status: models.Set(models.Status("done"))}, wantErr: domain.ErrValidation},
		{name: "empty status", patch: models.MetadataPatch{Status: models.Set(models.Status(""))}, wantErr: domain.ErrValidation},
		{name: "zero target", patch: models.MetadataPatch{TargetWordCount: models.Set(0)}, wantErr: domain.ErrValidation},
		{name: "negative word count", patch: models.MetadataPatch{WordCount: models.Set(-1)}, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			id := mustCreate(t, s, nil, "a", models.NodeTypeFile)
			require.NoError(t, s.UpdateMetadata(id, models.MetadataPatch{TargetWordCount: models.Set(7)}))

			err := s.UpdateMetadata(id, tt.patch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			node, _ := s.Read(id)
			file, _ := node.File()
			tt.check(t, file.Metadata)
		})
	}
}

func TestNodeStore_UpdateMetadataOnFolder(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, nil, "dir", models.NodeTypeFolder)

	err := s.UpdateMetadata(id, models.MetadataPatch{Status: models.Set(models.StatusWriting)})
	assert.ErrorIs(t, err, domain.ErrWrongType)
}

func TestNodeStore_Open(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)

	require.NoError(t, s.Open(ptr("n3")))
	assert.Equal(t, "n3", *s.ActiveFileID())

	assert.ErrorIs(t, s.Open(ptr("n1")), domain.ErrWrongType)
	assert.ErrorIs(t, s.Open(ptr("ghost")), domain.ErrNotFound)
	assert.Equal(t, "n3", *s.ActiveFileID(), "failed open keeps the active file")

	require.NoError(t, s.Open(nil))
	assert.Nil(t, s.ActiveFileID())
}

func TestNodeStore_ReadReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, nil, "a", models.NodeTypeFile)

	node, _ := s.Read(id)
	node.Name = "mutated"
	file, _ := node.File()
	file.Content = "mutated"

	again, _ := s.Read(id)
	assert.Equal(t, "a", again.Name)
	againFile, _ := again.File()
	assert.Empty(t, againFile.Content)
}

func TestNodeStore_ListInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)

	var ids []string
	for _, n := range s.List() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "n5"}, ids)
}

func TestNodeStore_Subscribe(t *testing.T) {
	s := newTestStore(t)

	var order []string
	unsubA := s.Subscribe(func(ev ChangeEvent) { order = append(order, "a:"+string(ev.Op)) })
	s.Subscribe(func(ev ChangeEvent) { order = append(order, "b:"+string(ev.Op)) })

	id := mustCreate(t, s, nil, "x", models.NodeTypeFile)
	unsubA()
	require.NoError(t, s.Rename(id, "y"))

	assert.Equal(t, []string{"a:created", "b:created", "b:renamed"}, order)
	assert.Equal(t, uint64(2), s.Revision())
}

func TestNodeStore_SubscriberMayRead(t *testing.T) {
	s := newTestStore(t)

	var seen string
	s.Subscribe(func(ev ChangeEvent) {
		node, err := s.Read(ev.IDs[0])
		if err == nil {
			seen = node.Name
		}
	})

	mustCreate(t, s, nil, "visible", models.NodeTypeFile)
	assert.Equal(t, "visible", seen)
}

func TestNodeStore_Replace(t *testing.T) {
	s := newTestStore(t)
	buildTree(t, s)
	snap := s.Snapshot()

	t.Run("invalid snapshot leaves store unchanged", func(t *testing.T) {
		bad := snap.Clone()
		bad.Files["n1"].ParentID = ptr("n2") // n1 -> n2 -> n1

		err := s.Replace(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
		assert.Equal(t, 5, s.Len())
		n1, _ := s.Read("n1")
		assert.Nil(t, n1.ParentID)
	})

	t.Run("valid snapshot swaps the mapping", func(t *testing.T) {
		next := snap.Clone()
		delete(next.Files, "n5")
		next.ActiveFileID = ptr("n5")

		require.NoError(t, s.Replace(next))
		assert.Equal(t, 4, s.Len())
		assert.Nil(t, s.ActiveFileID(), "dangling active file is cleared")
	})

	t.Run("reset empties", func(t *testing.T) {
		require.NoError(t, s.Reset())
		assert.Zero(t, s.Len())
	})
}

func TestValidateSnapshot(t *testing.T) {
	now := models.NewTimestamp(testNow)
	folder := func(id string, parent *string) *models.FileNode { return models.NewFolder(id, parent, id, now) }
	file := func(id string, parent *string) *models.FileNode { return models.NewFile(id, parent, id, now) }

	tests := []struct {
		name    string
		files   map[string]*models.FileNode
		wantErr bool
	}{
		{name: "empty", files: map[string]*models.FileNode{}},
		{name: "nested", files: map[string]*models.FileNode{"a": folder("a", nil), "b": file("b", ptr("a"))}},
		{name: "key mismatch", files: map[string]*models.FileNode{"a": folder("z", nil)}, wantErr: true},
		{name: "null node", files: map[string]*models.FileNode{"a": nil}, wantErr: true},
		{name: "missing parent", files: map[string]*models.FileNode{"b": file("b", ptr("a"))}, wantErr: true},
		{name: "file parent", files: map[string]*models.FileNode{"a": file("a", nil), "b": file("b", ptr("a"))}, wantErr: true},
		{name: "self parent", files: map[string]*models.FileNode{"a": folder("a", ptr("a"))}, wantErr: true},
		{
			name:    "empty name",
			files:   map[string]*models.FileNode{"a": models.NewFile("a", nil, " ", now)},
			wantErr: true,
		},
		{
			name:    "name too long",
			files:   map[string]*models.FileNode{"a": models.NewFile("a", nil, strings.Repeat("x", config.MaxNodeNameLength+1), now)},
			wantErr: true,
		},
		{
			name:    "negative word count",
			files:   map[string]*models.FileNode{"a": withMetadata(file("a", nil), func(m *models.Metadata) { m.WordCount = -7 })},
			wantErr: true,
		},
		{
			name:    "zero target",
			files:   map[string]*models.FileNode{"a": withMetadata(file("a", nil), func(m *models.Metadata) { m.TargetWordCount = ptrInt(0) })},
			wantErr: true,
		},
		{
			name:    "negative target",
			files:   map[string]*models.FileNode{"a": withMetadata(file("a", nil), func(m *models.Metadata) { m.TargetWordCount = ptrInt(-3) })},
			wantErr: true,
		},
		{
			name:    "unknown status",
			files:   map[string]*models.FileNode{"a": withMetadata(file("a", nil), func(m *models.Metadata) { m.Status = "done" })},
			wantErr: true,
		},
		{
			name:  "valid target",
			files: map[string]*models.FileNode{"a": withMetadata(file("a", nil), func(m *models.Metadata) { m.TargetWordCount = ptrInt(500) })},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSnapshot(models.Snapshot{Files: tt.files})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func ptrInt(v int) *int { return &v }

// withMetadata edits the metadata of a file node in place
func withMetadata(n *models.FileNode, edit func(*models.Metadata)) *models.FileNode {
	f, _ := n.File()
	edit(&f.Metadata)
	return n
}

func TestValidateSnapshot_NormalizesNames(t *testing.T) {
	now := models.NewTimestamp(testNow)
	snap := models.Snapshot{Files: map[string]*models.FileNode{
		"a": models.NewFile("a", nil, "  Cafe\u0301 ", now),
	}}

	valid, err := ValidateSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", valid.Files["a"].Name)
	assert.Equal(t, "  Cafe\u0301 ", snap.Files["a"].Name, "input is not modified")
}

func TestNodeStore_RandomCreateMoveStaysAcyclic(t *testing.T) {
	s := newTestStore(t)
	rng := rand.New(rand.NewSource(42))

	var ids []string
	pick := func() *string {
		if len(ids) == 0 || rng.Intn(4) == 0 {
			return nil
		}
		id := ids[rng.Intn(len(ids))]
		return &id
	}

	moves, rejected := 0, 0
	for step := 0; step < 400; step++ {
		if len(ids) < 5 || rng.Intn(3) == 0 {
			nodeType := models.NodeTypeFolder
			if rng.Intn(3) == 0 {
				nodeType = models.NodeTypeFile
			}
			id, err := s.Create(pick(), fmt.Sprintf("node-%d", step), nodeType)
			if err == nil {
				ids = append(ids, id)
			} else {
				require.ErrorIs(t, err, domain.ErrInvalidParent, "step %d", step)
			}
		} else {
			id := ids[rng.Intn(len(ids))]
			if err := s.Move(id, pick()); err != nil {
				require.True(t,
					errors.Is(err, domain.ErrCycleDetected) || errors.Is(err, domain.ErrInvalidParent),
					"step %d: unexpected error %v", step, err)
				rejected++
			} else {
				moves++
			}
		}

		s.mu.RLock()
		for id := range s.nodes {
			if hasCycle(s.nodes, id) {
				s.mu.RUnlock()
				t.Fatalf("step %d: node %s is its own ancestor", step, id)
			}
		}
		s.mu.RUnlock()
	}

	assert.Positive(t, moves)
	assert.Positive(t, rejected)
}

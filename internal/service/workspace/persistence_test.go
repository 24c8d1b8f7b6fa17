package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"writeflow/internal/config"
	"writeflow/internal/dialog"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/repository/memory"
	"writeflow/internal/service/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type testEnv struct {
	kv          *memory.KVStore
	store       *NodeStore
	tracker     *Tracker
	settings    *settings.Service
	persistence *Persistence
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := memory.NewKVStore()
	store := newTestStore(t)
	svc := settings.NewService(kv, newTestLogger())
	return &testEnv{
		kv:          kv,
		store:       store,
		tracker:     NewTracker(store, newTestLogger()),
		settings:    svc,
		persistence: NewPersistence(store, svc, kv, newTestLogger()),
	}
}

// failingKV rejects every write
type failingKV struct {
	*memory.KVStore
}

func (failingKV) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestPersistence_LoadMissingKey(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.persistence.Load(context.Background()))
	assert.Zero(t, env.store.Len())
}

func TestPersistence_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.kv.Put(ctx, config.WorkspaceKey, []byte("{not json")))

	err := env.persistence.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
}

func TestPersistence_AutosaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.persistence.StartAutosave()
	defer env.persistence.StopAutosave()

	buildTree(t, env.store)
	_, err := env.tracker.ApplyContent("n3", "It was a dark night")
	require.NoError(t, err)
	require.NoError(t, env.store.Open(ptr("n3")))

	data, err := env.kv.Get(ctx, config.WorkspaceKey)
	require.NoError(t, err)
	assert.Equal(t, "n3", gjson.GetBytes(data, "activeFileId").String())
	assert.Equal(t, "file", gjson.GetBytes(data, "files.n3.type").String())
	assert.Equal(t, "n2", gjson.GetBytes(data, "files.n3.parentId").String())
	assert.Equal(t, int64(5), gjson.GetBytes(data, "files.n3.metadata.wordCount").Int())
	assert.False(t, gjson.GetBytes(data, "files.n1.content").Exists(), "folders carry no content")

	// A fresh store loads the same mapping
	other := newTestStore(t)
	p := NewPersistence(other, env.settings, env.kv, newTestLogger())
	require.NoError(t, p.Load(ctx))

	assert.Equal(t, env.store.Len(), other.Len())
	assert.Equal(t, "n3", *other.ActiveFileID())
	node, err := other.Read("n3")
	require.NoError(t, err)
	file, _ := node.File()
	assert.Equal(t, "It was a dark night", file.Content)

	var ids []string
	for _, n := range other.List() {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"n1", "n2", "n3", "n4", "n5"}, ids)
}

func TestPersistence_StopAutosave(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.persistence.StartAutosave()
	env.persistence.StopAutosave()

	mustCreate(t, env.store, nil, "unsaved", models.NodeTypeFile)

	_, err := env.kv.Get(ctx, config.WorkspaceKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.persistence.Save(ctx))
	_, err = env.kv.Get(ctx, config.WorkspaceKey)
	assert.NoError(t, err)
}

func TestPersistence_AutosaveFailureDoesNotFailMutation(t *testing.T) {
	kv := failingKV{memory.NewKVStore()}
	store := newTestStore(t)
	svc := settings.NewService(kv, newTestLogger())
	p := NewPersistence(store, svc, kv, newTestLogger())
	p.StartAutosave()
	defer p.StopAutosave()

	id, err := store.Create(nil, "still here", models.NodeTypeFile)
	require.NoError(t, err)
	_, err = store.Read(id)
	assert.NoError(t, err)

	assert.Error(t, p.Save(context.Background()))
}

func TestParseBackup(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "minimal", doc: `{"files":{},"settings":{}}`},
		{name: "full", doc: `{"version":1,"timestamp":1700000000000,"files":{},"settings":{"modelConfigs":[],"promptTemplates":[],"chatHistory":[]}}`},
		{name: "not json", doc: `nope`, wantErr: true},
		{name: "array", doc: `[]`, wantErr: true},
		{name: "missing files", doc: `{"settings":{}}`, wantErr: true},
		{name: "null files", doc: `{"files":null,"settings":{}}`, wantErr: true},
		{name: "missing settings", doc: `{"files":{}}`, wantErr: true},
		{name: "future version", doc: `{"version":2,"files":{},"settings":{}}`, wantErr: true},
		{name: "files not an object", doc: `{"files":[1],"settings":{}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBackup([]byte(tt.doc))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPersistence_ExportImportBackup(t *testing.T) {
	ctx := context.Background()
	src := newTestEnv(t)
	buildTree(t, src.store)
	_, err := src.tracker.ApplyContent("n4", "some notes here")
	require.NoError(t, err)
	_, err = src.settings.AddChatMessage(ctx, "Polish", "in", "out")
	require.NoError(t, err)

	data, ts, err := src.persistence.ExportBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), ts.Millis())
	assert.Equal(t, "writeflow-backup-2025-03-01.json", BackupFilename(ts))
	assert.Equal(t, int64(1), gjson.GetBytes(data, "version").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "settings.chatHistory.#").Int())

	dst := newTestEnv(t)
	mustCreate(t, dst.store, nil, "to be replaced", models.NodeTypeFile)
	confirm := dialog.Approve(true)

	require.NoError(t, dst.persistence.ImportBackup(ctx, data, confirm))
	assert.Equal(t, []string{"Restore backup"}, confirm.Asked)
	assert.Equal(t, 5, dst.store.Len())

	node, err := dst.store.Read("n4")
	require.NoError(t, err)
	file, _ := node.File()
	assert.Equal(t, "some notes here", file.Content)
	assert.Equal(t, 3, file.Metadata.WordCount)
	assert.Len(t, dst.settings.Get().ChatHistory, 1)

	// Every node comes back with the same fields
	want := src.store.Snapshot().Files
	got := dst.store.Snapshot().Files
	require.Len(t, got, len(want))
	for id, w := range want {
		g, ok := got[id]
		require.True(t, ok, id)
		assert.Equal(t, w.Name, g.Name, id)
		assert.Equal(t, w.ParentID, g.ParentID, id)
		assert.Equal(t, w.CreatedAt.Millis(), g.CreatedAt.Millis(), id)
		assert.Equal(t, w.UpdatedAt.Millis(), g.UpdatedAt.Millis(), id)
		assert.Equal(t, w.Type(), g.Type(), id)
		assert.Equal(t, w.Body, g.Body, id)
	}
}

func TestPersistence_ImportDeclined(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mustCreate(t, env.store, nil, "keep me", models.NodeTypeFile)

	doc := `{"version":1,"files":{},"settings":{}}`
	err := env.persistence.ImportBackup(ctx, []byte(doc), dialog.Approve(false))
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 1, env.store.Len())
}

func TestPersistence_ImportInvalidNeverAsks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mustCreate(t, env.store, nil, "keep me", models.NodeTypeFile)

	docs := map[string]string{
		"missing parent": `{"files":{"a":{"id":"a","type":"file","parentId":"ghost","name":"a","content":"","createdAt":0,"updatedAt":0,"metadata":{"wordCount":0,"status":"writing"}}},"settings":{}}`,
		"duplicate model ids": `{"files":{},"settings":{"modelConfigs":[` +
			`{"id":"m","name":"A","baseUrl":"https://a.example"},` +
			`{"id":"m","name":"B","baseUrl":"https://b.example"}]}}`,
		"no settings": `{"files":{}}`,
		"out of range metadata": `{"files":{"a":{"id":"a","type":"file","parentId":null,"name":"a","content":"","createdAt":0,"updatedAt":0,` +
			`"metadata":{"wordCount":-7,"status":"writing","targetWordCount":-3}}},"settings":{}}`,
		"zero target": `{"files":{"a":{"id":"a","type":"file","parentId":null,"name":"a","content":"","createdAt":0,"updatedAt":0,` +
			`"metadata":{"wordCount":0,"status":"writing","targetWordCount":0}}},"settings":{}}`,
		"blank name": `{"files":{"a":{"id":"a","type":"folder","parentId":null,"name":"  ","createdAt":0,"updatedAt":0}},"settings":{}}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			confirm := dialog.Approve(true)
			err := env.persistence.ImportBackup(ctx, []byte(doc), confirm)
			assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
			assert.Empty(t, confirm.Asked)
			assert.Equal(t, 1, env.store.Len())
		})
	}
}

func TestPersistence_ImportKeepsActiveFileWhenPresent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buildTree(t, env.store)
	require.NoError(t, env.store.Open(ptr("n3")))

	data, _, err := env.persistence.ExportBackup(ctx)
	require.NoError(t, err)
	require.NoError(t, env.persistence.ImportBackup(ctx, data, dialog.Approve(true)))
	assert.Equal(t, "n3", *env.store.ActiveFileID())
}

func TestPersistence_Reset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.persistence.StartAutosave()
	defer env.persistence.StopAutosave()

	buildTree(t, env.store)
	_, err := env.settings.AddChatMessage(ctx, "Polish", "in", "out")
	require.NoError(t, err)

	t.Run("declined", func(t *testing.T) {
		err := env.persistence.Reset(ctx, dialog.Approve(false))
		assert.ErrorIs(t, err, domain.ErrCancelled)
		assert.Equal(t, 5, env.store.Len())
	})

	t.Run("approved", func(t *testing.T) {
		require.NoError(t, env.persistence.Reset(ctx, dialog.Approve(true)))
		assert.Zero(t, env.store.Len())
		assert.Empty(t, env.settings.Get().ChatHistory)
		assert.Empty(t, env.kv.Keys())
	})
}

func TestSnapshotJSONShape(t *testing.T) {
	env := newTestEnv(t)
	buildTree(t, env.store)

	data, err := json.Marshal(env.store.Snapshot())
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(data, "revision").Exists())
	assert.True(t, gjson.GetBytes(data, "activeFileId").Exists())
	assert.Equal(t, "brainstorming", gjson.GetBytes(data, "files.n5.metadata.status").String())
	assert.Equal(t, testNow.UnixMilli(), gjson.GetBytes(data, "files.n5.createdAt").Int())
}

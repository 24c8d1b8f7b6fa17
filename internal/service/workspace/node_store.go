package workspace

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	"github.com/google/uuid"
)

// ChangeOp names the mutation behind a ChangeEvent
type ChangeOp string

const (
	OpCreated  ChangeOp = "created"
	OpDeleted  ChangeOp = "deleted"
	OpRenamed  ChangeOp = "renamed"
	OpMoved    ChangeOp = "moved"
	OpContent  ChangeOp = "content"
	OpMetadata ChangeOp = "metadata"
	OpOpened   ChangeOp = "opened"
	OpReplaced ChangeOp = "replaced"
)

// ChangeEvent is delivered to subscribers after every applied mutation.
type ChangeEvent struct {
	Op       ChangeOp
	IDs      []string // affected nodes; every removed id for deletes
	Revision uint64
}

// Option configures a NodeStore
type Option func(*NodeStore)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *NodeStore) { s.now = now }
}

// WithIDGenerator overrides id generation. Generated ids that collide with a
// live or retired id are discarded and drawn again.
func WithIDGenerator(gen func() string) Option {
	return func(s *NodeStore) { s.newID = gen }
}

type subscriber struct {
	id int
	fn func(ChangeEvent)
}

// NodeStore owns the id-to-node mapping. Mutations validate first and apply
// second under a single write lock, so a failed call leaves the mapping as it
// was. Subscribers are called synchronously, in subscription order, after the
// lock is released.
type NodeStore struct {
	mu           sync.RWMutex
	nodes        map[string]*models.FileNode
	seq          map[string]uint64 // insertion order
	nextSeq      uint64
	activeFileID *string
	retired      map[string]struct{} // ids never to hand out again
	revision     uint64

	subMu     sync.Mutex
	subs      []subscriber
	nextSubID int

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewNodeStore creates an empty store
func NewNodeStore(logger *slog.Logger, opts ...Option) *NodeStore {
	s := &NodeStore{
		nodes:   make(map[string]*models.FileNode),
		seq:     make(map[string]uint64),
		retired: make(map[string]struct{}),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for change events and returns its unsubscribe func.
func (s *NodeStore) Subscribe(fn func(ChangeEvent)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *NodeStore) notify(ev ChangeEvent) {
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// mutate runs fn under the write lock. fn returns the affected ids, or nil
// ids for a no-op; the revision only advances when something changed.
func (s *NodeStore) mutate(op ChangeOp, fn func() ([]string, error)) error {
	s.mu.Lock()
	ids, err := fn()
	if err != nil || ids == nil {
		s.mu.Unlock()
		return err
	}
	s.revision++
	ev := ChangeEvent{Op: op, IDs: ids, Revision: s.revision}
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

func (s *NodeStore) timestamp() models.Timestamp {
	return models.NewTimestamp(s.now())
}

// allocateID draws ids until one is neither live nor retired
func (s *NodeStore) allocateID() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, live := s.nodes[id]; live {
			continue
		}
		if _, used := s.retired[id]; used {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("id generator produced no fresh id")
}

func (s *NodeStore) insert(n *models.FileNode) {
	s.nextSeq++
	s.nodes[n.ID] = n
	s.seq[n.ID] = s.nextSeq
}

func (s *NodeStore) remove(id string) {
	delete(s.nodes, id)
	delete(s.seq, id)
	s.retired[id] = struct{}{}
	if s.activeFileID != nil && *s.activeFileID == id {
		s.activeFileID = nil
	}
}

// Create adds a node under parentID (nil = root) and returns its id.
func (s *NodeStore) Create(parentID *string, name string, nodeType models.NodeType) (string, error) {
	if !nodeType.Valid() {
		return "", domain.NewNodeError("create", "", fmt.Errorf("%w: unknown node type %q", domain.ErrValidation, nodeType))
	}

	name, err := NormalizeName(name)
	if err != nil {
		return "", domain.NewNodeError("create", "", err)
	}

	var id string
	err = s.mutate(OpCreated, func() ([]string, error) {
		var parent *string
		if parentID != nil {
			p, ok := s.nodes[*parentID]
			if !ok || !p.IsFolder() {
				return nil, domain.NewNodeError("create", *parentID, domain.ErrInvalidParent)
			}
			v := *parentID
			parent = &v
		}

		newID, err := s.allocateID()
		if err != nil {
			return nil, err
		}
		id = newID

		now := s.timestamp()
		if nodeType == models.NodeTypeFile {
			s.insert(models.NewFile(id, parent, name, now))
		} else {
			s.insert(models.NewFolder(id, parent, name, now))
		}
		return []string{id}, nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("node created",
		"id", id,
		"type", nodeType,
		"name", name,
		"parent", describeParent(parentID),
	)
	return id, nil
}

// Delete removes id and every transitive descendant.
func (s *NodeStore) Delete(id string) error {
	var removed []string
	err := s.mutate(OpDeleted, func() ([]string, error) {
		if _, ok := s.nodes[id]; !ok {
			return nil, domain.NewNodeError("delete", id, domain.ErrNotFound)
		}

		removed = append([]string{id}, descendants(s.nodes, s.seq, id)...)
		for _, rid := range removed {
			s.remove(rid)
		}
		return removed, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("node deleted", "id", id, "removed", len(removed))
	return nil
}

// Rename changes a node's name. Empty or whitespace-only names are rejected
// and the node keeps its name.
func (s *NodeStore) Rename(id, newName string) error {
	name, err := NormalizeName(newName)
	if err != nil {
		return domain.NewNodeError("rename", id, err)
	}

	return s.mutate(OpRenamed, func() ([]string, error) {
		node, ok := s.nodes[id]
		if !ok {
			return nil, domain.NewNodeError("rename", id, domain.ErrNotFound)
		}
		node.Name = name
		node.UpdatedAt = s.timestamp()
		return []string{id}, nil
	})
}

// Move reparents id under newParentID (nil = root). Moving to the current
// parent changes nothing.
func (s *NodeStore) Move(id string, newParentID *string) error {
	return s.mutate(OpMoved, func() ([]string, error) {
		node, ok := s.nodes[id]
		if !ok {
			return nil, domain.NewNodeError("move", id, domain.ErrNotFound)
		}

		if newParentID != nil {
			target := *newParentID
			if target == id {
				return nil, domain.NewNodeError("move", id, fmt.Errorf("%w: cannot move a node into itself", domain.ErrCycleDetected))
			}
			parent, ok := s.nodes[target]
			if !ok {
				return nil, domain.NewNodeError("move", target, domain.ErrInvalidParent)
			}
			// Cannot move a folder into its own subtree
			if isDescendant(s.nodes, id, target) {
				return nil, domain.NewNodeError("move", id, fmt.Errorf("%w: %q is inside %q", domain.ErrCycleDetected, target, id))
			}
			if !parent.IsFolder() {
				return nil, domain.NewNodeError("move", target, fmt.Errorf("%w: parent is a file", domain.ErrInvalidParent))
			}
		}

		if sameParent(node.ParentID, newParentID) {
			return nil, nil
		}

		if newParentID == nil {
			node.ParentID = nil
		} else {
			v := *newParentID
			node.ParentID = &v
		}
		node.UpdatedAt = s.timestamp()
		return []string{id}, nil
	})
}

// UpdateContent replaces a file's content. The word count is left as is;
// Tracker.ApplyContent does both.
func (s *NodeStore) UpdateContent(id, content string) error {
	return s.mutate(OpContent, func() ([]string, error) {
		file, err := s.fileBody("update content", id)
		if err != nil {
			return nil, err
		}
		file.Content = content
		s.nodes[id].UpdatedAt = s.timestamp()
		return []string{id}, nil
	})
}

// UpdateMetadata merges patch into a file's metadata.
func (s *NodeStore) UpdateMetadata(id string, patch models.MetadataPatch) error {
	if err := validateMetadataPatch(patch); err != nil {
		return domain.NewNodeError("update metadata", id, err)
	}

	return s.mutate(OpMetadata, func() ([]string, error) {
		file, err := s.fileBody("update metadata", id)
		if err != nil {
			return nil, err
		}
		file.Metadata = patch.Apply(file.Metadata)
		s.nodes[id].UpdatedAt = s.timestamp()
		return []string{id}, nil
	})
}

func (s *NodeStore) fileBody(op, id string) (*models.FileBody, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, domain.NewNodeError(op, id, domain.ErrNotFound)
	}
	file, ok := node.File()
	if !ok {
		return nil, domain.NewNodeError(op, id, fmt.Errorf("%w: %q is a folder", domain.ErrWrongType, node.Name))
	}
	return file, nil
}

// Open marks a file as the one being edited; nil clears it.
func (s *NodeStore) Open(id *string) error {
	return s.mutate(OpOpened, func() ([]string, error) {
		if id == nil {
			if s.activeFileID == nil {
				return nil, nil
			}
			prev := *s.activeFileID
			s.activeFileID = nil
			return []string{prev}, nil
		}

		if _, err := s.fileBody("open", *id); err != nil {
			return nil, err
		}
		if s.activeFileID != nil && *s.activeFileID == *id {
			return nil, nil
		}
		v := *id
		s.activeFileID = &v
		return []string{v}, nil
	})
}

// ActiveFileID returns the open file, if any
func (s *NodeStore) ActiveFileID() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeFileID == nil {
		return nil
	}
	v := *s.activeFileID
	return &v
}

// Read returns a copy of the node
func (s *NodeStore) Read(id string) (*models.FileNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, domain.NewNodeError("read", id, domain.ErrNotFound)
	}
	return node.Clone(), nil
}

// List returns copies of every node in insertion order
func (s *NodeStore) List() []*models.FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedIDs(s.nodes, s.seq)
	out := make([]*models.FileNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Len returns the number of nodes
func (s *NodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Revision returns the current mutation counter
func (s *NodeStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a deep copy of the persisted state
func (s *NodeStore) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		Files:        s.nodes,
		ActiveFileID: s.activeFileID,
		Revision:     s.revision,
	}
	return snap.Clone()
}

// Replace swaps in a whole new mapping after validating it. Ids that
// disappear are retired; ids that come back (a restored backup) are allowed.
func (s *NodeStore) Replace(snap models.Snapshot) error {
	valid, err := ValidateSnapshot(snap)
	if err != nil {
		return domain.NewNodeError("replace", "", err)
	}

	err = s.mutate(OpReplaced, func() ([]string, error) {
		for id := range s.nodes {
			if _, kept := valid.Files[id]; !kept {
				s.retired[id] = struct{}{}
			}
		}

		// Preserve creation order across reloads
		ids := make([]string, 0, len(valid.Files))
		for id := range valid.Files {
			ids = append(ids, id)
			delete(s.retired, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			a, b := valid.Files[ids[i]], valid.Files[ids[j]]
			if !a.CreatedAt.Equal(b.CreatedAt.Time) {
				return a.CreatedAt.Before(b.CreatedAt.Time)
			}
			return ids[i] < ids[j]
		})

		s.nodes = make(map[string]*models.FileNode, len(ids))
		s.seq = make(map[string]uint64, len(ids))
		for _, id := range ids {
			s.insert(valid.Files[id])
		}
		s.activeFileID = valid.ActiveFileID

		// Always notify, even for an empty mapping
		return append([]string{}, ids...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("workspace replaced", "nodes", len(valid.Files))
	return nil
}

// Reset empties the workspace
func (s *NodeStore) Reset() error {
	return s.Replace(models.Snapshot{Files: map[string]*models.FileNode{}})
}

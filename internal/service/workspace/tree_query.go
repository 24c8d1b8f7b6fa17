package workspace

import (
	"fmt"
	"sort"
	"strings"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
)

// TreeQuery answers read-only questions about the live mapping.
// Every call takes the store's read lock, so answers match the mapping at
// call time.
type TreeQuery struct {
	store *NodeStore
}

// NewTreeQuery creates a query view over store
func NewTreeQuery(store *NodeStore) *TreeQuery {
	return &TreeQuery{store: store}
}

// ChildrenOf returns the ids of parentID's direct children in insertion
// order. A nil parentID lists root nodes.
func (q *TreeQuery) ChildrenOf(parentID *string) []string {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	return childrenOf(q.store.nodes, q.store.seq, parentID)
}

// IsDescendant reports whether ancestorID appears on nodeID's parent chain.
// A node is not its own descendant.
func (q *TreeQuery) IsDescendant(ancestorID, nodeID string) bool {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	return isDescendant(q.store.nodes, ancestorID, nodeID)
}

// RootNodes returns copies of every node without a parent
func (q *TreeQuery) RootNodes() []*models.FileNode {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	ids := childrenOf(q.store.nodes, q.store.seq, nil)
	out := make([]*models.FileNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, q.store.nodes[id].Clone())
	}
	return out
}

// Descendants returns every transitive descendant of id, parents before children
func (q *TreeQuery) Descendants(id string) []string {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	return descendants(q.store.nodes, q.store.seq, id)
}

// PathTo returns the chain of nodes from the root down to id
func (q *TreeQuery) PathTo(id string) ([]*models.FileNode, error) {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	node, ok := q.store.nodes[id]
	if !ok {
		return nil, domain.NewNodeError("path", id, domain.ErrNotFound)
	}

	var chain []*models.FileNode
	for steps := 0; node != nil && steps <= len(q.store.nodes); steps++ {
		chain = append(chain, node.Clone())
		if node.ParentID == nil {
			break
		}
		node = q.store.nodes[*node.ParentID]
	}

	// Reverse to root-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// DisplayPath returns the slash-joined names from the root down to id
func (q *TreeQuery) DisplayPath(id string) (string, error) {
	chain, err := q.PathTo(id)
	if err != nil {
		return "", err
	}
	names := make([]string, len(chain))
	for i, n := range chain {
		names[i] = n.Name
	}
	return strings.Join(names, "/"), nil
}

// Choice is one option offered to a select dialog
type Choice struct {
	ID    *string // nil = workspace root
	Label string
	Depth int
}

// MoveTargets lists the folders id may be moved into, depth-first with the
// root first. The node's own subtree is excluded.
func (q *TreeQuery) MoveTargets(id string) []Choice {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	choices := []Choice{{ID: nil, Label: "/", Depth: 0}}

	var walk func(parentID *string, depth int)
	walk = func(parentID *string, depth int) {
		for _, childID := range childrenOf(q.store.nodes, q.store.seq, parentID) {
			child := q.store.nodes[childID]
			if !child.IsFolder() || childID == id {
				continue
			}
			cid := childID
			choices = append(choices, Choice{ID: &cid, Label: child.Name, Depth: depth})
			walk(&cid, depth+1)
		}
	}
	walk(nil, 1)

	return choices
}

// Tree builds the nested view of the whole workspace.
// Folders come before files at each level; siblings keep insertion order.
func (q *TreeQuery) Tree() []*models.TreeNode {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	// Pass 1: node map
	byID := make(map[string]*models.TreeNode, len(q.store.nodes))
	for id, n := range q.store.nodes {
		tn := &models.TreeNode{
			ID:        id,
			Type:      n.Type(),
			Name:      n.Name,
			ParentID:  n.ParentID,
			UpdatedAt: n.UpdatedAt,
		}
		if f, ok := n.File(); ok {
			meta := f.Metadata.Clone()
			tn.Metadata = &meta
		}
		byID[id] = tn
	}

	// Pass 2: attach to parents in insertion order
	ids := sortedIDs(q.store.nodes, q.store.seq)
	var roots []*models.TreeNode
	for _, id := range ids {
		tn := byID[id]
		if tn.ParentID == nil {
			roots = append(roots, tn)
			continue
		}
		parent := byID[*tn.ParentID]
		parent.Children = append(parent.Children, tn)
	}

	// Pass 3: folders first at every level
	var order func(level []*models.TreeNode)
	order = func(level []*models.TreeNode) {
		sort.SliceStable(level, func(i, j int) bool {
			return level[i].Type == models.NodeTypeFolder && level[j].Type != models.NodeTypeFolder
		})
		for _, tn := range level {
			order(tn.Children)
		}
	}
	order(roots)

	return roots
}

// childrenOf scans the mapping; fine for hundreds of nodes.
func childrenOf(nodes map[string]*models.FileNode, seq map[string]uint64, parentID *string) []string {
	var ids []string
	for id, n := range nodes {
		if sameParent(n.ParentID, parentID) {
			ids = append(ids, id)
		}
	}
	sortBySeq(ids, seq)
	return ids
}

// isDescendant walks nodeID's parent chain looking for ancestorID.
// Bounded by the node count so a corrupt mapping cannot loop forever.
func isDescendant(nodes map[string]*models.FileNode, ancestorID, nodeID string) bool {
	node, ok := nodes[nodeID]
	for steps := 0; ok && node.ParentID != nil && steps <= len(nodes); steps++ {
		if *node.ParentID == ancestorID {
			return true
		}
		node, ok = nodes[*node.ParentID]
	}
	return false
}

// hasCycle reports whether id is reachable from itself via parent pointers
func hasCycle(nodes map[string]*models.FileNode, id string) bool {
	return isDescendant(nodes, id, id)
}

// descendants collects the subtree below id breadth-first.
func descendants(nodes map[string]*models.FileNode, seq map[string]uint64, id string) []string {
	children := make(map[string][]string, len(nodes))
	for cid, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], cid)
		}
	}

	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		kids := children[cur]
		sortBySeq(kids, seq)
		out = append(out, kids...)
		queue = append(queue, kids...)
	}
	return out
}

func sortedIDs(nodes map[string]*models.FileNode, seq map[string]uint64) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sortBySeq(ids, seq)
	return ids
}

func sortBySeq(ids []string, seq map[string]uint64) {
	sort.Slice(ids, func(i, j int) bool {
		if seq[ids[i]] != seq[ids[j]] {
			return seq[ids[i]] < seq[ids[j]]
		}
		return ids[i] < ids[j]
	})
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func describeParent(parentID *string) string {
	if parentID == nil {
		return "root"
	}
	return fmt.Sprintf("%q", *parentID)
}

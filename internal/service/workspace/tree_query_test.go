package workspace

import (
	"testing"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuery(t *testing.T) (*NodeStore, *TreeQuery) {
	t.Helper()
	s := newTestStore(t)
	buildTree(t, s)
	return s, NewTreeQuery(s)
}

func TestTreeQuery_ChildrenOf(t *testing.T) {
	_, q := newTestQuery(t)

	assert.Equal(t, []string{"n1", "n5"}, q.ChildrenOf(nil))
	assert.Equal(t, []string{"n2", "n4"}, q.ChildrenOf(ptr("n1")))
	assert.Empty(t, q.ChildrenOf(ptr("n3")))
	assert.Empty(t, q.ChildrenOf(ptr("ghost")))
}

func TestTreeQuery_IsDescendant(t *testing.T) {
	_, q := newTestQuery(t)

	tests := []struct {
		ancestor, node string
		want           bool
	}{
		{"n1", "n2", true},
		{"n1", "n3", true},
		{"n2", "n3", true},
		{"n3", "n1", false},
		{"n1", "n1", false},
		{"n1", "n5", false},
		{"n1", "ghost", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, q.IsDescendant(tt.ancestor, tt.node), "%s above %s", tt.ancestor, tt.node)
	}
}

func TestTreeQuery_RootNodesAndDescendants(t *testing.T) {
	_, q := newTestQuery(t)

	roots := q.RootNodes()
	require.Len(t, roots, 2)
	assert.Equal(t, "Book", roots[0].Name)
	assert.Equal(t, "loose", roots[1].Name)

	assert.Equal(t, []string{"n2", "n4", "n3"}, q.Descendants("n1"))
	assert.Empty(t, q.Descendants("n5"))
}

func TestTreeQuery_Paths(t *testing.T) {
	_, q := newTestQuery(t)

	chain, err := q.PathTo("n3")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "n1", chain[0].ID)
	assert.Equal(t, "n3", chain[2].ID)

	path, err := q.DisplayPath("n3")
	require.NoError(t, err)
	assert.Equal(t, "Book/Part/ch1", path)

	path, err = q.DisplayPath("n5")
	require.NoError(t, err)
	assert.Equal(t, "loose", path)

	_, err = q.DisplayPath("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTreeQuery_MoveTargets(t *testing.T) {
	_, q := newTestQuery(t)

	labels := func(choices []Choice) []string {
		var out []string
		for _, c := range choices {
			out = append(out, c.Label)
		}
		return out
	}

	t.Run("file sees every folder", func(t *testing.T) {
		choices := q.MoveTargets("n3")
		assert.Equal(t, []string{"/", "Book", "Part"}, labels(choices))
		assert.Nil(t, choices[0].ID)
		assert.Equal(t, 0, choices[0].Depth)
		assert.Equal(t, 1, choices[1].Depth)
		assert.Equal(t, 2, choices[2].Depth)
		assert.Equal(t, "n2", *choices[2].ID)
	})

	t.Run("folder excludes its own subtree", func(t *testing.T) {
		assert.Equal(t, []string{"/", "Book"}, labels(q.MoveTargets("n2")))
		assert.Equal(t, []string{"/"}, labels(q.MoveTargets("n1")))
	})
}

func TestTreeQuery_Tree(t *testing.T) {
	s := newTestStore(t)
	q := NewTreeQuery(s)

	file := mustCreate(t, s, nil, "a-file", models.NodeTypeFile)
	folder := mustCreate(t, s, nil, "b-folder", models.NodeTypeFolder)
	mustCreate(t, s, &folder, "inner-file", models.NodeTypeFile)
	mustCreate(t, s, &folder, "inner-folder", models.NodeTypeFolder)

	tree := q.Tree()
	require.Len(t, tree, 2)

	assert.Equal(t, folder, tree[0].ID, "folders come first")
	assert.Equal(t, file, tree[1].ID)
	assert.NotNil(t, tree[1].Metadata)
	assert.Nil(t, tree[0].Metadata)

	children := tree[0].Children
	require.Len(t, children, 2)
	assert.Equal(t, "inner-folder", children[0].Name)
	assert.Equal(t, "inner-file", children[1].Name)
}

func TestTreeQuery_EmptyWorkspace(t *testing.T) {
	q := NewTreeQuery(newTestStore(t))
	assert.Empty(t, q.Tree())
	assert.Empty(t, q.RootNodes())
	assert.Len(t, q.MoveTargets("ghost"), 1)
}

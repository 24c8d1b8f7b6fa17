package workspace

import (
	"encoding/json"
	"fmt"
)

// NodeType discriminates files from folders
type NodeType string

const (
	NodeTypeFile   NodeType = "file"
	NodeTypeFolder NodeType = "folder"
)

// Valid reports whether t is a known node type
func (t NodeType) Valid() bool {
	return t == NodeTypeFile || t == NodeTypeFolder
}

// Body is the type-specific part of a node: *FileBody or *FolderBody.
type Body interface {
	Type() NodeType
	clone() Body
}

// FileBody holds what only files carry
type FileBody struct {
	Content  string
	Metadata Metadata
}

func (*FileBody) Type() NodeType { return NodeTypeFile }

func (b *FileBody) clone() Body {
	c := *b
	c.Metadata = b.Metadata.Clone()
	return &c
}

// FolderBody is empty: folders are pure containers
type FolderBody struct{}

func (*FolderBody) Type() NodeType { return NodeTypeFolder }

func (*FolderBody) clone() Body { return &FolderBody{} }

// FileNode is an entry in the workspace tree.
// ParentID nil means root level.
type FileNode struct {
	ID        string
	ParentID  *string
	Name      string
	CreatedAt Timestamp
	UpdatedAt Timestamp
	Body      Body
}

// NewFile creates a file node with default metadata.
func NewFile(id string, parentID *string, name string, now Timestamp) *FileNode {
	return &FileNode{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Body:      &FileBody{Metadata: DefaultMetadata()},
	}
}

// NewFolder creates a folder node.
func NewFolder(id string, parentID *string, name string, now Timestamp) *FileNode {
	return &FileNode{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Body:      &FolderBody{},
	}
}

// Type returns the node type derived from its body
func (n *FileNode) Type() NodeType {
	if n.Body == nil {
		return NodeTypeFolder
	}
	return n.Body.Type()
}

// IsFile reports whether the node is a file
func (n *FileNode) IsFile() bool { return n.Type() == NodeTypeFile }

// IsFolder reports whether the node is a folder
func (n *FileNode) IsFolder() bool { return n.Type() == NodeTypeFolder }

// File returns the file body, or false for folders.
func (n *FileNode) File() (*FileBody, bool) {
	b, ok := n.Body.(*FileBody)
	return b, ok
}

// Clone returns a deep copy
func (n *FileNode) Clone() *FileNode {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.Body != nil {
		c.Body = n.Body.clone()
	}
	return &c
}

// nodeJSON is the flat wire shape shared by autosave and backups.
type nodeJSON struct {
	ID        string    `json:"id"`
	Type      NodeType  `json:"type"`
	ParentID  *string   `json:"parentId"`
	Name      string    `json:"name"`
	Content   *string   `json:"content,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

func (n FileNode) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:        n.ID,
		Type:      n.Type(),
		ParentID:  n.ParentID,
		Name:      n.Name,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if f, ok := n.File(); ok {
		content := f.Content
		meta := f.Metadata
		out.Content = &content
		out.Metadata = &meta
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat wire shape. Files without metadata get the
// defaults; metadata on folders is dropped.
func (n *FileNode) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	n.ID = in.ID
	n.ParentID = in.ParentID
	n.Name = in.Name
	n.CreatedAt = in.CreatedAt
	n.UpdatedAt = in.UpdatedAt

	switch in.Type {
	case NodeTypeFile:
		body := &FileBody{Metadata: DefaultMetadata()}
		if in.Content != nil {
			body.Content = *in.Content
		}
		if in.Metadata != nil {
			body.Metadata = *in.Metadata
			if body.Metadata.Status == "" {
				body.Metadata.Status = StatusBrainstorming
			}
		}
		n.Body = body
	case NodeTypeFolder:
		n.Body = &FolderBody{}
	default:
		return fmt.Errorf("unknown node type %q", in.Type)
	}
	return nil
}

package workspace

// TreeNode is a nested view of the workspace for rendering.
// Content is omitted; files carry their metadata.
type TreeNode struct {
	ID        string      `json:"id"`
	Type      NodeType    `json:"type"`
	Name      string      `json:"name"`
	ParentID  *string     `json:"parentId"`
	UpdatedAt Timestamp   `json:"updatedAt"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
	Children  []*TreeNode `json:"children,omitempty"` // Pointers for proper nesting
}

// Goal summarizes writing progress for one file
type Goal struct {
	WordCount      int  `json:"wordCount"`
	Target         *int `json:"targetWordCount,omitempty"`
	Progress       int  `json:"progress"`
	DaysLeft       *int `json:"daysLeft,omitempty"`
	Overdue        bool `json:"overdue"`
	ReadingMinutes int  `json:"readingMinutes"`
}

// Stats are dashboard totals across the workspace
type Stats struct {
	Files      int            `json:"files"`
	Folders    int            `json:"folders"`
	TotalWords int            `json:"totalWords"`
	ByStatus   map[Status]int `json:"byStatus"`
}

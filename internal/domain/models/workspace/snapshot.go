package workspace

// Snapshot is the persisted node state: the id-to-node mapping and the file
// open in the editor. UI-only state such as expanded folders is never stored.
type Snapshot struct {
	Files        map[string]*FileNode `json:"files"`
	ActiveFileID *string              `json:"activeFileId"`
	// Revision increases with every mutation; not persisted
	Revision uint64 `json:"-"`
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	files := make(map[string]*FileNode, len(s.Files))
	for id, n := range s.Files {
		files[id] = n.Clone()
	}
	var active *string
	if s.ActiveFileID != nil {
		v := *s.ActiveFileID
		active = &v
	}
	return Snapshot{Files: files, ActiveFileID: active, Revision: s.Revision}
}

// BackupVersion is the only backup format version written
const BackupVersion = 1

// Backup is the user-facing export of the whole workspace.
type Backup struct {
	Version   int                  `json:"version"`
	Timestamp Timestamp            `json:"timestamp"`
	Files     map[string]*FileNode `json:"files"`
	Settings  BackupSettings       `json:"settings"`
}

// BackupSettings is the settings portion of a backup
type BackupSettings struct {
	ModelConfigs    []ModelConfig    `json:"modelConfigs"`
	PromptTemplates []PromptTemplate `json:"promptTemplates"`
	ChatHistory     []ChatMessage    `json:"chatHistory"`
}

package workspace

import (
	"fmt"
	"log/slog"
	"time"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
)

// Tracker keeps word counts in step with content and derives goal progress.
type Tracker struct {
	store  *NodeStore
	now    func() time.Time
	logger *slog.Logger
}

// NewTracker creates a metadata tracker over store, sharing its clock
func NewTracker(store *NodeStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		now:    store.now,
		logger: logger,
	}
}

// ApplyContent stores new content and its word count.
// Two mutations: subscribers see the content change, then the count.
func (t *Tracker) ApplyContent(id, content string) (int, error) {
	if err := t.store.UpdateContent(id, content); err != nil {
		return 0, err
	}

	words := CountWords(content)
	if err := t.store.UpdateMetadata(id, models.MetadataPatch{WordCount: models.Set(words)}); err != nil {
		return 0, err
	}

	t.logger.Debug("content updated", "id", id, "word_count", words)
	return words, nil
}

// Sync recounts words from stored content, writing only when the count differs
func (t *Tracker) Sync(id string) (int, error) {
	node, err := t.store.Read(id)
	if err != nil {
		return 0, err
	}
	file, err := asFile("sync", node)
	if err != nil {
		return 0, err
	}

	words := CountWords(file.Content)
	if words == file.Metadata.WordCount {
		return words, nil
	}
	if err := t.store.UpdateMetadata(id, models.MetadataPatch{WordCount: models.Set(words)}); err != nil {
		return 0, err
	}
	return words, nil
}

// Goal reports progress toward a file's target and deadline
func (t *Tracker) Goal(id string) (*models.Goal, error) {
	node, err := t.store.Read(id)
	if err != nil {
		return nil, err
	}
	file, err := asFile("goal", node)
	if err != nil {
		return nil, err
	}

	meta := file.Metadata
	goal := &models.Goal{
		WordCount:      meta.WordCount,
		Target:         meta.TargetWordCount,
		ReadingMinutes: ReadingMinutes(meta.WordCount),
	}
	if meta.TargetWordCount != nil {
		goal.Progress = Progress(meta.WordCount, *meta.TargetWordCount)
	}
	if meta.Deadline != nil {
		days := DaysLeft(meta.Deadline.Time, t.now())
		goal.DaysLeft = &days
		goal.Overdue = days < 0
	}
	return goal, nil
}

// Stats totals the workspace for the dashboard
func (t *Tracker) Stats() *models.Stats {
	stats := &models.Stats{ByStatus: make(map[models.Status]int, len(models.Statuses))}
	for _, s := range models.Statuses {
		stats.ByStatus[s] = 0
	}

	for _, n := range t.store.List() {
		f, ok := n.File()
		if !ok {
			stats.Folders++
			continue
		}
		stats.Files++
		stats.TotalWords += f.Metadata.WordCount
		stats.ByStatus[f.Metadata.Status]++
	}
	return stats
}

func asFile(op string, n *models.FileNode) (*models.FileBody, error) {
	f, ok := n.File()
	if !ok {
		return nil, domain.NewNodeError(op, n.ID, fmt.Errorf("%w: %q is a folder", domain.ErrWrongType, n.Name))
	}
	return f, nil
}

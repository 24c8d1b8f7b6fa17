package workspace

import (
	models "writeflow/internal/domain/models/workspace"
)

// SampleWorkspace populates an empty store with the starter novel.
// Returns the folder and chapter ids.
func SampleWorkspace(tracker *Tracker) (folderID, chapterID string, err error) {
	store := tracker.store

	folderID, err = store.Create(nil, "My Novel", models.NodeTypeFolder)
	if err != nil {
		return "", "", err
	}

	chapterID, err = store.Create(&folderID, "Chapter 1: The Beginning", models.NodeTypeFile)
	if err != nil {
		return "", "", err
	}

	if _, err = tracker.ApplyContent(chapterID, "# Chapter 1\n\nIt was a dark and stormy night..."); err != nil {
		return "", "", err
	}
	if err = store.UpdateMetadata(chapterID, models.MetadataPatch{Status: models.Set(models.StatusWriting)}); err != nil {
		return "", "", err
	}

	return folderID, chapterID, nil
}

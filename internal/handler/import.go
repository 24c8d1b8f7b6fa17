package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"writeflow/internal/config"
	"writeflow/internal/httputil"
	"writeflow/internal/service/workspace"
)

// ImportHandler handles bulk file import.
type ImportHandler struct {
	importer *workspace.Importer
	logger   *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer *workspace.Importer, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, logger: logger}
}

// ImportResponse represents the response for import operations
type ImportResponse struct {
	Success bool                     `json:"success"`
	Summary workspace.ImportSummary  `json:"summary"`
	Errors  []workspace.ImportError  `json:"errors"`
	Files   []workspace.ImportedFile `json:"files"`
}

// Import creates nodes from uploaded markdown, text, HTML or zip files.
// POST /api/import
//
// Multipart field "files" carries the uploads. Query parameters:
//   - parentId: optional target folder (empty = root)
//   - overwrite: optional, if "true" replaces content of same-named files
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxImportBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	opts := workspace.ImportOptions{Overwrite: httputil.QueryBool(r, "overwrite")}
	if parentID := r.URL.Query().Get("parentId"); parentID != "" {
		opts.ParentID = &parentID
	}

	// All files are processed before this function returns
	files := make([]workspace.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file", "file", fh.Filename, "error", err)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open file %s", fh.Filename))
			return
		}
		defer func() { _ = f.Close() }()
		files = append(files, workspace.UploadedFile{Filename: fh.Filename, Content: f})
	}

	result, err := h.importer.Import(r.Context(), files, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ImportResponse{
		Success: result.Summary.Failed == 0,
		Summary: result.Summary,
		Errors:  result.Errors,
		Files:   result.Files,
	})
}

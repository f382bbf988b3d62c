package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/tracker"
)

const defaultActivityLimit = 20

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Summary counts, upcoming expiries and recent activity
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	tracker.Overview
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard(r.Context()))
}

// Charts handles GET /api/charts.
//
//	@Summary		Chart series
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	lifecycle.Charts
//	@Security		BearerAuth
//	@Router			/charts [get]
func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Charts(r.Context()))
}

// Analytics handles GET /api/analytics.
//
//	@Summary		Renewal statistics and histograms
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	tracker.Analytics
//	@Security		BearerAuth
//	@Router			/analytics [get]
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Analytics(r.Context()))
}

// Reminders handles GET /api/reminders.
//
//	@Summary		Items expiring within the reminder window, then expired items
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	ReminderListResponse
//	@Security		BearerAuth
//	@Router			/reminders [get]
func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Reminders(r.Context())
	writeJSON(w, http.StatusOK, ReminderListResponse{
		Reminders: list,
		Summary:   lifecycle.Summarize(list),
	})
}

// Activities handles GET /api/activities.
//
//	@Summary		Recent activity, newest first
//	@Tags			reports
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries"
//	@Success		200		{object}	ActivityListResponse
//	@Security		BearerAuth
//	@Router			/activities [get]
func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
		return
	}
	if limit == 0 {
		limit = defaultActivityLimit
	}
	writeJSON(w, http.StatusOK, ActivityListResponse{Activities: h.svc.Activities(r.Context(), limit)})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Current settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// UpdateSettings handles PUT /api/settings.
// Only the keys present in the body are changed.
//
//	@Summary		Update settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Settings	true	"Settings patch"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ResetSettings handles DELETE /api/settings.
//
//	@Summary		Restore default settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Security		BearerAuth
//	@Router			/settings [delete]
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.ResetSettings(r.Context())
	if err != nil {
		writeError(w, "reset settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Export handles GET /api/export.
//
//	@Summary		Download the export document
//	@Tags			data
//	@Produce		json
//	@Param			full	query		bool	false	"Include the activity log"
//	@Success		200		{object}	models.ExportDocument
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	full := r.URL.Query().Get("full")
	withLog := full == "1" || full == "true"

	doc := h.svc.Export(r.Context())
	if withLog {
		doc = h.svc.ExportFull(r.Context())
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+tracker.ExportFileName(withLog, doc.ExportDate)+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// Import handles POST /api/import.
//
//	@Summary		Import an export document
//	@Description	Accepts JSON or YAML. Replace mode overwrites each section present; merge mode adds records with new ids.
//	@Tags			data
//	@Accept			json
//	@Produce		json
//	@Param			mode	query		string					false	"Import mode"	Enums(replace, merge)
//	@Param			body	body		models.ExportDocument	true	"Export document"
//	@Success		200		{object}	lifecycle.ImportResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	mode, err := lifecycle.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, "import", err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res, err := h.svc.Import(r.Context(), data, mode)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Backup handles POST /api/backups.
//
//	@Summary		Write a backup of the full export
//	@Tags			data
//	@Produce		json
//	@Success		201	{object}	tracker.BackupInfo
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups [post]
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Backup(r.Context())
	if errors.Is(err, tracker.ErrNoFileStore) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("backups are not configured"))
		return
	}
	if err != nil {
		writeError(w, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListBackups handles GET /api/backups.
//
//	@Summary		List backup files, oldest first
//	@Tags			data
//	@Produce		json
//	@Success		200	{object}	BackupListResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups [get]
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Backups(r.Context())
	if errors.Is(err, tracker.ErrNoFileStore) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("backups are not configured"))
		return
	}
	if err != nil {
		writeError(w, "list backups", err)
		return
	}
	out := make([]BackupListItem, len(files))
	for i, f := range files {
		out[i] = BackupListItem{
			Path:      f.Path,
			Checksum:  f.Checksum,
			Size:      f.Size,
			UpdatedAt: f.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, BackupListResponse{Backups: out})
}

// ClearAll handles POST /api/clear.
//
//	@Summary		Delete all items and restore default categories and settings
//	@Tags			data
//	@Success		204
//	@Security		BearerAuth
//	@Router			/clear [post]
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context()); err != nil {
		writeError(w, "clear", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

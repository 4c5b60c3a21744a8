package api

import (
	"fmt"
	"net/http"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/httputil"
	"github.com/bcforms/formgate/pkg/middleware"
)

// AuditHandlers exposes the audit trail: filtered search and file export.
type AuditHandlers struct {
	recorder *audit.Recorder
}

// NewAuditHandlers creates the audit log handlers.
func NewAuditHandlers(recorder *audit.Recorder) *AuditHandlers {
	return &AuditHandlers{recorder: recorder}
}

// Search returns audit entries matching the query filters, newest first
func (h *AuditHandlers) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	entries, err := h.recorder.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// Export streams matching audit entries as a JSON or CSV download. The
// export itself is recorded in the trail.
func (h *AuditHandlers) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	format := audit.Format(httputil.ParseQueryString(r, "format", string(audit.FormatJSON)))

	data, err := h.recorder.Export(r.Context(), filter, format)
	if err != nil {
		if format != audit.FormatJSON && format != audit.FormatCSV {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	entry := audit.Entry{
		EntityType: audit.EntityTypeAuth,
		EntityID:   "audit_log",
		Action:     audit.ActionExport,
		NewValues:  map[string]interface{}{"format": string(format)},
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if principal := middleware.GetPrincipal(r); principal != nil {
		entry.UserID = &principal.Subject
	}
	h.recorder.Record(r.Context(), entry)

	switch format {
	case audit.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit_log.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="audit_log.json"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseAuditFilter(r *http.Request) (audit.Filter, error) {
	filter := audit.Filter{
		EntityType: httputil.ParseQueryString(r, "entity_type", ""),
		EntityID:   httputil.ParseQueryString(r, "entity_id", ""),
		Action:     httputil.ParseQueryString(r, "action", ""),
		UserID:     httputil.ParseQueryString(r, "user_id", ""),
	}

	start, err := httputil.ParseQueryTime(r, "start_time")
	if err != nil {
		return filter, err
	}
	filter.StartTime = start

	end, err := httputil.ParseQueryTime(r, "end_time")
	if err != nil {
		return filter, err
	}
	filter.EndTime = end

	limit, err := httputil.ParseQueryInt(r, "limit", 100)
	if err != nil {
		return filter, err
	}
	if limit < 0 || limit > 1000 {
		return filter, fmt.Errorf("limit must be between 0 and 1000")
	}
	filter.Limit = limit

	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	if offset < 0 {
		return filter, fmt.Errorf("offset must be non-negative")
	}
	filter.Offset = offset

	return filter, nil
}

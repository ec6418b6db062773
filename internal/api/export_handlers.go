package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/healthymind-tech/llm-rating-platform/internal/export"
)

// parseExportFilter maps query parameters onto an export.Filter. Dates are
// accepted as RFC3339 timestamps or plain YYYY-MM-DD dates; a date-only
// upper bound is widened to the end of that day.
func parseExportFilter(r *http.Request) export.Filter {
	q := r.URL.Query()
	f := export.Filter{
		Username: q.Get("username"),
		Role:     q.Get("role"),
		Rating:   q.Get("rating"),
		Content:  q.Get("content"),
	}

	if v := q.Get("date_from"); v != "" {
		if t, ok := parseExportDate(v, false); ok {
			f.DateFrom = &t
		}
	}
	if v := q.Get("date_to"); v != "" {
		if t, ok := parseExportDate(v, true); ok {
			f.DateTo = &t
		}
	}
	return f
}

func parseExportDate(v string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}

func (h *APIHandler) ExportMessagesHandler(w http.ResponseWriter, r *http.Request) {
	filter := parseExportFilter(r)
	format := export.ParseFormat(r.URL.Query().Get("format"))

	body, err := h.exportService.ExportMessages(r.Context(), filter, format)
	if err != nil {
		h.writeExportError(w, err)
		return
	}
	writeExportResponse(w, "chat_messages", format, body)
}

func (h *APIHandler) ExportSessionsHandler(w http.ResponseWriter, r *http.Request) {
	filter := parseExportFilter(r)
	format := export.ParseFormat(r.URL.Query().Get("format"))

	body, err := h.exportService.ExportSessions(r.Context(), filter, format)
	if err != nil {
		h.writeExportError(w, err)
		return
	}
	writeExportResponse(w, "chat_sessions", format, body)
}

func (h *APIHandler) writeExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, export.ErrExportFailed) {
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	log.Printf("Unexpected export error: %v", err)
	http.Error(w, "Export failed", http.StatusInternalServerError)
}

func writeExportResponse(w http.ResponseWriter, name string, format export.Format, body string) {
	filename := fmt.Sprintf("%s_%s.%s", name, time.Now().UTC().Format("20060102"), format.Ext())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

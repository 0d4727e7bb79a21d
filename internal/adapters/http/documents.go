package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.deps.Ingest.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload(fileHeader.Size)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.deps.Documents.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := rt.deps.Documents.DeleteDocument(r.Context(), id)
	if err != nil {
		if domain.IsKind(err, domain.ErrIOFailure) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   err.Error(),
				"id":      id,
				"removed": removed,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DeleteResult{ID: id, Removed: removed})
}

func (rt *Router) documentExists(w http.ResponseWriter, r *http.Request) {
	resp, hit, err := rt.deps.Documents.CheckExistence(r.Context(), r.PathValue("id"), clientKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if hit {
		w.Header().Set("X-Dedup", "hit")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) documentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.deps.Documents.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) summarizeDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}

	id := r.PathValue("id")
	summary, err := rt.deps.Summaries.Summarize(r.Context(), id, tier)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "docx" && rt.deps.Exporter != nil {
		var buf bytes.Buffer
		if err := rt.deps.Exporter.Export(r.Context(), summary, &buf); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", rt.deps.Exporter.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(id)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func exportName(id string) string {
	base := strings.TrimSuffix(id, filepath.Ext(id))
	if base == "" {
		base = "document"
	}
	return base + "_summary.docx"
}

// clientKey identifies the caller for existence polling: an explicit client id
// header, or the remote host.
func clientKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(clientIDHeader)); v != "" {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// decodeOptionalJSON decodes the request body into dst; an empty body leaves dst
// untouched.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

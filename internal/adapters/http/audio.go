package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

type audioResponse struct {
	DocumentID string    `json:"document_id"`
	File       string    `json:"file"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

func (rt *Router) narrateDocument(w http.ResponseWriter, r *http.Request) {
	var req domain.SpeechRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	id := r.PathValue("id")
	artifact, err := rt.deps.Narration.Narrate(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	name := filepath.Base(artifact.Path)
	writeJSON(w, http.StatusCreated, audioResponse{
		DocumentID: id,
		File:       name,
		URL:        "/v1/audio/" + name,
		CreatedAt:  artifact.CreatedAt,
	})
}

func (rt *Router) listVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"voices": rt.deps.Narration.Voices()})
}

func (rt *Router) serveAudio(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".mp3") {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "serve audio", fmt.Errorf("invalid audio file name %q", name)))
		return
	}

	rc, err := rt.deps.Audio.Open(r.Context(), rt.deps.Audio.PathFor(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "audio file not found"})
			return
		}
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

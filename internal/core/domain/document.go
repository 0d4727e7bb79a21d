package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusExpired    DocumentStatus = "expired"
)

type AudioArtifact struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the registry view of one uploaded source file. Values handed out by
// the registry are copies; mutating them has no effect on the registry.
type Document struct {
	ID             string          `json:"id"`
	SourcePath     string          `json:"source_path"`
	UploadTime     time.Time       `json:"upload_time"`
	AudioArtifacts []AudioArtifact `json:"audio_artifacts"`
	Status         DocumentStatus  `json:"status"`
	Error          string          `json:"error,omitempty"`
}

// Paths lists every file owned by the document, source first.
func (d Document) Paths() []string {
	out := make([]string, 0, len(d.AudioArtifacts)+1)
	if d.SourcePath != "" {
		out = append(out, d.SourcePath)
	}
	for _, a := range d.AudioArtifacts {
		out = append(out, a.Path)
	}
	return out
}

func (d Document) Clone() Document {
	out := d
	out.AudioArtifacts = append([]AudioArtifact(nil), d.AudioArtifacts...)
	if out.AudioArtifacts == nil {
		out.AudioArtifacts = []AudioArtifact{}
	}
	return out
}

type ExistenceResponse struct {
	Exists bool           `json:"exists"`
	Status DocumentStatus `json:"status,omitempty"`
}

type DeleteResult struct {
	ID      string `json:"id"`
	Removed int    `json:"removed"`
}

// FileEntry is one regular file found in a storage area. Pending marks the temp
// file of a write that has not been published yet.
type FileEntry struct {
	Path    string
	ModTime time.Time
	Size    int64
	Pending bool
}

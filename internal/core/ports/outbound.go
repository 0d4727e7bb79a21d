package ports

import (
	"context"
	"io"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// DocumentRegistry tracks lifecycle metadata of uploaded documents.
type DocumentRegistry interface {
	Put(id, sourcePath string) domain.Document
	MarkReadyIf(id string, uploadTime time.Time) (bool, error)
	MarkFailed(id, reason string) error
	AttachAudioIf(id string, uploadTime time.Time, path string) (domain.AudioArtifact, error)
	Get(id string) (domain.Document, error)
	Remove(id string) ([]string, error)
	ListExpired(cutoff time.Time) []string
}

// BlobWriter publishes its content on Close; Abort discards it instead.
type BlobWriter interface {
	io.WriteCloser
	Abort() error
}

// FileArea is a flat directory of blobs (upload area, audio area).
type FileArea interface {
	Root() string
	PathFor(name string) string
	Contains(path string) bool
	Save(ctx context.Context, name string, data io.Reader) (string, error)
	Create(ctx context.Context, name string) (BlobWriter, string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context) ([]domain.FileEntry, error)
	Remove(ctx context.Context, path string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Summarizer is a length-limited summarization engine invoked once per chunk. The
// language is detected once per document and selects prompt, model and tokenizer.
type Summarizer interface {
	Summarize(ctx context.Context, chunk string, lang domain.Language, target domain.LengthTarget) (string, error)
	CountTokens(text string, lang domain.Language) int
}

// LanguageDetector names the language of a text, falling back to English when the
// text is too short or ambiguous to tell.
type LanguageDetector interface {
	Detect(text string) domain.Language
}

// SpeechSynthesizer renders one chunk of text to audio bytes written into w.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, chunk string, voice domain.Voice, w io.Writer) error
	CountTokens(text string) int
}

// VoiceCatalog maps (language, gender) pairs to engine voices.
type VoiceCatalog interface {
	Resolve(language, gender string) domain.Voice
	List() []domain.Voice
}

// Chunker splits text into sentence-respecting chunks measured by count.
type Chunker interface {
	Chunk(text string, count func(string) int, maxTokens int) ([]domain.Chunk, error)
}

// LifecycleMetrics receives lifecycle events worth counting.
type LifecycleMetrics interface {
	RecordDedup(hit bool)
	RecordChunks(purpose string, chunks, oversized int)
	RecordEngineFailure(purpose string)
}

// SummaryExporter renders a summary into a downloadable document format.
type SummaryExporter interface {
	Export(ctx context.Context, summary *domain.Summary, w io.Writer) error
	ContentType() string
}

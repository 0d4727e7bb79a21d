package ports

import (
	"context"
	"io"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous text extraction.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentLifecycle is the inbound read/delete model for tracked documents.
type DocumentLifecycle interface {
	Lookup(ctx context.Context, id string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) (int, error)
	CheckExistence(ctx context.Context, id, clientKey string) (domain.ExistenceResponse, bool, error)
	Stats(ctx context.Context, id string) (domain.TextStats, error)
}

// SummaryService produces tiered summaries of ready documents.
type SummaryService interface {
	Summarize(ctx context.Context, documentID string, tier domain.Tier) (*domain.Summary, error)
}

// NarrationService renders ready documents to audio artifacts.
type NarrationService interface {
	Narrate(ctx context.Context, documentID string, req domain.SpeechRequest) (*domain.AudioArtifact, error)
	Voices() []domain.Voice
}

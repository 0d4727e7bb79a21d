package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

type ProcessDocumentUseCase struct {
	lifecycle *Lifecycle
	logger    *slog.Logger
}

func NewProcessDocumentUseCase(lifecycle *Lifecycle, logger *slog.Logger) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{lifecycle: lifecycle, logger: logger}
}

// ProcessByID extracts the text of a Processing document and marks it Ready. A
// failure is recorded on the document, which then stays Processing until retention
// reclaims it.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.lifecycle.Lookup(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status != domain.StatusProcessing {
		uc.logger.Debug("document_already_processed", "document_id", documentID, "status", doc.Status)
		return nil
	}

	text, err := uc.lifecycle.ExtractText(ctx, *doc)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.WrapError(domain.ErrUnsupportedFormat, "extract text", errors.New("no text could be extracted"))
	}
	if err != nil {
		if failErr := uc.lifecycle.RecordFailure(documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed: %v", err, failErr)
		}
		uc.logger.Warn("document_processing_failed", "document_id", documentID, "error", err)
		return err
	}

	ready, err := uc.lifecycle.RecordReady(*doc)
	if err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	if !ready {
		// a re-upload while extracting owns the id now and has its own event
		uc.logger.Info("document_superseded", "document_id", documentID)
		return nil
	}
	uc.logger.Info("document_ready", "document_id", documentID, "characters", len([]rune(text)))
	return nil
}

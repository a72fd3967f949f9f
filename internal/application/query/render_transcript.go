package query

import (
	"context"
	"fmt"
	"time"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/domain/transcript"
	"github.com/smcen/registrar/internal/infrastructure/export"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/timeutil"
)

// DocumentEncoder turns a laid-out Document into file bytes.
type DocumentEncoder interface {
	Encode(doc *transcript.Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// ══════════════════════════════════════════════════════════════════════════════
// RENDER TRANSCRIPT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// RenderTranscriptQuery selects a student and the semesters to print.
type RenderTranscriptQuery struct {
	StudentID string
	// Semester is "I", "II" or "all". Empty means all.
	Semester string
}

// RenderedFile is an encoded document ready to send.
type RenderedFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RenderTranscriptHandler renders one student's transcript.
type RenderTranscriptHandler struct {
	repo      student.Repository
	formatter *transcript.Formatter
	encoder   DocumentEncoder
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewRenderTranscriptHandler creates a new RenderTranscriptHandler.
func NewRenderTranscriptHandler(
	repo student.Repository,
	formatter *transcript.Formatter,
	encoder DocumentEncoder,
	clock timeutil.Clock,
	log *logger.Logger,
) *RenderTranscriptHandler {
	if clock == nil {
		clock = timeutil.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RenderTranscriptHandler{
		repo:      repo,
		formatter: formatter,
		encoder:   encoder,
		clock:     clock,
		log:       log.With(logger.Component("render_transcript")),
	}
}

// Handle loads the record and encodes its document.
func (h *RenderTranscriptHandler) Handle(ctx context.Context, q RenderTranscriptQuery) (*RenderedFile, error) {
	sel, err := grading.ParseSelector(q.Semester)
	if err != nil {
		return nil, err
	}
	if q.StudentID == "" {
		return nil, shared.NewDomainError("transcript", "Render", shared.ErrInvalidID, "student id is required")
	}

	rec, err := h.repo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("render_transcript: %w", err)
	}

	start := time.Now()
	data, err := renderRecord(h.formatter, h.encoder, rec, sel, h.clock())
	if err != nil {
		h.log.Error("transcript rendering failed", logger.StudentID(rec.ID), logger.Err(err))
		return nil, fmt.Errorf("render_transcript: %w", err)
	}
	h.log.Debug("transcript rendered",
		logger.StudentID(rec.ID),
		logger.Semester(string(sel)),
		logger.Latency(time.Since(start)),
	)

	return &RenderedFile{
		FileName:    export.EntryName(rec.RegistrationNumber, rec.Name, sel.FileSuffix(), h.encoder.Extension()),
		ContentType: h.encoder.ContentType(),
		Data:        data,
	}, nil
}

// renderRecord lays out and encodes one record. Encoder panics are turned
// into rendering errors so one bad record cannot take down a batch.
func renderRecord(
	f *transcript.Formatter,
	enc DocumentEncoder,
	rec *student.Record,
	sel grading.Selector,
	issuedOn time.Time,
) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.WrapError("transcript", "Render", shared.ErrRendering, "renderer panicked", fmt.Errorf("%v", r))
		}
	}()
	doc := f.Render(rec, sel.Semesters(), issuedOn)
	return enc.Encode(doc)
}

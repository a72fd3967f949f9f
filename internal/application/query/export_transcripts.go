package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/domain/transcript"
	"github.com/smcen/registrar/internal/infrastructure/export"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/timeutil"
)

// FeatureGate reports whether a named feature is switched on.
type FeatureGate interface {
	IsEnabled(name string) bool
}

// FeatureExportFailureManifest gates the FAILED.txt archive entry.
const FeatureExportFailureManifest = "export.failure_manifest"

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT TRANSCRIPTS QUERY
// Renders many transcripts in parallel and folds them into one zip stream.
// A student whose document fails is skipped and listed in FAILED.txt.
// ══════════════════════════════════════════════════════════════════════════════

// ExportTranscriptsQuery selects the students and semesters of a batch.
type ExportTranscriptsQuery struct {
	// StudentIDs limits the batch. Empty means every student.
	StudentIDs []string
	// Semester is "I", "II" or "all". Empty means all.
	Semester string
}

// ExportTranscriptsResult summarises a finished batch.
type ExportTranscriptsResult struct {
	Requested int
	Written   int
	Failures  []export.Failure
	Elapsed   time.Duration
}

// ExportConfig tunes the batch.
type ExportConfig struct {
	// Workers bounds concurrent renders.
	Workers int
	// Timeout bounds the whole batch. Zero means no bound.
	Timeout time.Duration
}

// ExportTranscriptsHandler runs batch exports.
type ExportTranscriptsHandler struct {
	repo      student.Repository
	formatter *transcript.Formatter
	encoder   DocumentEncoder
	features  FeatureGate
	cfg       ExportConfig
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewExportTranscriptsHandler creates a new ExportTranscriptsHandler. A nil
// features gate enables everything.
func NewExportTranscriptsHandler(
	repo student.Repository,
	formatter *transcript.Formatter,
	encoder DocumentEncoder,
	features FeatureGate,
	cfg ExportConfig,
	clock timeutil.Clock,
	log *logger.Logger,
) *ExportTranscriptsHandler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if clock == nil {
		clock = timeutil.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ExportTranscriptsHandler{
		repo:      repo,
		formatter: formatter,
		encoder:   encoder,
		features:  features,
		cfg:       cfg,
		clock:     clock,
		log:       log.With(logger.Component("export_transcripts")),
	}
}

// Handle writes the archive to w. Entries are named after registration
// numbers with the semester suffix and appear in the order the records were
// loaded, so repeated names are numbered the same way on every run. When
// ctx is canceled or the batch times out the archive is left unfinished and
// the error is returned.
func (h *ExportTranscriptsHandler) Handle(ctx context.Context, q ExportTranscriptsQuery, w io.Writer) (*ExportTranscriptsResult, error) {
	sel, err := grading.ParseSelector(q.Semester)
	if err != nil {
		return nil, err
	}

	recs, err := h.load(ctx, q.StudentIDs)
	if err != nil {
		return nil, err
	}

	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	issuedOn := h.clock()
	archive := export.NewArchiveWriter(w, issuedOn)

	var (
		mu       sync.Mutex
		failures []export.Failure
	)

	// Workers finish in any order. Each one parks its result in the slot of
	// its input position and the sequencer releases slots in input order, so
	// entry order and de-duplicated names depend only on the input.
	slots := make([]chan *export.Entry, len(recs))
	for i := range slots {
		slots[i] = make(chan *export.Entry, 1)
	}
	entries := make(chan export.Entry)
	produced := make(chan struct{})
	sequenced := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Workers)

	go func() {
		defer close(produced)
		for i, rec := range recs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					slots[i] <- nil
					return nil
				}
				data, err := renderRecord(h.formatter, h.encoder, rec, sel, issuedOn)
				if err != nil {
					h.log.Warn("transcript skipped",
						logger.StudentID(rec.ID),
						logger.RegistrationNumber(rec.RegistrationNumber),
						logger.Err(err),
					)
					mu.Lock()
					failures = append(failures, export.Failure{Name: rec.DisplayName(), Err: err})
					mu.Unlock()
					slots[i] <- nil
					return nil
				}
				slots[i] <- &export.Entry{
					Name: export.EntryName(rec.RegistrationNumber, rec.Name, sel.FileSuffix(), h.encoder.Extension()),
					Data: data,
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	go func() {
		defer close(sequenced)
		defer close(entries)
		for _, slot := range slots {
			var entry *export.Entry
			select {
			case entry = <-slot:
			case <-ctx.Done():
				return
			}
			if entry == nil {
				continue
			}
			select {
			case entries <- *entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	written, foldErr := export.Fold(ctx, archive, entries)
	if foldErr != nil {
		cancel()
	}
	<-sequenced
	<-produced

	result := &ExportTranscriptsResult{
		Requested: len(recs),
		Written:   written,
		Failures:  sortFailures(failures),
		Elapsed:   time.Since(start),
	}

	if foldErr != nil {
		return result, h.batchError(foldErr)
	}

	if h.manifestEnabled() {
		if err := archive.AddFailures(result.Failures); err != nil {
			return result, fmt.Errorf("export_transcripts: %w", err)
		}
	}
	if err := archive.Close(); err != nil {
		return result, fmt.Errorf("export_transcripts: %w", err)
	}

	h.log.Info("transcript batch exported",
		logger.Semester(string(sel)),
		logger.Count("requested", result.Requested),
		logger.Count("written", result.Written),
		logger.Count("failed", len(result.Failures)),
		logger.Latency(result.Elapsed),
	)
	return result, nil
}

func (h *ExportTranscriptsHandler) load(ctx context.Context, ids []string) ([]*student.Record, error) {
	if len(ids) == 0 {
		recs, err := h.repo.GetAll(ctx, student.ListAll)
		if err != nil {
			return nil, fmt.Errorf("export_transcripts: list: %w", err)
		}
		return recs, nil
	}

	recs, err := h.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("export_transcripts: load: %w", err)
	}
	if len(recs) == 0 {
		return nil, shared.ErrStudentNotFound
	}
	return recs, nil
}

func (h *ExportTranscriptsHandler) manifestEnabled() bool {
	return h.features == nil || h.features.IsEnabled(FeatureExportFailureManifest)
}

func (h *ExportTranscriptsHandler) batchError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Error("transcript batch timed out", logger.Duration("timeout", h.cfg.Timeout))
		return shared.WrapError("transcript", "ExportBatch", shared.ErrTimeout, "batch export timed out", err)
	case errors.Is(err, context.Canceled):
		h.log.Warn("transcript batch canceled")
		return shared.WrapError("transcript", "ExportBatch", shared.ErrCanceled, "batch export canceled", err)
	default:
		h.log.Error("transcript batch failed", logger.Err(err))
		return fmt.Errorf("export_transcripts: %w", err)
	}
}

func sortFailures(in []export.Failure) []export.Failure {
	sort.Slice(in, func(i, j int) bool { return in[i].Name < in[j].Name })
	return in
}

package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/timeutil"
)

// FeatureGate reports whether a named feature is switched on.
type FeatureGate interface {
	IsEnabled(name string) bool
}

// FeatureGradeOverrides gates letter and points overrides.
const FeatureGradeOverrides = "grades.overrides"

// ReasonOverridesDisabled rejects an override while the feature is off.
const ReasonOverridesDisabled = "grade overrides are disabled"

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE GRADES COMMAND
// Applies course score updates to one record and recomputes its cumulative
// GPA. Valid updates are saved even when others in the request are rejected.
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeGradesCommand contains the score updates for one student.
// Rejected carries courses the caller already refused, such as a code sent
// twice under different spellings; they are reported with the rest.
type RecomputeGradesCommand struct {
	StudentID string
	Updates   map[string]student.ScoreUpdate
	Rejected  []student.Rejection
}

// RecomputeGradesResult contains the saved record and the per-course outcome.
type RecomputeGradesResult struct {
	Record   *student.Record
	Applied  []string
	Rejected []student.Rejection
}

// RecomputeGradesHandler handles RecomputeGradesCommand.
type RecomputeGradesHandler struct {
	repo     student.Repository
	updater  *student.GradeUpdater
	features FeatureGate
	clock    timeutil.Clock
	log      *logger.Logger
}

// NewRecomputeGradesHandler creates a new RecomputeGradesHandler. A nil
// features gate enables everything.
func NewRecomputeGradesHandler(
	repo student.Repository,
	scale *grading.Scale,
	catalog *grading.Catalog,
	features FeatureGate,
	clock timeutil.Clock,
	log *logger.Logger,
) *RecomputeGradesHandler {
	if clock == nil {
		clock = timeutil.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RecomputeGradesHandler{
		repo:     repo,
		updater:  student.NewGradeUpdater(scale, catalog),
		features: features,
		clock:    clock,
		log:      log.With(logger.Component("recompute_grades")),
	}
}

// Handle executes the command. When every update is rejected nothing is
// saved; the result still lists the rejections and the error matches
// shared.ErrValidation.
func (h *RecomputeGradesHandler) Handle(ctx context.Context, cmd RecomputeGradesCommand) (*RecomputeGradesResult, error) {
	if cmd.StudentID == "" {
		return nil, shared.NewDomainError("student", "RecomputeGrades", shared.ErrInvalidID, "student id is required")
	}
	if len(cmd.Updates) == 0 && len(cmd.Rejected) == 0 {
		return nil, shared.ErrNoApplicableUpdates
	}

	prior, err := h.repo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("recompute_grades: %w", err)
	}

	updates, gated := h.gateOverrides(cmd.Updates)

	outcome, applyErr := h.updater.Apply(prior, updates, h.clock())
	result := &RecomputeGradesResult{
		Record:   outcome.Record,
		Applied:  outcome.Applied,
		Rejected: mergeRejections(mergeRejections(outcome.Rejected, gated), cmd.Rejected),
	}
	if applyErr != nil {
		return result, applyErr
	}

	if err := h.repo.Update(ctx, outcome.Record); err != nil {
		return nil, fmt.Errorf("recompute_grades: save: %w", err)
	}

	for _, rej := range result.Rejected {
		h.log.Debug("score update rejected",
			logger.StudentID(cmd.StudentID),
			logger.CourseCode(rej.Code),
			logger.String("reason", rej.Reason),
		)
	}
	h.log.Info("grades recomputed",
		logger.StudentID(cmd.StudentID),
		logger.Count("applied", len(result.Applied)),
		logger.Count("rejected", len(result.Rejected)),
		logger.Float64("cumulative_gpa", outcome.Record.CumulativeGPA),
	)
	return result, nil
}

func (h *RecomputeGradesHandler) gateOverrides(in map[string]student.ScoreUpdate) (map[string]student.ScoreUpdate, []student.Rejection) {
	if h.features == nil || h.features.IsEnabled(FeatureGradeOverrides) {
		return in, nil
	}
	out := make(map[string]student.ScoreUpdate, len(in))
	var gated []student.Rejection
	for code, upd := range in {
		if upd.LetterOverride != "" || upd.PointsOverride != nil {
			gated = append(gated, student.Rejection{Code: code, Reason: ReasonOverridesDisabled})
			continue
		}
		out[code] = upd
	}
	return out, gated
}

func mergeRejections(a, b []student.Rejection) []student.Rejection {
	if len(b) == 0 {
		return a
	}
	out := append(append([]student.Rejection(nil), a...), b...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// REGRADE ALL COMMAND
// Re-derives every stored record with the current table. Used after the
// grading table changes.
// ══════════════════════════════════════════════════════════════════════════════

// RegradeAllResult summarises a regrade run.
type RegradeAllResult struct {
	Scanned int
	Updated int
	Failed  int
	Elapsed time.Duration
}

// RegradeAllHandler re-derives grades for every record.
type RegradeAllHandler struct {
	repo    student.Repository
	updater *student.GradeUpdater
	clock   timeutil.Clock
	log     *logger.Logger
}

// NewRegradeAllHandler creates a new RegradeAllHandler.
func NewRegradeAllHandler(
	repo student.Repository,
	scale *grading.Scale,
	catalog *grading.Catalog,
	clock timeutil.Clock,
	log *logger.Logger,
) *RegradeAllHandler {
	if clock == nil {
		clock = timeutil.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RegradeAllHandler{
		repo:    repo,
		updater: student.NewGradeUpdater(scale, catalog),
		clock:   clock,
		log:     log.With(logger.Component("regrade_all")),
	}
}

// Handle regrades every record. A failed save is logged and counted; the
// run continues with the next record.
func (h *RegradeAllHandler) Handle(ctx context.Context) (*RegradeAllResult, error) {
	start := time.Now()

	records, err := h.repo.GetAll(ctx, student.ListAll)
	if err != nil {
		return nil, fmt.Errorf("regrade_all: list: %w", err)
	}

	result := &RegradeAllResult{}
	var errs []error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		next, changed := h.updater.Regrade(rec, h.clock())
		if !changed {
			continue
		}
		if err := h.repo.Update(ctx, next); err != nil {
			result.Failed++
			errs = append(errs, err)
			h.log.Error("regrade save failed", logger.StudentID(rec.ID), logger.Err(err))
			continue
		}
		result.Updated++
	}

	result.Elapsed = time.Since(start)
	h.log.Info("regrade finished",
		logger.Count("scanned", result.Scanned),
		logger.Count("updated", result.Updated),
		logger.Count("failed", result.Failed),
		logger.Latency(result.Elapsed),
	)
	return result, errors.Join(errs...)
}

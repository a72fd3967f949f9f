package student

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
)

// ScoreUpdate is a requested change to one course. Score is required. A
// letter override replaces the derived letter; a points override is only
// accepted together with a letter override.
type ScoreUpdate struct {
	Score          *float64
	LetterOverride string
	PointsOverride *float64
}

// Rejection explains why one course update was not applied.
type Rejection struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// GradeUpdateResult is the outcome of GradeUpdater.Apply.
type GradeUpdateResult struct {
	Record   *Record
	Applied  []string
	Rejected []Rejection
}

// Rejection reasons.
const (
	ReasonUnknownCourse    = "unknown course code"
	ReasonMissingScore     = "score is required"
	ReasonNotANumber       = "score must be a number"
	ReasonScoreOutOfRange  = "score must be between 0 and 100"
	ReasonUnknownLetter    = "letter override is not on the grading table"
	ReasonPointsNoLetter   = "points override requires a letter override"
	ReasonPointsOutOfRange = "points override out of range"
	ReasonDuplicateCourse  = "course code given more than once"
)

// GradeUpdater applies score updates against fixed tables.
type GradeUpdater struct {
	scale   *grading.Scale
	catalog *grading.Catalog
}

// NewGradeUpdater binds the tables used for evaluation.
func NewGradeUpdater(scale *grading.Scale, catalog *grading.Catalog) *GradeUpdater {
	return &GradeUpdater{scale: scale, catalog: catalog}
}

// Apply returns a new record with every valid update evaluated and the
// cumulative GPA recomputed. prior is not modified. Invalid updates are
// reported in Rejected. When nothing could be applied the result carries an
// unchanged copy of prior and the error is ErrNoApplicableUpdates.
func (u *GradeUpdater) Apply(prior *Record, updates map[string]ScoreUpdate, now time.Time) (GradeUpdateResult, error) {
	next := prior.Clone()
	if next.Grades == nil {
		next.Grades = make(map[string]grading.CourseRecord)
	}
	result := GradeUpdateResult{Record: next}

	codes := make([]string, 0, len(updates))
	for code := range updates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		rec, reason := u.evaluate(code, updates[code])
		if reason != "" {
			result.Rejected = append(result.Rejected, Rejection{Code: code, Reason: reason})
			continue
		}
		next.Grades[code] = rec
		result.Applied = append(result.Applied, code)
	}

	if len(result.Applied) == 0 {
		result.Record = prior.Clone()
		return result, shared.ErrNoApplicableUpdates
	}

	next.CumulativeGPA = clampGPA(grading.Summarize(u.scale, u.catalog, next.Grades).CumulativeGPA)
	next.UpdatedAt = now
	return result, nil
}

func (u *GradeUpdater) evaluate(code string, upd ScoreUpdate) (grading.CourseRecord, string) {
	course, ok := u.catalog.Lookup(code)
	if !ok {
		return grading.CourseRecord{}, ReasonUnknownCourse
	}

	if upd.Score == nil {
		return grading.CourseRecord{}, ReasonMissingScore
	}
	score := *upd.Score
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return grading.CourseRecord{}, ReasonNotANumber
	}
	if score < 0 || score > 100 {
		return grading.CourseRecord{}, ReasonScoreOutOfRange
	}

	if upd.LetterOverride == "" {
		if upd.PointsOverride != nil {
			return grading.CourseRecord{}, ReasonPointsNoLetter
		}
		return u.scale.Grade(score, course.CreditHours), ""
	}

	rec, ok := u.scale.WithLetter(score, course.CreditHours, upd.LetterOverride)
	if !ok {
		return grading.CourseRecord{}, ReasonUnknownLetter
	}

	if upd.PointsOverride != nil {
		points := *upd.PointsOverride
		limit := grading.MaxGradePoints * float64(course.CreditHours)
		if math.IsNaN(points) || points < 0 || points > limit {
			return grading.CourseRecord{}, fmt.Sprintf("%s: must be within [0, %.2f]", ReasonPointsOutOfRange, limit)
		}
		rec.QualityPoints = grading.Round2(points)
	}

	return rec, ""
}

// Regrade re-derives every course from its stored score with the updater's
// table and recomputes the cumulative GPA. Credit hours stay as recorded and
// hand-set letters are kept. It reports whether anything changed.
func (u *GradeUpdater) Regrade(prior *Record, now time.Time) (*Record, bool) {
	next := prior.Clone()
	changed := false

	for code, rec := range next.Grades {
		if rec.Overridden {
			continue
		}
		fresh := u.scale.Grade(rec.Score, rec.CreditHours)
		if fresh != rec {
			next.Grades[code] = fresh
			changed = true
		}
	}

	gpa := clampGPA(grading.Summarize(u.scale, u.catalog, next.Grades).CumulativeGPA)
	if gpa != next.CumulativeGPA {
		next.CumulativeGPA = gpa
		changed = true
	}

	if changed {
		next.UpdatedAt = now
	}
	return next, changed
}

func clampGPA(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > grading.MaxGradePoints:
		return grading.MaxGradePoints
	default:
		return v
	}
}

// Package grading holds the college's canonical grading table and course
// catalog, and the pure functions that turn raw scores into letter grades,
// quality points and grade-point averages.
//
// Both tables are process-wide read-only values. Nothing in this package
// performs I/O.
package grading

import (
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADING TABLE
// ══════════════════════════════════════════════════════════════════════════════

// Threshold maps every score at or above MinScore to a letter and its
// grade-point value.
type Threshold struct {
	MinScore float64 `json:"minScore"`
	Letter   string  `json:"letter"`
	Points   float64 `json:"points"`
}

// Scale is an ordered grading table, highest threshold first. The last
// threshold starts at 0 so every score in [0,100] resolves to exactly one
// band.
type Scale struct {
	id         string
	thresholds []Threshold
	byLetter   map[string]float64
}

// MaxGradePoints is the grade-point value of the top band.
const MaxGradePoints = 4.0

// ScaleVersion identifies the canonical table on documents and in logs.
const ScaleVersion = "smcen-2025"

// canonicalThresholds is the twelve-band table used on every printed
// transcript and marksheet.
var canonicalThresholds = []Threshold{
	{MinScore: 83, Letter: "A", Points: 4.00},
	{MinScore: 80, Letter: "A-", Points: 3.67},
	{MinScore: 77, Letter: "B+", Points: 3.33},
	{MinScore: 73, Letter: "B", Points: 3.00},
	{MinScore: 70, Letter: "B-", Points: 2.67},
	{MinScore: 64, Letter: "C+", Points: 2.33},
	{MinScore: 56, Letter: "C", Points: 2.00},
	{MinScore: 50, Letter: "C-", Points: 1.67},
	{MinScore: 47, Letter: "D+", Points: 1.33},
	{MinScore: 43, Letter: "D", Points: 1.00},
	{MinScore: 40, Letter: "D-", Points: 0.67},
	{MinScore: 0, Letter: "F", Points: 0.00},
}

// CanonicalScale is the grading table in force.
var CanonicalScale = MustScale(ScaleVersion, canonicalThresholds)

// NewScale validates thresholds and builds a Scale. Thresholds must be
// strictly descending, end at 0, carry unique letters and have points in
// [0, MaxGradePoints].
func NewScale(id string, thresholds []Threshold) (*Scale, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("scale %s: no thresholds", id)
	}

	ordered := make([]Threshold, len(thresholds))
	copy(ordered, thresholds)

	byLetter := make(map[string]float64, len(ordered))
	for i, t := range ordered {
		if t.Letter == "" {
			return nil, fmt.Errorf("scale %s: threshold %d has no letter", id, i)
		}
		if _, dup := byLetter[t.Letter]; dup {
			return nil, fmt.Errorf("scale %s: duplicate letter %q", id, t.Letter)
		}
		if t.Points < 0 || t.Points > MaxGradePoints {
			return nil, fmt.Errorf("scale %s: points %.2f for %q out of range", id, t.Points, t.Letter)
		}
		if i > 0 && t.MinScore >= ordered[i-1].MinScore {
			return nil, fmt.Errorf("scale %s: thresholds must be strictly descending at %q", id, t.Letter)
		}
		byLetter[t.Letter] = t.Points
	}

	if last := ordered[len(ordered)-1]; last.MinScore != 0 {
		return nil, fmt.Errorf("scale %s: lowest threshold must start at 0, got %v", id, last.MinScore)
	}

	return &Scale{id: id, thresholds: ordered, byLetter: byLetter}, nil
}

// MustScale is NewScale that panics on an invalid table.
func MustScale(id string, thresholds []Threshold) *Scale {
	s, err := NewScale(id, thresholds)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the table version.
func (s *Scale) ID() string { return s.id }

// Thresholds returns a copy of the table, highest band first.
func (s *Scale) Thresholds() []Threshold {
	out := make([]Threshold, len(s.thresholds))
	copy(out, s.thresholds)
	return out
}

// Lookup returns the band for score. Scores above 100 land in the top band;
// negative scores and NaN land in the failing band.
func (s *Scale) Lookup(score float64) Threshold {
	for _, t := range s.thresholds {
		if score >= t.MinScore {
			return t
		}
	}
	return s.thresholds[len(s.thresholds)-1]
}

// PointsFor returns the grade-point value of letter.
func (s *Scale) PointsFor(letter string) (float64, bool) {
	p, ok := s.byLetter[letter]
	return p, ok
}

// TopLetter is the letter of the highest band.
func (s *Scale) TopLetter() string {
	return s.thresholds[0].Letter
}

// FailingLetter is the letter of the lowest band. A semester containing it
// is not passed.
func (s *Scale) FailingLetter() string {
	return s.thresholds[len(s.thresholds)-1].Letter
}

// Letters lists the table's letters, highest band first.
func (s *Scale) Letters() []string {
	out := make([]string, len(s.thresholds))
	for i, t := range s.thresholds {
		out[i] = t.Letter
	}
	return out
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/domain/shared"
)

func TestCanonicalScale_Bands(t *testing.T) {
	cases := []struct {
		score  float64
		letter string
		points float64
	}{
		{100, "A", 4.00},
		{83, "A", 4.00},
		{82.99, "A-", 3.67},
		{80, "A-", 3.67},
		{77, "B+", 3.33},
		{73, "B", 3.00},
		{70, "B-", 2.67},
		{64, "C+", 2.33},
		{56, "C", 2.00},
		{50, "C-", 1.67},
		{47, "D+", 1.33},
		{43, "D", 1.00},
		{40, "D-", 0.67},
		{39.5, "F", 0},
		{0, "F", 0},
	}

	for _, tc := range cases {
		band := CanonicalScale.Lookup(tc.score)
		assert.Equal(t, tc.letter, band.Letter, "score %v", tc.score)
		assert.Equal(t, tc.points, band.Points, "score %v", tc.score)
	}
}

func TestEvaluate_EveryScoreMapsToExactlyOneBand(t *testing.T) {
	for tenths := 0; tenths <= 1000; tenths++ {
		score := float64(tenths) / 10
		for credits := 1; credits <= 4; credits++ {
			ev := Evaluate(score, credits)

			points, ok := CanonicalScale.PointsFor(ev.LetterGrade)
			require.True(t, ok, "score %v produced unknown letter %q", score, ev.LetterGrade)
			assert.InDelta(t, points*float64(credits), ev.QualityPoints, 0.005)

			matches := 0
			for _, th := range CanonicalScale.Thresholds() {
				if th.Letter == ev.LetterGrade && score >= th.MinScore {
					matches++
				}
			}
			assert.Equal(t, 1, matches)
		}
	}
}

func TestEvaluate_Bounds(t *testing.T) {
	for credits := 1; credits <= 5; credits++ {
		assert.Equal(t, "F", Evaluate(0, credits).LetterGrade)
		assert.Equal(t, CanonicalScale.TopLetter(), Evaluate(100, credits).LetterGrade)
	}
	assert.Equal(t, "A", Evaluate(140, 2).LetterGrade)
	assert.Equal(t, "F", Evaluate(-3, 2).LetterGrade)
	assert.Equal(t, "F", Evaluate(math.NaN(), 2).LetterGrade)
}

func TestEvaluate_QualityPointsAreRounded(t *testing.T) {
	ev := Evaluate(81, 3)
	assert.Equal(t, "A-", ev.LetterGrade)
	assert.Equal(t, 11.01, ev.QualityPoints)
}

func TestNewScale_RejectsBrokenTables(t *testing.T) {
	_, err := NewScale("gap", []Threshold{{MinScore: 50, Letter: "P", Points: 4}})
	assert.Error(t, err)

	_, err = NewScale("order", []Threshold{
		{MinScore: 50, Letter: "P", Points: 4},
		{MinScore: 60, Letter: "Q", Points: 3},
		{MinScore: 0, Letter: "F", Points: 0},
	})
	assert.Error(t, err)

	_, err = NewScale("dup", []Threshold{
		{MinScore: 50, Letter: "P", Points: 4},
		{MinScore: 0, Letter: "P", Points: 0},
	})
	assert.Error(t, err)

	_, err = NewScale("points", []Threshold{{MinScore: 0, Letter: "X", Points: 5}})
	assert.Error(t, err)
}

func TestScale_WithLetter(t *testing.T) {
	rec, ok := CanonicalScale.WithLetter(62, 3, "B+")
	require.True(t, ok)
	assert.Equal(t, "B+", rec.LetterGrade)
	assert.Equal(t, 9.99, rec.QualityPoints)
	assert.Equal(t, 62.0, rec.Score)

	_, ok = CanonicalScale.WithLetter(62, 3, "E")
	assert.False(t, ok)
}

func TestCatalog(t *testing.T) {
	c := CanonicalCatalog
	assert.Len(t, c.Courses(), 10)
	assert.Len(t, c.BySemester(SemesterI), 5)
	assert.Len(t, c.BySemester(SemesterII), 5)

	course, ok := c.Lookup("FNCE252")
	require.True(t, ok)
	assert.Equal(t, "Church Stewardship & Finance", course.Title)
	assert.Equal(t, 3, course.CreditHours)
	assert.Equal(t, SemesterII, course.Semester)

	_, ok = c.Lookup("EDUC231")
	assert.False(t, ok)

	for _, course := range c.Courses() {
		assert.Less(t, len(course.Title), 40, course.Code)
	}

	_, err := NewCatalog("bad", []Course{{Code: "X1", Title: "x", CreditHours: 0, Semester: SemesterI}})
	assert.Error(t, err)
	_, err = NewCatalog("bad", []Course{
		{Code: "X1", Title: "x", CreditHours: 1, Semester: SemesterI},
		{Code: "X1", Title: "y", CreditHours: 1, Semester: SemesterII},
	})
	assert.Error(t, err)
}

func TestParseSelector(t *testing.T) {
	cases := map[string]Selector{
		"":     SelectAll,
		"all":  SelectAll,
		"ALL":  SelectAll,
		"I":    SelectI,
		"1":    SelectI,
		"sem2": SelectII,
		"ii":   SelectII,
	}
	for raw, want := range cases {
		got, err := ParseSelector(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSelector("III")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.Equal(t, []Semester{SemesterI, SemesterII}, SelectAll.Semesters())
	assert.Equal(t, "_Sem2", SelectII.FileSuffix())
	assert.Equal(t, "", SelectAll.FileSuffix())
}

func TestAggregateSemester(t *testing.T) {
	records := []CourseRecord{
		CanonicalScale.Grade(90, 2),
		CanonicalScale.Grade(74, 3),
	}
	agg := AggregateSemester(SemesterI, records)

	assert.Equal(t, 5, agg.TotalCredits)
	assert.Equal(t, 17.0, agg.TotalQualityPoints)
	assert.InDelta(t, 3.4, agg.SGPA, 1e-9)
	assert.True(t, agg.Passed)
	assert.False(t, agg.Incomplete)

	records = append(records, CanonicalScale.Grade(12, 2))
	assert.False(t, AggregateSemester(SemesterI, records).Passed)
}

func TestAggregateSemester_ZeroCredits(t *testing.T) {
	agg := AggregateSemester(SemesterII, nil)

	assert.Equal(t, 0.0, agg.SGPA)
	assert.False(t, math.IsNaN(agg.SGPA))
	assert.True(t, agg.Incomplete)
	assert.Equal(t, 0, agg.TotalCredits)
}

func TestAggregateCumulative(t *testing.T) {
	// Equal credits: plain mean of the two SGPAs.
	g1 := SemesterAggregate{TotalCredits: 12, SGPA: 3.5}
	g2 := SemesterAggregate{TotalCredits: 12, SGPA: 2.9}
	assert.Equal(t, 3.2, AggregateCumulative([]SemesterAggregate{g1, g2}))

	// Weighted by credits and rounded.
	g3 := SemesterAggregate{TotalCredits: 2, SGPA: 4.0}
	g4 := SemesterAggregate{TotalCredits: 4, SGPA: 3.0}
	assert.Equal(t, 3.33, AggregateCumulative([]SemesterAggregate{g3, g4}))

	// Incomplete terms do not dilute the average.
	empty := SemesterAggregate{Incomplete: true}
	assert.Equal(t, 4.0, AggregateCumulative([]SemesterAggregate{g3, empty}))

	assert.Equal(t, 0.0, AggregateCumulative(nil))
	assert.Equal(t, 0.0, AggregateCumulative([]SemesterAggregate{empty, empty}))
}

func TestSummarize_ScenarioSemesterOne(t *testing.T) {
	grades := map[string]CourseRecord{
		"RELB151": CanonicalScale.Grade(90, 2),
		"RELB291": CanonicalScale.Grade(85, 2),
	}

	summary := Summarize(CanonicalScale, CanonicalCatalog, grades)

	semI, ok := summary.Semester(SemesterI)
	require.True(t, ok)
	assert.Equal(t, 4, semI.TotalCredits)
	assert.Equal(t, 16.0, semI.TotalQualityPoints)
	assert.Equal(t, 4.0, semI.SGPA)
	assert.True(t, semI.Passed)

	semII, ok := summary.Semester(SemesterII)
	require.True(t, ok)
	assert.True(t, semII.Incomplete)

	assert.Equal(t, 4.0, summary.CumulativeGPA)
}

func TestSemesterRecords_UsesFrozenCredits(t *testing.T) {
	// A record graded when RELB125 carried 4 credits keeps them.
	grades := map[string]CourseRecord{
		"RELB125": CanonicalScale.Grade(75, 4),
	}
	courses, records := CanonicalCatalog.SemesterRecords(grades, SemesterI)
	require.Len(t, records, 1)
	assert.Equal(t, "RELB125", courses[0].Code)

	agg := AggregateSemester(SemesterI, records)
	assert.Equal(t, 4, agg.TotalCredits)
	assert.Equal(t, 12.0, agg.TotalQualityPoints)
}

package grading

// CourseRecord is one student's result in one course. Letter and quality
// points are derived from Score and are always written together.
// CreditHours is a snapshot of the catalog at evaluation time.
type CourseRecord struct {
	Score         float64 `json:"score"`
	LetterGrade   string  `json:"grade"`
	QualityPoints float64 `json:"gradePoints"`
	CreditHours   int     `json:"creditHours"`
	// Overridden marks a letter set by hand rather than derived from Score.
	Overridden bool `json:"overridden,omitempty"`
}

// Evaluation is the outcome of grading one score.
type Evaluation struct {
	LetterGrade   string
	QualityPoints float64
}

// Evaluate maps a score to its band and multiplies the band's grade-point
// value by creditHours. It never fails: out-of-range scores fall into the
// top or bottom band.
func (s *Scale) Evaluate(score float64, creditHours int) Evaluation {
	band := s.Lookup(score)
	return Evaluation{
		LetterGrade:   band.Letter,
		QualityPoints: Round2(band.Points * float64(creditHours)),
	}
}

// Evaluate grades score against the canonical table.
func Evaluate(score float64, creditHours int) Evaluation {
	return CanonicalScale.Evaluate(score, creditHours)
}

// Grade builds a CourseRecord from a score.
func (s *Scale) Grade(score float64, creditHours int) CourseRecord {
	ev := s.Evaluate(score, creditHours)
	return CourseRecord{
		Score:         score,
		LetterGrade:   ev.LetterGrade,
		QualityPoints: ev.QualityPoints,
		CreditHours:   creditHours,
	}
}

// DefaultCourseRecord is the record every student starts with: score 0,
// the failing letter and no quality points.
func (s *Scale) DefaultCourseRecord(creditHours int) CourseRecord {
	return s.Grade(0, creditHours)
}

// WithLetter builds a record whose letter was set by hand. Points are the
// letter's value times the credit hours.
func (s *Scale) WithLetter(score float64, creditHours int, letter string) (CourseRecord, bool) {
	points, ok := s.PointsFor(letter)
	if !ok {
		return CourseRecord{}, false
	}
	return CourseRecord{
		Score:         score,
		LetterGrade:   letter,
		QualityPoints: Round2(points * float64(creditHours)),
		CreditHours:   creditHours,
		Overridden:    true,
	}, true
}

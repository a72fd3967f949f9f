package grading

// SemesterAggregate summarises one term of a student's record.
type SemesterAggregate struct {
	Semester           Semester `json:"semester"`
	TotalCredits       int      `json:"totalCredits"`
	TotalQualityPoints float64  `json:"totalQualityPoints"`
	SGPA               float64  `json:"sgpa"`
	Passed             bool     `json:"passed"`
	// Incomplete is set when the term carries no credits. SGPA is then 0.
	Incomplete bool `json:"incomplete"`
}

// AggregateSemester sums credits and quality points over records of one
// term. A term without credits yields SGPA 0 and Incomplete rather than NaN.
// Passed is false as soon as one record carries the failing letter.
func (s *Scale) AggregateSemester(sem Semester, records []CourseRecord) SemesterAggregate {
	agg := SemesterAggregate{Semester: sem, Passed: true}
	failing := s.FailingLetter()

	for _, r := range records {
		agg.TotalCredits += r.CreditHours
		agg.TotalQualityPoints += r.QualityPoints
		if r.LetterGrade == failing {
			agg.Passed = false
		}
	}
	agg.TotalQualityPoints = Round2(agg.TotalQualityPoints)

	if agg.TotalCredits <= 0 {
		agg.Incomplete = true
		agg.SGPA = 0
		return agg
	}

	agg.SGPA = agg.TotalQualityPoints / float64(agg.TotalCredits)
	return agg
}

// AggregateSemester aggregates against the canonical table.
func AggregateSemester(sem Semester, records []CourseRecord) SemesterAggregate {
	return CanonicalScale.AggregateSemester(sem, records)
}

// AggregateCumulative is the credit-weighted mean of the terms' SGPAs,
// rounded to two decimals. It is 0 when no term carries credits.
func AggregateCumulative(semesters []SemesterAggregate) float64 {
	var weighted float64
	var credits int
	for _, sem := range semesters {
		if sem.TotalCredits <= 0 {
			continue
		}
		weighted += sem.SGPA * float64(sem.TotalCredits)
		credits += sem.TotalCredits
	}
	if credits == 0 {
		return 0
	}
	return Round2(weighted / float64(credits))
}

// SemesterRecords picks the records of one term from a student's grade map,
// in catalog order. Codes absent from the map are skipped, so a student who
// took nothing that term yields an empty slice.
func (c *Catalog) SemesterRecords(grades map[string]CourseRecord, sem Semester) ([]Course, []CourseRecord) {
	var courses []Course
	var records []CourseRecord
	for _, course := range c.courses {
		if course.Semester != sem {
			continue
		}
		rec, ok := grades[course.Code]
		if !ok {
			continue
		}
		courses = append(courses, course)
		records = append(records, rec)
	}
	return courses, records
}

// Summary is the full academic computation for one student.
type Summary struct {
	Semesters     []SemesterAggregate `json:"semesters"`
	CumulativeGPA float64             `json:"cumulativeGpa"`
}

// Summarize aggregates every term of the catalog and the cumulative GPA.
func Summarize(scale *Scale, catalog *Catalog, grades map[string]CourseRecord) Summary {
	out := Summary{Semesters: make([]SemesterAggregate, 0, len(AllSemesters))}
	for _, sem := range AllSemesters {
		_, records := catalog.SemesterRecords(grades, sem)
		out.Semesters = append(out.Semesters, scale.AggregateSemester(sem, records))
	}
	out.CumulativeGPA = AggregateCumulative(out.Semesters)
	return out
}

// Semester returns the aggregate for sem, if present.
func (s Summary) Semester(sem Semester) (SemesterAggregate, bool) {
	for _, agg := range s.Semesters {
		if agg.Semester == sem {
			return agg, true
		}
	}
	return SemesterAggregate{}, false
}

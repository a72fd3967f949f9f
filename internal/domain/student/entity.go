// Package student holds the academic record of a registered student and the
// pure operations that create and update it.
package student

import (
	"time"

	"github.com/smcen/registrar/internal/domain/grading"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// RegistrationType distinguishes first-time applicants from returning ones.
type RegistrationType string

const (
	RegistrationNew RegistrationType = "NEW"
	RegistrationOld RegistrationType = "OLD"
)

// Gender as recorded on the admission form.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOthers Gender = "Others"
)

// MaritalStatus as recorded on the admission form.
type MaritalStatus string

const (
	MaritalSingle  MaritalStatus = "Single"
	MaritalMarried MaritalStatus = "Married"
)

// YesNo is the form's two-valued answer.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Identity is everything the admission form captures about a person.
type Identity struct {
	Name                    string           `json:"name"`
	Email                   string           `json:"email"`
	RegistrationType        RegistrationType `json:"registrationType"`
	DateOfBirth             string           `json:"dateOfBirth"`
	BasisOfAdmission        string           `json:"basisOfAdmission"`
	CollegeAttended         string           `json:"collegeAttended"`
	Gender                  Gender           `json:"gender"`
	MaritalStatus           MaritalStatus    `json:"maritalStatus"`
	MotherTongue            string           `json:"motherTongue"`
	IsAdventist             YesNo            `json:"isAdventist"`
	PhoneNumber             string           `json:"phoneNumber"`
	Address                 string           `json:"address"`
	State                   string           `json:"state"`
	Union                   string           `json:"union,omitempty"`
	SectionRegionConference string           `json:"sectionRegionConference,omitempty"`
	Workplace               string           `json:"workplace,omitempty"`
}

// Record is a student's academic record. Grades are keyed by course code.
// Records are treated as values: grade updates return a new Record.
type Record struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registrationNumber"`
	Identity

	PasswordHash string `json:"-"`

	PaymentScreenshot string   `json:"paymentScreenshot,omitempty"`
	Photo             string   `json:"photo,omitempty"`
	SelectedCourses   []string `json:"selectedCourses"`
	TotalFee          float64  `json:"totalFee"`

	Grades        map[string]grading.CourseRecord `json:"grades"`
	CumulativeGPA float64                         `json:"cumulativeGPA"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecordParams carries the inputs of NewRecord.
type NewRecordParams struct {
	ID                 string
	RegistrationNumber string
	Identity           Identity
	PasswordHash       string
	PaymentScreenshot  string
	Photo              string
	SelectedCourses    []string
	TotalFee           float64
	Now                time.Time
}

// NewRecord builds a fresh record with one default course record per
// catalog course: score 0, the failing letter, no quality points and the
// catalog's credit hours. The cumulative GPA starts at 0.
func NewRecord(scale *grading.Scale, catalog *grading.Catalog, p NewRecordParams) *Record {
	grades := make(map[string]grading.CourseRecord, len(catalog.Courses()))
	for _, course := range catalog.Courses() {
		grades[course.Code] = scale.DefaultCourseRecord(course.CreditHours)
	}

	selected := make([]string, len(p.SelectedCourses))
	copy(selected, p.SelectedCourses)

	return &Record{
		ID:                 p.ID,
		RegistrationNumber: p.RegistrationNumber,
		Identity:           p.Identity,
		PasswordHash:       p.PasswordHash,
		PaymentScreenshot:  p.PaymentScreenshot,
		Photo:              p.Photo,
		SelectedCourses:    selected,
		TotalFee:           p.TotalFee,
		Grades:             grades,
		CumulativeGPA:      0,
		CreatedAt:          p.Now,
		UpdatedAt:          p.Now,
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.SelectedCourses != nil {
		out.SelectedCourses = append(make([]string, 0, len(r.SelectedCourses)), r.SelectedCourses...)
	}
	out.Grades = make(map[string]grading.CourseRecord, len(r.Grades))
	for code, rec := range r.Grades {
		out.Grades[code] = rec
	}
	return &out
}

// DisplayName is the name used when the registration number is missing.
func (r *Record) DisplayName() string {
	if r.RegistrationNumber != "" {
		return r.RegistrationNumber
	}
	return r.Name
}

// Summary aggregates the record against the given tables.
func (r *Record) Summary(scale *grading.Scale, catalog *grading.Catalog) grading.Summary {
	return grading.Summarize(scale, catalog, r.Grades)
}

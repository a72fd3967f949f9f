package student

import (
	"time"

	"github.com/smcen/registrar/internal/domain/grading"
)

// Enrollment is a student's course selection for one semester. There is at
// most one per registration number and semester.
type Enrollment struct {
	ID                 string           `json:"id"`
	RegistrationNumber string           `json:"registrationNumber"`
	Name               string           `json:"name"`
	Semester           grading.Semester `json:"semester"`
	SelectedCourses    []string         `json:"selectedCourses"`
	TotalFee           float64          `json:"totalFee"`
	PaymentScreenshot  string           `json:"paymentScreenshot,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// CreditHours sums the catalog credits of the selected courses.
func (e *Enrollment) CreditHours(catalog *grading.Catalog) int {
	total := 0
	for _, code := range e.SelectedCourses {
		if c, ok := catalog.Lookup(code); ok {
			total += c.CreditHours
		}
	}
	return total
}

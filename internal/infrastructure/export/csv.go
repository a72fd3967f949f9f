package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smcen/registrar/internal/domain/student"
)

// StudentColumns is the header row of the students sheet.
var StudentColumns = []string{
	"registrationNumber", "registrationType", "name", "email", "dateOfBirth",
	"gender", "maritalStatus", "motherTongue", "phoneNumber", "isAdventist",
	"basisOfAdmission", "collegeAttended", "union", "sectionRegionConference",
	"address", "state", "workplace", "selectedCourses", "totalFee",
	"paymentScreenshot", "cumulativeGPA",
}

// EnrollmentColumns is the header row of the enrollments sheet.
var EnrollmentColumns = []string{
	"registrationNumber", "name", "semester", "selectedCourses", "totalFee", "paymentScreenshot",
}

// WriteStudentsCSV writes one row per record after the header.
func WriteStudentsCSV(w io.Writer, records []*student.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StudentColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.RegistrationNumber,
			string(r.RegistrationType),
			r.Name,
			r.Email,
			r.DateOfBirth,
			string(r.Gender),
			string(r.MaritalStatus),
			r.MotherTongue,
			r.PhoneNumber,
			string(r.IsAdventist),
			r.BasisOfAdmission,
			r.CollegeAttended,
			r.Union,
			r.SectionRegionConference,
			r.Address,
			r.State,
			r.Workplace,
			strings.Join(r.SelectedCourses, ", "),
			formatAmount(r.TotalFee),
			r.PaymentScreenshot,
			strconv.FormatFloat(r.CumulativeGPA, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write student %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEnrollmentsCSV writes one row per enrollment after the header.
func WriteEnrollmentsCSV(w io.Writer, enrollments []*student.Enrollment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EnrollmentColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range enrollments {
		row := []string{
			e.RegistrationNumber,
			e.Name,
			string(e.Semester),
			strings.Join(e.SelectedCourses, ", "),
			formatAmount(e.TotalFee),
			e.PaymentScreenshot,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write enrollment %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

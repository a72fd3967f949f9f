package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smcen/registrar/internal/application/command"
	"github.com/smcen/registrar/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

// registerStudentRequest is the admission form.
type registerStudentRequest struct {
	Name                    string   `json:"name" validate:"required,max=200"`
	Email                   string   `json:"email" validate:"required,email,max=320"`
	Password                string   `json:"password" validate:"required,min=6,max=72"`
	RegistrationType        string   `json:"registrationType" validate:"required,oneof=NEW OLD"`
	DateOfBirth             string   `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	BasisOfAdmission        string   `json:"basisOfAdmission" validate:"required"`
	CollegeAttended         string   `json:"collegeAttended" validate:"required"`
	Gender                  string   `json:"gender" validate:"required,oneof=Male Female Others"`
	MaritalStatus           string   `json:"maritalStatus" validate:"required,oneof=Single Married"`
	MotherTongue            string   `json:"motherTongue" validate:"required,max=100"`
	IsAdventist             string   `json:"isAdventist" validate:"required,oneof=Yes No"`
	PhoneNumber             string   `json:"phoneNumber" validate:"required,max=32"`
	Address                 string   `json:"address" validate:"required"`
	State                   string   `json:"state" validate:"required,max=100"`
	Union                   string   `json:"union" validate:"omitempty,max=200"`
	SectionRegionConference string   `json:"sectionRegionConference" validate:"omitempty,max=200"`
	Workplace               string   `json:"workplace" validate:"omitempty,max=200"`
	PaymentScreenshot       string   `json:"paymentScreenshot" validate:"omitempty,url"`
	Photo                   string   `json:"photo" validate:"omitempty,url"`
	SelectedCourses         []string `json:"selectedCourses" validate:"required,min=1,dive,required"`
	TotalFee                *float64 `json:"totalFee" validate:"required,gte=0"`
}

func (r registerStudentRequest) toCommand() command.RegisterStudentCommand {
	return command.RegisterStudentCommand{
		Identity: student.Identity{
			Name:                    strings.TrimSpace(r.Name),
			Email:                   r.Email,
			RegistrationType:        student.RegistrationType(r.RegistrationType),
			DateOfBirth:             r.DateOfBirth,
			BasisOfAdmission:        r.BasisOfAdmission,
			CollegeAttended:         r.CollegeAttended,
			Gender:                  student.Gender(r.Gender),
			MaritalStatus:           student.MaritalStatus(r.MaritalStatus),
			MotherTongue:            r.MotherTongue,
			IsAdventist:             student.YesNo(r.IsAdventist),
			PhoneNumber:             r.PhoneNumber,
			Address:                 r.Address,
			State:                   r.State,
			Union:                   r.Union,
			SectionRegionConference: r.SectionRegionConference,
			Workplace:               r.Workplace,
		},
		Password:          r.Password,
		SelectedCourses:   normalizeCodes(r.SelectedCourses),
		TotalFee:          *r.TotalFee,
		PaymentScreenshot: r.PaymentScreenshot,
		Photo:             r.Photo,
	}
}

// enrollSemesterRequest is the semester enrollment form.
type enrollSemesterRequest struct {
	RegistrationNumber string   `json:"registrationNumber" validate:"required,max=16"`
	Name               string   `json:"name" validate:"required,max=200"`
	Semester           string   `json:"semester" validate:"required,oneof=I II"`
	SelectedCourses    []string `json:"selectedCourses" validate:"required,min=1,dive,required"`
	TotalFee           *float64 `json:"totalFee" validate:"required,gte=0"`
	PaymentScreenshot  string   `json:"paymentScreenshot" validate:"omitempty,url"`
}

func (r enrollSemesterRequest) toCommand() command.EnrollSemesterCommand {
	return command.EnrollSemesterCommand{
		RegistrationNumber: strings.ToUpper(strings.TrimSpace(r.RegistrationNumber)),
		Name:               strings.TrimSpace(r.Name),
		Semester:           r.Semester,
		SelectedCourses:    normalizeCodes(r.SelectedCourses),
		TotalFee:           *r.TotalFee,
		PaymentScreenshot:  r.PaymentScreenshot,
	}
}

// updateGradesRequest carries score updates keyed by course code.
type updateGradesRequest struct {
	Grades map[string]scoreUpdateRequest `json:"grades" validate:"required,min=1,dive"`
}

type scoreUpdateRequest struct {
	Score          scoreValue `json:"score"`
	LetterOverride string     `json:"letterOverride" validate:"omitempty,max=2"`
	PointsOverride *float64   `json:"pointsOverride"`
}

// toUpdates normalises course codes. Keys that collapse to the same code,
// like "relb151" and "RELB151", are dropped and rejected together.
func (r updateGradesRequest) toUpdates() (map[string]student.ScoreUpdate, []student.Rejection) {
	seen := make(map[string]int, len(r.Grades))
	for code := range r.Grades {
		seen[normalizeCode(code)]++
	}

	out := make(map[string]student.ScoreUpdate, len(r.Grades))
	var rejected []student.Rejection
	for code, n := range seen {
		if n > 1 {
			rejected = append(rejected, student.Rejection{Code: code, Reason: student.ReasonDuplicateCourse})
		}
	}
	for raw, u := range r.Grades {
		code := normalizeCode(raw)
		if seen[code] > 1 {
			continue
		}
		out[code] = student.ScoreUpdate{
			Score:          u.Score.value,
			LetterOverride: strings.ToUpper(strings.TrimSpace(u.LetterOverride)),
			PointsOverride: u.PointsOverride,
		}
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Code < rejected[j].Code })
	return out, rejected
}

// scoreValue accepts a JSON number or a numeric string. Anything else
// decodes to NaN so the course is rejected on its own instead of failing
// the whole request. Null or absent leaves the value unset.
type scoreValue struct {
	value *float64
}

func (s *scoreValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		s.value = nil
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		s.value = &f
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			s.value = &f
			return nil
		}
	}

	nan := math.NaN()
	s.value = &nan
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, normalizeCode(c))
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING AND VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// errMalformedBody is returned for bodies that are not the expected JSON.
var errMalformedBody = errors.New("malformed request body")

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

// decode reads one JSON object from r into dst and validates it. Field
// problems come back as a map keyed by JSON field path.
func (rv *requestValidator) decode(r *http.Request, dst any) (map[string]string, error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxErr.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", errMalformedBody)
	}

	if err := rv.v.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return validationFields(ve), nil
		}
		return nil, err
	}
	return nil, nil
}

func validationFields(ve validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		key := fe.Field()
		if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
			key = rest
		}
		if _, exists := fields[key]; !exists {
			fields[key] = fieldMessage(fe)
		}
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be YYYY-MM-DD"
	case "url":
		return "must be a URL"
	case "gte":
		return "cannot be less than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must have at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

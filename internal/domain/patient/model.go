package patient

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// Gender is stored as its display string.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

var genders = []Gender{GenderMale, GenderFemale, GenderOther}

// ParseGender accepts any letter case ("male", "FEMALE") and returns the
// canonical variant.
func ParseGender(s string) (Gender, error) {
	s = strings.TrimSpace(s)
	for _, g := range genders {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", apperr.Validation("gender must be one of Male, Female, Other")
}

// decodeGender maps a stored value back to a variant; stored values are exact.
func decodeGender(s string) (Gender, error) {
	for _, g := range genders {
		if s == string(g) {
			return g, nil
		}
	}
	return "", apperr.Decoding("stored gender %q is not a known value", s)
}

func (g Gender) Valid() bool {
	_, err := decodeGender(string(g))
	return err == nil
}

// Patient maps to the patients table.
type Patient struct {
	ID               uuid.UUID    `json:"id"`
	PatientNumber    string       `json:"patient_number"`
	RegistrationDate caldate.Date `json:"registration_date"`
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	DateOfBirth      caldate.Date `json:"date_of_birth"`
	Gender           Gender       `json:"gender"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// AgeAt returns completed years of age on today; zero for a birth date in the future.
func (p *Patient) AgeAt(today caldate.Date) int {
	dob := p.DateOfBirth
	if dob.IsZero() || today.Before(dob) {
		return 0
	}
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

// Validate applies the registration form rules.
func (p *Patient) Validate() error {
	switch {
	case !lengthBetween(p.PatientNumber, 3, 20):
		return apperr.Validation("patient number must be 3-20 characters")
	case !lengthBetween(p.FirstName, 2, 50):
		return apperr.Validation("first name must be 2-50 characters")
	case !lengthBetween(p.LastName, 2, 50):
		return apperr.Validation("last name must be 2-50 characters")
	case p.RegistrationDate.IsZero():
		return apperr.Validation("registration date is required")
	case p.DateOfBirth.IsZero():
		return apperr.Validation("date of birth is required")
	case p.DateOfBirth.After(p.RegistrationDate):
		return apperr.Validation("date of birth cannot be after the registration date")
	case !p.Gender.Valid():
		return apperr.Validation("gender must be one of Male, Female, Other")
	}
	return nil
}

// normalize trims the free-text fields the way the registration form does.
func (p *Patient) normalize() {
	p.PatientNumber = strings.TrimSpace(p.PatientNumber)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
}

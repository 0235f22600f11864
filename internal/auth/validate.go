package auth

import (
	"strconv"
	"strings"
	"time"
)

// Sign-up validation messages, in the order the checks run.
const (
	MsgRequiredFields = "please fill in all fields"
	MsgAcceptTerms    = "you must accept the terms and conditions"
	MsgInvalidDay     = "day must be a number between 01 and 31"
	MsgInvalidMonth   = "month must be a number between 01 and 12"
	MsgInvalidYear    = "year must be a 4-digit number"
	MsgInvalidBirth   = "invalid date of birth"
	MsgUnderAge       = "you must be at least 14 years old to register"
	MsgPasswordLong   = "password must be at most 72 bytes long"
)

// MinimumAge is the youngest age allowed to register.
const MinimumAge = 14

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ValidationError is a displayable message about one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SignUpInput carries the registration form.
type SignUpInput struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Day         string `json:"day"`
	Month       string `json:"month"`
	Year        string `json:"year"`
	AcceptTerms bool   `json:"acceptTerms"`
}

// DateOfBirth formats the birth date as stored on the profile.
func (in SignUpInput) DateOfBirth() string {
	return in.Month + "/" + in.Day + "/" + in.Year
}

// ValidateSignUp runs the local checks in a fixed order and reports the first
// failure. On success it returns the parsed birth date.
func ValidateSignUp(in SignUpInput, now time.Time) (time.Time, error) {
	for _, v := range []string{in.FullName, in.Email, in.PhoneNumber, in.Username, in.Password} {
		if strings.TrimSpace(v) == "" {
			return time.Time{}, &ValidationError{Field: "required", Message: MsgRequiredFields}
		}
	}
	if !in.AcceptTerms {
		return time.Time{}, &ValidationError{Field: "terms", Message: MsgAcceptTerms}
	}

	day, ok := number(in.Day, 2)
	if !ok || day < 1 || day > 31 {
		return time.Time{}, &ValidationError{Field: "day", Message: MsgInvalidDay}
	}
	month, ok := number(in.Month, 2)
	if !ok || month < 1 || month > 12 {
		return time.Time{}, &ValidationError{Field: "month", Message: MsgInvalidMonth}
	}
	year, ok := number(in.Year, 4)
	if !ok {
		return time.Time{}, &ValidationError{Field: "year", Message: MsgInvalidYear}
	}

	birth := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if birth.Day() != day || birth.Month() != time.Month(month) || birth.After(now) {
		return time.Time{}, &ValidationError{Field: "dateOfBirth", Message: MsgInvalidBirth}
	}
	if Age(birth, now) < MinimumAge {
		return time.Time{}, &ValidationError{Field: "age", Message: MsgUnderAge}
	}
	if len(in.Password) > MaxPasswordBytes {
		return time.Time{}, passwordTooLong()
	}
	return birth, nil
}

func passwordTooLong() *ValidationError {
	return &ValidationError{Field: "password", Message: MsgPasswordLong}
}

// Age counts whole calendar years from birth to now.
func Age(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func number(s string, digits int) (int, bool) {
	if len(s) != digits {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

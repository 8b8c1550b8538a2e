package models

import (
	"fmt"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
	GenderOther  Gender = "o"
)

// Candidate holds a candidate's contact details. Email may be empty:
// such candidates are valid records but are skipped by letter dispatch.
type Candidate struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	Surname     string     `json:"surname"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      Gender     `json:"gender"`
	PhoneNumber string     `json:"phone_number"`
	Email       string     `json:"email,omitempty"`

	EnglishLevel       string `json:"english_level,omitempty"`
	Notes              string `json:"notes,omitempty"`
	AdditionalContacts string `json:"additional_contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Candidate) FullName() string {
	return fmt.Sprintf("%s %s", c.FirstName, c.Surname)
}

// Age returns the candidate's age in whole years as of now, or 0 when the
// date of birth is unknown.
func (c *Candidate) Age() int {
	return c.AgeAt(time.Now())
}

// AgeAt computes the age at a given instant, counting a birthday that has
// not yet occurred this year as one year less.
func (c *Candidate) AgeAt(now time.Time) int {
	if c.DateOfBirth == nil {
		return 0
	}
	dob := *c.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func (c *Candidate) HasEmail() bool {
	return c.Email != ""
}

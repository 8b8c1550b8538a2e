package models

import (
	"fmt"
	"time"
)

// Vacancy is an open position a recruiting team hires for. Only the fields
// surfaced as template keywords plus a few bookkeeping flags are kept here.
type Vacancy struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	EmploymentType string    `json:"employment_type"`
	Location       string    `json:"location"`
	EnglishLevel   string    `json:"english_level"`
	MinExperience  string    `json:"min_experience,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Description    string    `json:"description"`

	SalaryMin      int    `json:"salary_min"`
	SalaryMax      int    `json:"salary_max"`
	SalaryCurrency string `json:"salary_currency"`

	IsActive      bool `json:"is_active"`
	IsSalaryShown bool `json:"is_salary_shown"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchPeriod returns the length of the recruitment window.
func (v *Vacancy) SearchPeriod() time.Duration {
	if v.EndDate.Before(v.StartDate) {
		return 0
	}
	return v.EndDate.Sub(v.StartDate)
}

// SalaryRange formats the salary fork for display, e.g. "1500-3000 USD".
func (v *Vacancy) SalaryRange() string {
	return fmt.Sprintf("%d-%d %s", v.SalaryMin, v.SalaryMax, v.SalaryCurrency)
}

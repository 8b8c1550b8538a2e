package render

import (
	"strconv"
	"time"

	"talentmail/internal/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// BuildContext assembles the substitution map for one recipient. Merge
// order is increasing precedence: caller-supplied extras first, then
// vacancy, event and finally candidate keys, so on a name collision the
// candidate's value wins.
func BuildContext(extra map[string]string, c *models.Candidate, v *models.Vacancy, e *models.Event) map[string]string {
	ctx := make(map[string]string, len(extra)+24)
	for k, val := range extra {
		ctx[k] = val
	}
	mergeVacancyKeywords(ctx, v)
	mergeEventKeywords(ctx, e)
	mergeCandidateKeywords(ctx, c)
	return ctx
}

// Keywords returns only the entity-derived keys, without caller extras.
func Keywords(c *models.Candidate, v *models.Vacancy, e *models.Event) map[string]string {
	return BuildContext(nil, c, v, e)
}

func mergeCandidateKeywords(ctx map[string]string, c *models.Candidate) {
	if c == nil {
		return
	}
	ctx["candidate_fullname"] = c.FullName()
	ctx["candidate_firstname"] = c.FirstName
	ctx["candidate_lastname"] = c.Surname
	ctx["candidate_age"] = strconv.Itoa(c.Age())
}

func mergeVacancyKeywords(ctx map[string]string, v *models.Vacancy) {
	if v == nil {
		return
	}
	ctx["vacancy_title"] = v.Title
	ctx["vacancy_employment_type"] = v.EmploymentType
	ctx["vacancy_location"] = v.Location
	ctx["vacancy_english_level"] = v.EnglishLevel
	ctx["vacancy_min_experience"] = v.MinExperience
	ctx["vacancy_start_date"] = v.StartDate.Format(dateLayout)
	ctx["vacancy_end_date"] = v.EndDate.Format(dateLayout)
	ctx["vacancy_description"] = v.Description
	ctx["vacancy_salary_min"] = strconv.Itoa(v.SalaryMin)
	ctx["vacancy_salary_max"] = strconv.Itoa(v.SalaryMax)
	ctx["vacancy_salary_currency"] = v.SalaryCurrency
}

func mergeEventKeywords(ctx map[string]string, e *models.Event) {
	if e == nil {
		return
	}
	ctx["event_title"] = e.Title
	ctx["event_description"] = e.Description
	ctx["event_type"] = e.EventType
	ctx["event_start_time"] = e.StartTime.Format(dateTimeLayout)
	ctx["event_end_time"] = e.EndTime.Format(dateTimeLayout)
	ctx["event_duration"] = formatDuration(e.Duration)
}

// formatDuration trims the zero-second tail Go puts on round durations,
// so "1h30m0s" reads as "1h30m" in an email.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	s := d.String()
	if len(s) > 2 && s[len(s)-2:] == "0s" && d%time.Minute == 0 && d != 0 {
		s = s[:len(s)-2]
	}
	return s
}

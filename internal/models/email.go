package models

import "time"

type LetterStatus string

const (
	LetterDraft      LetterStatus = "draft"
	LetterInProgress LetterStatus = "in_progress"
	LetterSent       LetterStatus = "sent"
)

// EmailTemplate is a reusable subject/body pair authored by a recruiter.
// Subject and body are stored verbatim; placeholders like {{candidate_fullname}}
// are resolved only at render time, so a template is never validated against
// a fixed keyword schema.
type EmailTemplate struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`

	AuthorID *int64 `json:"author_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailLetter is a concrete send job: one template, a set of candidate
// recipients and optionally a vacancy and an event whose fields feed the
// template keywords.
//
// Status only moves forward (draft -> in_progress -> sent) and SentAt is
// written exactly once, when a dispatch finishes without a transport error.
type EmailLetter struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	TemplateID int64        `json:"template_id"`
	Status     LetterStatus `json:"status"`

	VacancyID *int64 `json:"vacancy_id,omitempty"`
	EventID   *int64 `json:"event_id,omitempty"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (l *EmailLetter) IsSent() bool {
	return l.Status == LetterSent
}

package models

import "time"

type EventStatus int

const (
	EventActive EventStatus = iota + 1
	EventCompleted
	EventCancelled
)

// Event is a recruiting activity (interview, call, meeting) that candidates
// and staff participate in. Duration is fixed at creation time from the
// start/end pair rather than recomputed on read.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type,omitempty"`
	Priority    int    `json:"priority"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Status EventStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeDuration derives Duration from the start/end pair. Called when an
// event is created or its times change.
func (e *Event) ComputeDuration() {
	e.Duration = e.EndTime.Sub(e.StartTime)
}

func (e *Event) IsActive() bool    { return e.Status == EventActive }
func (e *Event) IsCompleted() bool { return e.Status == EventCompleted }
func (e *Event) IsCancelled() bool { return e.Status == EventCancelled }

func (e *Event) MarkActive()    { e.Status = EventActive }
func (e *Event) MarkCompleted() { e.Status = EventCompleted }
func (e *Event) MarkCancelled() { e.Status = EventCancelled }

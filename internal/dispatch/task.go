package dispatch

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeLetterDispatch is the queue task type for sending one letter.
const TypeLetterDispatch = "letter:dispatch"

// DispatchPayload carries everything a dispatch invocation needs. The extra
// context is caller-supplied keyword substitutions; entity-derived keywords
// merged on top of it can override individual keys.
type DispatchPayload struct {
	LetterID     int64             `json:"letter_id"`
	ExtraContext map[string]string `json:"extra_context,omitempty"`
}

// NewDispatchTask builds the queue task for a letter. The caller enqueues it
// and returns immediately; delivery outcome is only observable through the
// letter's status and sent_at fields.
func NewDispatchTask(letterID int64, extra map[string]string) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{
		LetterID:     letterID,
		ExtraContext: extra,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLetterDispatch, payload), nil
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"talentmail/internal/db"
	"talentmail/internal/email"
	"talentmail/internal/metrics"
	"talentmail/internal/models"
	"talentmail/internal/render"
)

// LetterStore is the slice of persistence the dispatcher needs. *db.Store
// implements it; tests use in-memory fakes.
type LetterStore interface {
	GetLetter(ctx context.Context, id int64) (*models.EmailLetter, error)
	GetTemplate(ctx context.Context, id int64) (*models.EmailTemplate, error)
	GetVacancy(ctx context.Context, id int64) (*models.Vacancy, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListRecipients(ctx context.Context, letterID int64) ([]models.Candidate, error)
	ClaimLetter(ctx context.Context, id int64) (bool, error)
	MarkLetterSent(ctx context.Context, id int64) error
	SetLetterSentAt(ctx context.Context, id int64, at time.Time) error
}

// Dispatcher renders and sends one letter per task invocation. Recipients
// are processed strictly sequentially; a transport failure on any of them
// fails the whole invocation, which the queue redelivers after a fixed
// delay. There is no per-recipient sent ledger, so a retried invocation may
// mail early recipients again: delivery is at-least-once.
type Dispatcher struct {
	Store     LetterStore
	Transport email.Transport
	Limiter   *rate.Limiter
	Clock     Clock
	Log       *zap.Logger
}

// HandleDispatchTask is the asynq handler for TypeLetterDispatch.
func (d *Dispatcher) HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	var payload DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal dispatch payload: %v: %w", err, asynq.SkipRetry)
	}
	return d.Dispatch(ctx, payload.LetterID, payload.ExtraContext)
}

// Dispatch runs one pass over the letter's recipients. Errors wrapping
// asynq.SkipRetry are fatal preconditions (missing records, broken
// template); everything else is handed back to the queue for retry.
func (d *Dispatcher) Dispatch(ctx context.Context, letterID int64, extra map[string]string) error {
	letter, err := d.Store.GetLetter(ctx, letterID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("dispatch letter: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("dispatch letter %d: %w", letterID, err)
	}

	if letter.IsSent() {
		// Queue redelivery after the final attempt already succeeded. If
		// that attempt marked the letter sent but died before recording the
		// timestamp, finish the job here so a sent letter always carries a
		// sent_at.
		if letter.SentAt == nil {
			if err := d.Store.SetLetterSentAt(ctx, letter.ID, d.Clock.Now()); err != nil {
				return fmt.Errorf("backfill sent_at for letter %d: %w", letter.ID, err)
			}
		}
		d.Log.Info("letter already sent, skipping dispatch",
			zap.Int64("letter_id", letter.ID),
		)
		return nil
	}

	template, err := d.Store.GetTemplate(ctx, letter.TemplateID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("dispatch letter %d: %v: %w", letter.ID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("dispatch letter %d: %w", letter.ID, err)
	}

	var vacancy *models.Vacancy
	if letter.VacancyID != nil {
		if vacancy, err = d.Store.GetVacancy(ctx, *letter.VacancyID); err != nil {
			return d.entityErr(letter.ID, err)
		}
	}

	var event *models.Event
	if letter.EventID != nil {
		if event, err = d.Store.GetEvent(ctx, *letter.EventID); err != nil {
			return d.entityErr(letter.ID, err)
		}
	}

	claimed, err := d.Store.ClaimLetter(ctx, letter.ID)
	if err != nil {
		return fmt.Errorf("claim letter %d: %w", letter.ID, err)
	}
	if !claimed {
		// Another trigger finished this letter between the read above and
		// the claim.
		d.Log.Info("letter claim refused, skipping dispatch",
			zap.Int64("letter_id", letter.ID),
		)
		return nil
	}

	recipients, err := d.Store.ListRecipients(ctx, letter.ID)
	if err != nil {
		return fmt.Errorf("list recipients for letter %d: %w", letter.ID, err)
	}

	sent := 0
	for i := range recipients {
		candidate := &recipients[i]
		if !candidate.HasEmail() {
			metrics.RecipientsSkipped.Inc()
			continue
		}

		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter for letter %d: %w", letter.ID, err)
			}
		}

		kw := render.BuildContext(extra, candidate, vacancy, event)

		subject, err := render.Render(template.Subject, kw)
		if err != nil {
			return fmt.Errorf("render subject of template %d: %v: %w", template.ID, err, asynq.SkipRetry)
		}
		htmlBody, err := render.Render(template.Body, kw)
		if err != nil {
			return fmt.Errorf("render body of template %d: %v: %w", template.ID, err, asynq.SkipRetry)
		}

		msg := email.Message{
			To:        candidate.Email,
			Subject:   subject,
			HTMLBody:  htmlBody,
			PlainBody: render.StripTags(htmlBody),
		}

		if err := d.Transport.Send(ctx, msg); err != nil {
			metrics.EmailFailures.Inc()
			metrics.DispatchRetries.Inc()
			d.Log.Error("email send failed",
				zap.Int64("letter_id", letter.ID),
				zap.String("to", candidate.Email),
				zap.Error(err),
			)
			// The letter stays in_progress; the queue redelivers the whole
			// task after the configured delay.
			return fmt.Errorf("send letter %d to %s: %w", letter.ID, candidate.Email, err)
		}

		metrics.EmailsSent.Inc()
		sent++
	}

	if err := d.Store.MarkLetterSent(ctx, letter.ID); err != nil {
		return fmt.Errorf("mark letter %d sent: %w", letter.ID, err)
	}
	if err := d.Store.SetLetterSentAt(ctx, letter.ID, d.Clock.Now()); err != nil {
		return fmt.Errorf("set sent_at for letter %d: %w", letter.ID, err)
	}

	metrics.LettersDispatched.Inc()
	d.Log.Info("letter dispatched",
		zap.Int64("letter_id", letter.ID),
		zap.Int("recipients_mailed", sent),
		zap.Int("recipients_total", len(recipients)),
	)
	return nil
}

func (d *Dispatcher) entityErr(letterID int64, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("dispatch letter %d: %v: %w", letterID, err, asynq.SkipRetry)
	}
	return fmt.Errorf("dispatch letter %d: %w", letterID, err)
}

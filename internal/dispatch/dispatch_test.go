package dispatch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"talentmail/internal/db"
	"talentmail/internal/dispatch"
	"talentmail/internal/email"
	"talentmail/internal/models"
)

// --- Fakes ---

type fakeStore struct {
	letter     *models.EmailLetter
	template   *models.EmailTemplate
	vacancy    *models.Vacancy
	event      *models.Event
	recipients []models.Candidate

	claims int
}

func (f *fakeStore) GetLetter(_ context.Context, id int64) (*models.EmailLetter, error) {
	if f.letter == nil || f.letter.ID != id {
		return nil, fmt.Errorf("letter %d: %w", id, db.ErrNotFound)
	}
	cp := *f.letter
	return &cp, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id int64) (*models.EmailTemplate, error) {
	if f.template == nil || f.template.ID != id {
		return nil, fmt.Errorf("template %d: %w", id, db.ErrNotFound)
	}
	cp := *f.template
	return &cp, nil
}

func (f *fakeStore) GetVacancy(_ context.Context, id int64) (*models.Vacancy, error) {
	if f.vacancy == nil || f.vacancy.ID != id {
		return nil, fmt.Errorf("vacancy %d: %w", id, db.ErrNotFound)
	}
	cp := *f.vacancy
	return &cp, nil
}

func (f *fakeStore) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, fmt.Errorf("event %d: %w", id, db.ErrNotFound)
	}
	cp := *f.event
	return &cp, nil
}

func (f *fakeStore) ListRecipients(_ context.Context, _ int64) ([]models.Candidate, error) {
	return f.recipients, nil
}

func (f *fakeStore) ClaimLetter(_ context.Context, id int64) (bool, error) {
	f.claims++
	if f.letter.Status == models.LetterSent {
		return false, nil
	}
	f.letter.Status = models.LetterInProgress
	return true, nil
}

func (f *fakeStore) MarkLetterSent(_ context.Context, id int64) error {
	if f.letter.Status == models.LetterInProgress {
		f.letter.Status = models.LetterSent
	}
	return nil
}

func (f *fakeStore) SetLetterSentAt(_ context.Context, id int64, at time.Time) error {
	if f.letter.SentAt == nil {
		f.letter.SentAt = &at
	}
	return nil
}

type fakeTransport struct {
	sent     []email.Message
	failures int
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("smtp send to %s: %w: connection refused", msg.To, email.ErrTransient)
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// --- Fixtures ---

var dispatchedAt = time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

func newStore() *fakeStore {
	return &fakeStore{
		letter: &models.EmailLetter{
			ID:         1,
			Name:       "Outreach batch",
			TemplateID: 10,
			Status:     models.LetterDraft,
		},
		template: &models.EmailTemplate{
			ID:      10,
			Name:    "outreach",
			Subject: "Opportunity for {{candidate_firstname}}",
			Body:    "Hello {{candidate_fullname}}",
		},
		recipients: []models.Candidate{
			{ID: 100, FirstName: "Jane", Surname: "Doe", Email: "jane@example.com"},
		},
	}
}

func newDispatcher(store *fakeStore, transport *fakeTransport) *dispatch.Dispatcher {
	return &dispatch.Dispatcher{
		Store:     store,
		Transport: transport,
		Clock:     fixedClock{now: dispatchedAt},
		Log:       zap.NewNop(),
	}
}

// --- Tests ---

func TestDispatchRendersAndSends(t *testing.T) {
	t.Parallel()

	store := newStore()
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "Opportunity for Jane", msg.Subject)
	assert.Equal(t, "Hello Jane Doe", msg.HTMLBody)
	assert.Equal(t, "Hello Jane Doe", msg.PlainBody)

	assert.Equal(t, models.LetterSent, store.letter.Status)
	require.NotNil(t, store.letter.SentAt)
	assert.Equal(t, dispatchedAt, *store.letter.SentAt)
}

func TestDispatchSkipsRecipientsWithoutEmail(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.recipients = append(store.recipients,
		models.Candidate{ID: 101, FirstName: "No", Surname: "Address"},
	)
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	// Exactly one attempt: the address-less candidate is silently excluded.
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "jane@example.com", transport.sent[0].To)
	assert.Equal(t, models.LetterSent, store.letter.Status)
}

func TestDispatchRetriesWholeLetterOnTransientFailure(t *testing.T) {
	t.Parallel()

	store := newStore()
	transport := &fakeTransport{failures: 1}
	d := newDispatcher(store, transport)

	// First pass: transport fails, the invocation errors out for the queue
	// to redeliver, and the letter stays in progress.
	err := d.Dispatch(context.Background(), 1, nil)
	require.Error(t, err)
	assert.True(t, email.IsTransient(err))
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, models.LetterInProgress, store.letter.Status)
	assert.Nil(t, store.letter.SentAt)

	// Redelivery with the transport recovered: the whole letter is
	// reprocessed and completes.
	err = d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, models.LetterSent, store.letter.Status)
	require.NotNil(t, store.letter.SentAt)
}

func TestDispatchLetterNotFoundIsFatal(t *testing.T) {
	t.Parallel()

	d := newDispatcher(newStore(), &fakeTransport{})

	err := d.Dispatch(context.Background(), 99, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDispatchTemplateNotFoundIsFatal(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.letter.TemplateID = 999
	d := newDispatcher(store, &fakeTransport{})

	err := d.Dispatch(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDispatchUnattachedVacancyRendersEmpty(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.template.Body = "Regarding {{vacancy_title}}: hello."
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Regarding : hello.", transport.sent[0].HTMLBody)
}

func TestDispatchAlreadySentLetterIsNoop(t *testing.T) {
	t.Parallel()

	sentAt := dispatchedAt.Add(-time.Hour)
	store := newStore()
	store.letter.Status = models.LetterSent
	store.letter.SentAt = &sentAt
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	assert.Empty(t, transport.sent)
	assert.Equal(t, 0, store.claims)
	assert.Equal(t, sentAt, *store.letter.SentAt)
}

func TestDispatchBackfillsSentAtOnRedelivery(t *testing.T) {
	t.Parallel()

	// A previous attempt marked the letter sent but died before writing the
	// timestamp. The redelivered task must fill in sent_at without mailing
	// anyone again.
	store := newStore()
	store.letter.Status = models.LetterSent
	store.letter.SentAt = nil
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	assert.Empty(t, transport.sent)
	require.NotNil(t, store.letter.SentAt)
	assert.Equal(t, dispatchedAt, *store.letter.SentAt)
}

func TestDispatchEntityKeywordsBeatExtraContext(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.template.Body = "{{candidate_fullname}} / {{promo_code}}"
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	extra := map[string]string{
		"candidate_fullname": "Wrong Name",
		"promo_code":         "REF-2026",
	}
	err := d.Dispatch(context.Background(), 1, extra)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Jane Doe / REF-2026", transport.sent[0].HTMLBody)
}

func TestDispatchVacancyAndEventKeywords(t *testing.T) {
	t.Parallel()

	vacancyID := int64(20)
	eventID := int64(30)

	store := newStore()
	store.letter.VacancyID = &vacancyID
	store.letter.EventID = &eventID
	store.vacancy = &models.Vacancy{
		ID:             vacancyID,
		Title:          "Go Developer",
		SalaryMin:      3000,
		SalaryMax:      5000,
		SalaryCurrency: "USD",
	}
	event := &models.Event{
		ID:        eventID,
		Title:     "Technical interview",
		StartTime: time.Date(2026, time.September, 1, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC),
	}
	event.ComputeDuration()
	store.event = event

	store.template.Body = "{{vacancy_title}} interview: {{event_title}} at {{event_start_time}}"
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t,
		"Go Developer interview: Technical interview at 2026-09-01 14:00",
		transport.sent[0].HTMLBody,
	)
}

func TestDispatchStripsHTMLForPlainPart(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.template.Body = "<p>Hello {{candidate_fullname}}</p><p>See you soon</p>"
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	err := d.Dispatch(context.Background(), 1, nil)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "<p>Hello Jane Doe</p><p>See you soon</p>", transport.sent[0].HTMLBody)
	assert.Equal(t, "Hello Jane Doe\nSee you soon", transport.sent[0].PlainBody)
}

func TestHandleDispatchTask(t *testing.T) {
	t.Parallel()

	store := newStore()
	transport := &fakeTransport{}
	d := newDispatcher(store, transport)

	task, err := dispatch.NewDispatchTask(1, map[string]string{"promo_code": "REF-2026"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.TypeLetterDispatch, task.Type())

	err = d.HandleDispatchTask(context.Background(), task)
	require.NoError(t, err)
	assert.Len(t, transport.sent, 1)
	assert.Equal(t, models.LetterSent, store.letter.Status)
}

func TestHandleDispatchTaskBadPayload(t *testing.T) {
	t.Parallel()

	d := newDispatcher(newStore(), &fakeTransport{})

	task := asynq.NewTask(dispatch.TypeLetterDispatch, []byte("{not json"))
	err := d.HandleDispatchTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDispatchPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	task, err := dispatch.NewDispatchTask(42, map[string]string{"k": "v"})
	require.NoError(t, err)

	var payload dispatch.DispatchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.LetterID)
	assert.Equal(t, "v", payload.ExtraContext["k"])
}

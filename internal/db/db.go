package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentmail/internal/models"
)

// ErrNotFound is returned for lookups of records that do not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(conn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), conn)
	if err != nil {
		return nil, err
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

// ----------------------------
// Templates
// ----------------------------

func (s *Store) InsertTemplate(ctx context.Context, t *models.EmailTemplate) error {
	return s.Pool.QueryRow(ctx,
		`INSERT INTO email_templates
		 (name, description, subject, body, author_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		 RETURNING id`,
		t.Name,
		t.Description,
		t.Subject,
		t.Body,
		t.AuthorID,
	).Scan(&t.ID)
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description,''), subject, body, author_id, created_at, updated_at
		 FROM email_templates
		 WHERE id=$1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Subject, &t.Body, &t.AuthorID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ----------------------------
// Letters
// ----------------------------

// InsertLetter creates a letter in draft status together with its recipient
// membership rows, in one transaction.
func (s *Store) InsertLetter(ctx context.Context, l *models.EmailLetter, recipientIDs []int64) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO email_letters
		 (name, template_id, status, vacancy_id, event_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		 RETURNING id`,
		l.Name,
		l.TemplateID,
		models.LetterDraft,
		l.VacancyID,
		l.EventID,
	).Scan(&l.ID)
	if err != nil {
		return err
	}
	l.Status = models.LetterDraft

	for _, cid := range recipientIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO email_letter_recipients (letter_id, candidate_id)
			 VALUES ($1,$2)
			 ON CONFLICT DO NOTHING`,
			l.ID, cid,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetLetter(ctx context.Context, id int64) (*models.EmailLetter, error) {
	var l models.EmailLetter
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, template_id, status, vacancy_id, event_id, sent_at, created_at, updated_at
		 FROM email_letters
		 WHERE id=$1`,
		id,
	).Scan(&l.ID, &l.Name, &l.TemplateID, &l.Status, &l.VacancyID, &l.EventID, &l.SentAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("letter %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ClaimLetter conditionally moves a letter into in_progress. Only draft and
// in_progress letters match, so a letter that already went out is never
// claimed again and two concurrent triggers cannot both start from draft.
// Touches the status field only.
func (s *Store) ClaimLetter(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE email_letters
		 SET status=$1,
		     updated_at=NOW()
		 WHERE id=$2 AND status IN ($3,$4)`,
		models.LetterInProgress,
		id,
		models.LetterDraft,
		models.LetterInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkLetterSent finishes the forward-only status walk. Touches the status
// field only.
func (s *Store) MarkLetterSent(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE email_letters
		 SET status=$1,
		     updated_at=NOW()
		 WHERE id=$2 AND status=$3`,
		models.LetterSent,
		id,
		models.LetterInProgress,
	)
	return err
}

// SetLetterSentAt records the completion timestamp. Written once per letter;
// an already-set value is left alone.
func (s *Store) SetLetterSentAt(ctx context.Context, id int64, at time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE email_letters
		 SET sent_at=$1
		 WHERE id=$2 AND sent_at IS NULL`,
		at,
		id,
	)
	return err
}

// ListRecipients returns all candidates attached to a letter, including
// those without an email address; dispatch filters those out itself.
func (s *Store) ListRecipients(ctx context.Context, letterID int64) ([]models.Candidate, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT c.id, c.first_name, c.surname, c.date_of_birth, c.gender,
		        c.phone_number, COALESCE(c.email,''), COALESCE(c.english_level,''),
		        c.created_at, c.updated_at
		 FROM candidates c
		 JOIN email_letter_recipients r ON r.candidate_id = c.id
		 WHERE r.letter_id=$1`,
		letterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(
			&c.ID, &c.FirstName, &c.Surname, &c.DateOfBirth, &c.Gender,
			&c.PhoneNumber, &c.Email, &c.EnglishLevel,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ----------------------------
// Candidates / vacancies / events
// ----------------------------

// InsertCandidates creates a batch of candidates in one transaction, so a
// failing row (e.g. a duplicate phone number) rolls the whole import back
// instead of leaving a partial one behind.
func (s *Store) InsertCandidates(ctx context.Context, candidates []models.Candidate) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range candidates {
		c := &candidates[i]
		err := tx.QueryRow(ctx,
			`INSERT INTO candidates
			 (first_name, surname, date_of_birth, gender, phone_number, email, english_level, notes, additional_contacts, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
			 RETURNING id`,
			c.FirstName,
			c.Surname,
			c.DateOfBirth,
			c.Gender,
			c.PhoneNumber,
			c.Email,
			c.EnglishLevel,
			c.Notes,
			c.AdditionalContacts,
		).Scan(&c.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetVacancy(ctx context.Context, id int64) (*models.Vacancy, error) {
	var v models.Vacancy
	err := s.Pool.QueryRow(ctx,
		`SELECT id, title, employment_type, location, english_level,
		        COALESCE(min_experience,''), start_date, end_date, description,
		        salary_min, salary_max, salary_currency, is_active, is_salary_shown,
		        created_at, updated_at
		 FROM vacancies
		 WHERE id=$1`,
		id,
	).Scan(&v.ID, &v.Title, &v.EmploymentType, &v.Location, &v.EnglishLevel,
		&v.MinExperience, &v.StartDate, &v.EndDate, &v.Description,
		&v.SalaryMin, &v.SalaryMax, &v.SalaryCurrency, &v.IsActive, &v.IsSalaryShown,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("vacancy %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var e models.Event
	err := s.Pool.QueryRow(ctx,
		`SELECT id, title, description, COALESCE(event_type,''), priority,
		        start_time, end_time, status, created_at, updated_at
		 FROM events
		 WHERE id=$1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.Priority,
		&e.StartTime, &e.EndTime,
		&e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	e.ComputeDuration()
	return &e, nil
}

// UpdateEventStatus persists an event status change (active/completed/
// cancelled). Touches the status field only.
func (s *Store) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE events
		 SET status=$1,
		     updated_at=NOW()
		 WHERE id=$2`,
		status,
		id,
	)
	return err
}

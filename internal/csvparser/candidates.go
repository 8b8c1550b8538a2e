package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"talentmail/internal/models"
)

const dateLayout = "2006-01-02"

// ParseCandidates reads candidate rows from a CSV with a header row.
// Recognized columns (case-insensitive): first_name, surname, phone_number,
// email, date_of_birth (YYYY-MM-DD), english_level, notes,
// additional_contacts. first_name, surname and phone_number are required
// per row; rows missing any of them are skipped. The phone number is the
// unique contact key, so it cannot be blank. Email may be empty: such a
// candidate is a valid import - it just never receives letters.
//
// maxRows limits how many data rows are parsed (excluding header).
func ParseCandidates(r io.Reader, maxRows int) ([]models.Candidate, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, errors.New("csv header row is empty")
	}

	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"first_name", "surname", "phone_number"} {
		if _, ok := idx[required]; !ok {
			return nil, errors.New("csv must contain a " + required + " column")
		}
	}

	if maxRows <= 0 {
		maxRows = 1000
	}

	field := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	candidates := make([]models.Candidate, 0)
	for len(candidates) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		c := models.Candidate{
			FirstName:          field(record, "first_name"),
			Surname:            field(record, "surname"),
			PhoneNumber:        field(record, "phone_number"),
			Email:              field(record, "email"),
			EnglishLevel:       field(record, "english_level"),
			Notes:              field(record, "notes"),
			AdditionalContacts: field(record, "additional_contacts"),
			Gender:             models.GenderOther,
		}
		if c.FirstName == "" || c.Surname == "" || c.PhoneNumber == "" {
			continue
		}

		if dob := field(record, "date_of_birth"); dob != "" {
			if parsed, err := time.Parse(dateLayout, dob); err == nil {
				c.DateOfBirth = &parsed
			}
		}

		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}

	return candidates, nil
}

package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/gomail.v2"
)

// ErrTransient marks transport-level failures (dial, protocol, connection
// drop) that a later attempt can be expected to recover from. The dispatch
// task retries the whole letter when a send surfaces one.
var ErrTransient = errors.New("transient transport failure")

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Message is one fully rendered email ready for the wire: the HTML body as
// rendered from the template plus the plain-text part stripped from it.
type Message struct {
	To        string
	Subject   string
	HTMLBody  string
	PlainBody string
}

// Transport delivers rendered messages. Implemented by Sender over SMTP;
// tests substitute fakes.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Sender delivers messages over SMTP. The From address is process-wide
// configuration and applied to every message.
type Sender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// RetryWindow bounds the in-call exponential backoff that smooths over
	// short connection blips before the failure is reported upward. Zero
	// means a single attempt.
	RetryWindow time.Duration
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	operation := func() error {
		return s.deliver(msg)
	}

	var err error
	if s.RetryWindow <= 0 {
		err = operation()
	} else {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxElapsedTime = s.RetryWindow
		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	}

	if err != nil {
		// gomail surfaces dial and protocol errors here; all of them are
		// worth a later full-dispatch retry.
		return fmt.Errorf("smtp send to %s: %w: %v", msg.To, ErrTransient, err)
	}
	return nil
}

func (s *Sender) deliver(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	m.AddAlternative("text/html", msg.HTMLBody)

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	return d.DialAndSend(m)
}

// Package notify sends the registration confirmation email.
//
// Delivery is strictly best-effort: the caller invokes it after the
// registration transaction has committed, and a failure here never changes
// the registration outcome.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/Facelessism/Pixel-Phantoms/internal/config"
	"github.com/Facelessism/Pixel-Phantoms/internal/model"
)

// Notifier delivers a registration confirmation for a committed registration.
type Notifier interface {
	Notify(ctx context.Context, user *model.User, event *model.Event) error
}

// confirmationTmpl renders the confirmation body. html/template escapes all
// interpolated fields, so user- and catalog-supplied text is safe to embed.
var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 10px; overflow: hidden; background-color: #f9f9f9;">
  <div style="background: linear-gradient(135deg, #00aaff, #0088cc); padding: 20px; text-align: center; color: white;">
    <h1 style="margin: 0;">Pixel Phantoms</h1>
    <p style="margin: 5px 0 0; font-size: 1.1rem;">Registration Confirmed!</p>
  </div>
  <div style="padding: 30px; color: #333;">
    <p>Hi <strong>{{.FirstName}} {{.LastName}}</strong>,</p>
    <p>Thank you for registering for <strong>{{.EventTitle}}</strong>. We're excited to have you join us!</p>
    <div style="background: #fff; padding: 20px; border-radius: 8px; border: 1px solid #eee; margin: 20px 0;">
      <p style="margin: 0 0 10px;"><strong>Event Details:</strong></p>
      <p style="margin: 5px 0;"><strong>Date:</strong> {{.EventDate}}</p>
      <p style="margin: 5px 0;"><strong>Time:</strong> {{.EventTime}}</p>
      <p style="margin: 5px 0;"><strong>Venue:</strong> {{.Location}}</p>
    </div>
    <p>Please keep this email for your records. If you have any questions, feel free to contact the core committee.</p>
    <p>See you there!</p>
    <p>Best regards,<br>The Pixel Phantoms Team</p>
  </div>
  <div style="background: #eee; padding: 15px; text-align: center; font-size: 0.8rem; color: #777;">
    &copy; {{.Year}} Pixel Phantoms. All rights reserved.
  </div>
</div>
`))

type confirmationData struct {
	FirstName  string
	LastName   string
	EventTitle string
	EventDate  string
	EventTime  string
	Location   string
	Year       int
}

func renderConfirmation(user *model.User, event *model.Event) (string, error) {
	location := event.Location
	if location == "" {
		location = "Online"
	}

	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, confirmationData{
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		EventTitle: event.Title,
		EventDate:  event.Date.Format("January 2, 2006"),
		EventTime:  event.Date.Format("15:04 MST"),
		Location:   location,
		Year:       time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}

// SMTPNotifier sends confirmations through an SMTP relay using gomail.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPNotifier constructs an SMTPNotifier from mail settings.
func NewSMTPNotifier(cfg config.SMTP) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Notify renders and sends the confirmation email.
func (n *SMTPNotifier) Notify(ctx context.Context, user *model.User, event *model.Event) error {
	body, err := renderConfirmation(user, event)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.from, "Pixel Phantoms")
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", "Registration Confirmed: "+event.Title)
	m.SetBody("text/html", body)

	// gomail has no context support; honor cancellation by sending in a
	// goroutine and abandoning the attempt when ctx expires.
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send confirmation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send confirmation: %w", ctx.Err())
	}
}

// LogNotifier logs confirmations instead of sending them. Used in
// development when no SMTP relay is configured.
type LogNotifier struct{}

// Notify logs the would-be confirmation.
func (LogNotifier) Notify(ctx context.Context, user *model.User, event *model.Event) error {
	log.Printf("confirmation for %s: registered for %q on %s", user.Email, event.Title, event.Date.Format(time.RFC3339))
	return nil
}

package skills

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"luna/internal/config"
	"luna/internal/tool"
)

var ErrBadAddress = errors.New("invalid email address")

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPMailer returns nil when SMTP is not configured.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	if !cfg.Configured() {
		return nil
	}
	return &SMTPMailer{cfg: cfg, timeout: 30 * time.Second}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	em := mail.NewMsg()
	if err := em.From(m.cfg.User); err != nil {
		return fmt.Errorf("sender %q: %w", m.cfg.User, err)
	}
	if err := em.To(msg.To); err != nil {
		return fmt.Errorf("recipient %q: %w: %w", msg.To, ErrBadAddress, err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Body)

	auth, policy := mail.SMTPAuthPlain, mail.TLSMandatory
	if !m.cfg.StartTLS {
		auth, policy = mail.SMTPAuthPlainNoEnc, mail.NoTLS
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(auth),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Pass),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(m.timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func mailtoURL(msg Message) string {
	q := url.Values{}
	if msg.Subject != "" {
		q.Set("subject", msg.Subject)
	}
	if msg.Body != "" {
		q.Set("body", msg.Body)
	}
	u := url.URL{Scheme: "mailto", Opaque: msg.To}
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String()
}

// SendEmail delivers over SMTP when configured and otherwise opens a draft
// in the desktop mail client.
func (s *Skills) SendEmail(ctx context.Context, args tool.Args) (tool.Result, error) {
	msg := Message{
		To:      args.String("to"),
		Subject: args.String("subject"),
		Body:    args.String("body"),
	}
	if msg.To == "" {
		return tool.Result{}, tool.InvalidArgument("Please provide a recipient email address.", "No recipient address provided.")
	}

	if s.Mailer != nil {
		if err := s.Mailer.Send(ctx, msg); err != nil {
			if errors.Is(err, ErrBadAddress) {
				return tool.Result{}, tool.Fail(tool.KindInvalidArgument,
					fmt.Sprintf("%s doesn't look like an email address.", msg.To),
					"Invalid recipient address.", err)
			}
			return tool.Result{}, tool.Fail(tool.KindTransport,
				"Sorry, I couldn't send the email.", "Could not send email.", err)
		}
		return tool.Result{
			Output: "Email sent successfully via SMTP.",
			Speech: "Email sent via SMTP.",
		}, nil
	}

	if s.Opener != nil {
		if err := s.Opener.OpenURL(mailtoURL(msg)); err == nil {
			return tool.Result{
				Output: "Email drafted in the default mail client; it has not been sent yet.",
				Speech: "I've opened a draft in your mail client.",
			}, nil
		}
	}

	return tool.Result{}, tool.Fail(tool.KindUnavailable,
		"Email configuration not found. Set the SMTP environment variables.",
		"Email configuration not found.", nil)
}

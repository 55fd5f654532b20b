package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mypropai/manage-api/internal/config"
)

// Mailer delivers portal emails to renters.
type Mailer interface {
	SendInvite(recipientEmail, renterName, inviteURL string) error
	SendPasswordReset(recipientEmail, resetURL string) error
}

// SMTPMailer sends portal emails using an SMTP server.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer constructs a new SMTPMailer from config.
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

// SendInvite dispatches a portal activation email to a renter.
func (m *SMTPMailer) SendInvite(recipientEmail, renterName, inviteURL string) error {
	body := strings.Builder{}
	body.WriteString(fmt.Sprintf("Hello %s,\n\n", renterName))
	body.WriteString("Your landlord has invited you to the MyPropAI renter portal, where you can\n")
	body.WriteString("view your lease, check your balance, and send maintenance requests.\n\n")
	body.WriteString("Click the link below to set your password and activate your account:\n\n")
	body.WriteString(inviteURL + "\n\n")
	body.WriteString("This invitation is valid for a limited time. If you did not expect this email, you can ignore it.\n\n")
	body.WriteString("Thanks,\nThe MyPropAI Team\n")

	return m.send(recipientEmail, "You have been invited to the MyPropAI renter portal", body.String())
}

// SendPasswordReset dispatches a password reset email to an activated renter.
func (m *SMTPMailer) SendPasswordReset(recipientEmail, resetURL string) error {
	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString("We received a request to reset your MyPropAI portal password.\n")
	body.WriteString("Click the link below to choose a new one:\n\n")
	body.WriteString(resetURL + "\n\n")
	body.WriteString("The link expires shortly. If you did not request a reset, no action is needed.\n\n")
	body.WriteString("Thanks,\nThe MyPropAI Team\n")

	return m.send(recipientEmail, "Reset your MyPropAI portal password", body.String())
}

func (m *SMTPMailer) send(recipient, subject, body string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipient, subject)

	message := []byte(headers + body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{recipient}, message)
}

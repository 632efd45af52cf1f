package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"digital_legacy_echo/internal/config"
	"digital_legacy_echo/internal/models"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService(cfg config.Config) *EmailService {
	return &EmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.EmailFrom,
	}
}

// Configured reports whether SMTP credentials are present.
func (s *EmailService) Configured() bool {
	return s.host != "" && s.port != "" && s.user != "" && s.password != ""
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if !s.Configured() {
		return fmt.Errorf("SMTP credentials not fully configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, to, buildMessage(s.from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmation mails the customer a summary of a completed order.
func (s *EmailService) SendOrderConfirmation(order models.Order) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}
	subject, body := OrderConfirmationEmail(order)
	return s.SendEmail([]string{order.CustomerEmail}, subject, body)
}

// OrderConfirmationEmail renders the subject and plain-text body of the confirmation mail.
func OrderConfirmationEmail(order models.Order) (string, string) {
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)

	var b strings.Builder
	name := order.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "We received your payment for order %s.\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Plan: %s (%s)\n", order.PlanName, order.BillingCycle)
	fmt.Fprintf(&b, "Total: %s %s\n", order.PayableAmount().StringFixed(0), order.Currency)
	if renews := order.RenewsAt(); renews != nil {
		fmt.Fprintf(&b, "Renews on: %s\n", renews.Format("2006-01-02"))
	}
	b.WriteString("\nThank you for your purchase.\n")
	return subject, b.String()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", from, strings.Join(to, ", "), subject, body))
}

package email

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

type EmailService struct {
	client       *resend.Client
	from         string
	fromName     string
	templatesDir string
	logger       *zap.Logger
}

func NewEmailService(logger *zap.Logger) *EmailService {
	return &EmailService{
		client:       resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:         os.Getenv("EMAIL_FROM_ADDRESS"),
		fromName:     os.Getenv("EMAIL_FROM_NAME"),
		templatesDir: "pkg/email/templates",
		logger:       logger,
	}
}

func (s *EmailService) SendWelcomeEmail(email, fullName string) error {
	html, err := s.parseTemplate("welcome.html", map[string]interface{}{
		"FullName": fullName,
		"Email":    email,
		"Year":     time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(email, "Welcome to OwlRSVP!", html)
}

func (s *EmailService) SendPasswordResetEmail(email string, resetToken string) error {
	resetLink := os.Getenv("FRONTEND_URL") + "/reset-password?token=" + resetToken

	html, err := s.parseTemplate("reset-password.html", map[string]interface{}{
		"ResetLink": resetLink,
		"Email":     email,
		"Year":      time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(email, "Reset Your Password - OwlRSVP", html)
}

func (s *EmailService) SendVerificationEmail(email, fullName, token string) error {
	verificationLink := os.Getenv("FRONTEND_URL") + "/verify-email?token=" + token

	html, err := s.parseTemplate("verify-email.html", map[string]interface{}{
		"FullName":         fullName,
		"VerificationLink": verificationLink,
		"Email":            email,
		"Year":             time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(email, "Verify Your Email - OwlRSVP", html)
}

// SendRSVPNotification tells the organizer about a new or updated response.
func (s *EmailService) SendRSVPNotification(organizerEmail, eventTitle, guestName string, attending bool, partySize int) error {
	html, err := s.parseTemplate("rsvp-notification.html", map[string]interface{}{
		"EventTitle": eventTitle,
		"GuestName":  guestName,
		"Attending":  attending,
		"PartySize":  partySize,
		"Year":       time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(organizerEmail, "New RSVP for "+eventTitle, html)
}

// SendRSVPConfirmation confirms a guest's own response, when they left an
// email address.
func (s *EmailService) SendRSVPConfirmation(guestEmail, eventTitle string, attending bool) error {
	html, err := s.parseTemplate("rsvp-confirmation.html", map[string]interface{}{
		"EventTitle": eventTitle,
		"Attending":  attending,
		"Year":       time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(guestEmail, "Your RSVP for "+eventTitle, html)
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Error("email send failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	s.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("id", resp.Id))
	return nil
}

func (s *EmailService) parseTemplate(templateName string, data interface{}) (string, error) {
	templatePath := filepath.Join(s.templatesDir, templateName)

	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}

	return body.String(), nil
}

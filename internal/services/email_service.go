package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/logger"
)

// Mailer is the subset of EmailService the workflows depend on.
type Mailer interface {
	SendInvite(to, name, token string) error
	SendMagicLink(to, token string) error
	SendPasswordReset(to, name, link string) error
	SendApplicationReceived(to, name string) error
	SendApplicationRejected(to, name string) error
}

type EmailService struct {
	config *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{config: cfg}
}

// EmailData contains common email template data
type EmailData struct {
	AppName     string
	AppURL      string
	UserName    string
	UserEmail   string
	Subject     string
	Content     template.HTML
	ActionURL   string
	ActionLabel string
}

// BaseEmailTemplate is the base HTML email template
const BaseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #1d2433; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f2a44; color: #f4efe6; padding: 28px; text-align: center; }
        .content { background: #f7f5f0; padding: 28px; }
        .button { display: inline-block; background: #b08d57; color: #ffffff; padding: 12px 28px; text-decoration: none; }
        .footer { text-align: center; color: #7a7f8a; font-size: 12px; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.AppName}}</h1>
        </div>
        <div class="content">
            {{if .UserName}}<p>Dear {{.UserName}},</p>{{else}}<p>Hello,</p>{{end}}
            {{.Content}}
            {{if .ActionURL}}
            <p style="text-align: center;">
                <a href="{{.ActionURL}}" class="button">{{.ActionLabel}}</a>
            </p>
            {{end}}
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}</p>
            <p>This is an automated message. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
`

var emailTemplate = template.Must(template.New("email").Parse(BaseEmailTemplate))

// sendEmail sends an email using SMTP. Without an SMTP host the message
// is logged instead.
func (s *EmailService) sendEmail(to, subject, body string) error {
	if s.config.SMTPHost == "" {
		logger.Op("email").WithField("to", to).WithField("subject", subject).Info("SMTP not configured, email not sent")
		return nil
	}

	from := s.config.FromEmail
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	headers := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		s.config.AppName, from, to, subject)

	msg := []byte(headers + body)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// renderEmail renders an email using the base template
func (s *EmailService) renderEmail(data EmailData) (string, error) {
	data.AppName = s.config.AppName
	data.AppURL = s.config.AppURL

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailService) send(to string, data EmailData) error {
	data.UserEmail = to
	body, err := s.renderEmail(data)
	if err != nil {
		return err
	}
	return s.sendEmail(to, data.Subject, body)
}

// SendInvite sends the account invitation issued when an application is approved.
func (s *EmailService) SendInvite(to, name, token string) error {
	return s.send(to, EmailData{
		UserName:    name,
		Subject:     fmt.Sprintf("Welcome to %s", s.config.AppName),
		Content:     template.HTML("<p>Your membership application has been approved. Set a password to activate your account.</p>"),
		ActionURL:   fmt.Sprintf("%s/accept-invite?token=%s", s.config.AppURL, token),
		ActionLabel: "Activate Account",
	})
}

// SendMagicLink sends a one-time sign-in link.
func (s *EmailService) SendMagicLink(to, token string) error {
	return s.send(to, EmailData{
		Subject:     "Your sign-in link",
		Content:     template.HTML("<p>Use the button below to sign in. The link expires in one hour and can only be used once.</p>"),
		ActionURL:   fmt.Sprintf("%s/api/auth/callback?token=%s", s.config.AppURL, token),
		ActionLabel: "Sign In",
	})
}

// SendPasswordReset sends an administrator-issued recovery link.
func (s *EmailService) SendPasswordReset(to, name, link string) error {
	return s.send(to, EmailData{
		UserName:    name,
		Subject:     "Reset your password",
		Content:     template.HTML("<p>A password reset was requested for your account. This link will expire in 24 hours.</p>"),
		ActionURL:   link,
		ActionLabel: "Reset Password",
	})
}

func (s *EmailService) SendApplicationReceived(to, name string) error {
	return s.send(to, EmailData{
		UserName: name,
		Subject:  "We received your application",
		Content:  template.HTML("<p>Thank you for applying to join. Our membership team reviews every application and will be in touch.</p>"),
	})
}

func (s *EmailService) SendApplicationRejected(to, name string) error {
	return s.send(to, EmailData{
		UserName: name,
		Subject:  "Your membership application",
		Content:  template.HTML("<p>Thank you for your interest. We are unable to offer membership at this time.</p>"),
	})
}

package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"

	"courier_track_go/config"
	"courier_track_go/models"

	"github.com/resend/resend-go/v2"
	"gorm.io/gorm"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate loads an email template pair from templates/emails
// (templateName + ".html" and ".txt") and executes it with data
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	basePath := "templates/emails"

	loadAndExec := func(ext string) (string, error) {
		path := filepath.Join(basePath, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %w", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// GetEmailSettings returns the admin-managed email settings row, or nil when
// none has been saved yet
func GetEmailSettings(db *gorm.DB) *models.EmailSettings {
	var settings models.EmailSettings
	if err := db.First(&settings).Error; err != nil {
		return nil
	}
	return &settings
}

// effectiveSender resolves the from name/address and test mode: DB settings
// win over environment config
func effectiveSender(cfg *config.Config, settings *models.EmailSettings) (fromName, fromAddress string, testMode bool) {
	fromName = cfg.EmailFromName
	fromAddress = cfg.EmailFrom
	testMode = cfg.EmailTestMode

	if settings != nil {
		if settings.FromName != "" {
			fromName = settings.FromName
		}
		if settings.FromAddress != "" {
			fromAddress = settings.FromAddress
		}
		testMode = settings.TestMode
	}
	return fromName, fromAddress, testMode
}

// BaseURL resolves the application base URL used in emailed links
func BaseURL(cfg *config.Config, settings *models.EmailSettings) string {
	if settings != nil && settings.BaseURL != "" {
		return settings.BaseURL
	}
	return cfg.AppURL
}

// SendEmail sends an email using the Resend API. In test mode the email goes
// to the console instead.
func SendEmail(cfg *config.Config, settings *models.EmailSettings, email *Email) error {
	fromName, fromAddress, testMode := effectiveSender(cfg, settings)

	if testMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", fromName, fromAddress),
		To:      email.To,
		Subject: email.Subject,
	}

	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendEmailAsync sends an email asynchronously using a goroutine. Failures
// are logged; callers that need the outcome on a record should use SendEmail
// with their own goroutine.
func SendEmailAsync(cfg *config.Config, settings *models.EmailSettings, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func() {
		if err := SendEmail(cfg, settings, emailCopy); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}()
}

// logEmailToConsole logs email details to console in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (Test Mode - Not Actually Sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// WelcomeEmailData contains data for the welcome email template
type WelcomeEmailData struct {
	UserName string
	LoginURL string
}

// BuildWelcomeEmail creates a welcome email for new users
func BuildWelcomeEmail(userEmail, userName, loginURL string) *Email {
	data := WelcomeEmailData{UserName: userName, LoginURL: loginURL}

	htmlBody, textBody, err := loadTemplate("welcome", data)
	if err != nil {
		log.Printf("Error loading welcome email template: %v", err)
		textBody = fmt.Sprintf("Hello %s,\n\nYour CourierTrack account has been created. Sign in at %s.", userName, loginURL)
	}

	return &Email{
		To:       []string{userEmail},
		Subject:  "Welcome to CourierTrack",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// PasswordResetEmailData contains data for the password reset email template
type PasswordResetEmailData struct {
	UserName  string
	ResetLink string
	ExpiresAt string
}

// BuildPasswordResetEmail creates a password reset email with reset link
func BuildPasswordResetEmail(userEmail, userName, resetLink, expiresAt string) *Email {
	data := PasswordResetEmailData{
		UserName:  userName,
		ResetLink: resetLink,
		ExpiresAt: expiresAt,
	}

	htmlBody, textBody, err := loadTemplate("password_reset", data)
	if err != nil {
		log.Printf("Error loading password reset email template: %v", err)
		textBody = fmt.Sprintf("Hello %s,\n\nReset your password using this link (valid until %s):\n%s", userName, expiresAt, resetLink)
	}

	return &Email{
		To:       []string{userEmail},
		Subject:  "Reset your CourierTrack password",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// DispatchNotificationEmailData contains data for the dispatch notification template
type DispatchNotificationEmailData struct {
	ReceiverName string
	PODNumber    string
	SenderName   string
	ReceiveDate  string
	ConfirmLink  string
}

// BuildDispatchNotificationEmail notifies the addressee that an inbound
// courier has been dispatched to them, with the one-time confirmation link
func BuildDispatchNotificationEmail(receiverEmail string, data DispatchNotificationEmailData) *Email {
	htmlBody, textBody, err := loadTemplate("dispatch_notification", data)
	if err != nil {
		log.Printf("Error loading dispatch notification email template: %v", err)
		textBody = fmt.Sprintf(
			"Hello %s,\n\nA courier (POD %s) from %s has been dispatched to you.\nConfirm receipt here: %s",
			data.ReceiverName, data.PODNumber, data.SenderName, data.ConfirmLink)
	}

	return &Email{
		To:       []string{receiverEmail},
		Subject:  fmt.Sprintf("Courier %s dispatched to you", data.PODNumber),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

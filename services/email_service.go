// File: /services/email_service.go
package services

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
	"spotrunner-api/config"
	"spotrunner-api/models"
)

// Notifier tells users about completed registrations and redemptions.
// Delivery failures are logged and never fail the operation.
type Notifier interface {
	RegistrationConfirmed(user models.User, result *AttendanceResult)
	RedemptionReceipt(user models.User, result *RedemptionResult)
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	config *config.Config
	sender mailSender
}

// NewEmailService returns a notifier that sends over SMTP. Without SMTP_HOST
// messages are only logged.
func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{config: cfg}
	if cfg.SMTPHost != "" {
		service.sender = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return service
}

func (es *EmailService) RegistrationConfirmed(user models.User, result *AttendanceResult) {
	if user.Email == "" || result == nil {
		return
	}

	category := result.Attendance.Category
	if category == "" {
		category = "-"
	}

	htmlBody := registrationHTML(user.DisplayName(), result.EventName, category, result.Attendance.ParticipantID)

	textBody := fmt.Sprintf(`Hello %s!

You are registered for %s in category %s.
Your participant ID: %s

See you at the start line!
The SpotRunner Team
`, user.DisplayName(), result.EventName, category, result.Attendance.ParticipantID)

	es.send(user.Email, "SpotRunner - Registration confirmed", textBody, htmlBody)
}

// registrationHTML renders the confirmation mail. Names and event titles are
// user supplied and get escaped.
func registrationHTML(name, eventName, category, participantID string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #ff6b35; color: white; padding: 20px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px; }
        .pid { background: #e9ecef; padding: 20px; text-align: center; border-radius: 8px; margin: 20px 0; font-size: 24px; font-weight: bold; letter-spacing: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>SpotRunner</h1></div>
        <div class="content">
            <h2>Hello %s!</h2>
            <p>You are registered for <strong>%s</strong> in category <strong>%s</strong>.</p>
            <p>Your participant ID:</p>
            <div class="pid">%s</div>
            <p>See you at the start line!</p>
        </div>
    </div>
</body>
</html>`,
		html.EscapeString(name), html.EscapeString(eventName),
		html.EscapeString(category), html.EscapeString(participantID))
}

func (es *EmailService) RedemptionReceipt(user models.User, result *RedemptionResult) {
	if user.Email == "" || result == nil {
		return
	}

	r := result.Redemption
	textBody := fmt.Sprintf(`Hello %s!

Thanks for redeeming your coins.

Product:        %s
Quantity:       %d
Price per item: %d coins
Total:          %d coins
Remaining:      %d coins

The SpotRunner Team
`, user.DisplayName(), result.ProductName, r.Quantity, r.PricePerItem, r.TotalCoins, result.RemainingCoins)

	es.send(user.Email, "SpotRunner - Redemption receipt", textBody, "")
}

func (es *EmailService) send(to, subject, textBody, htmlBody string) {
	if es.sender == nil {
		slog.Info("smtp not configured, skipping email", "to", to, "subject", subject)
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", strings.TrimSpace(textBody))
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := es.sender.DialAndSend(m); err != nil {
		slog.Error("failed to send email", "to", to, "subject", subject, "error", err)
		return
	}
	slog.Info("email sent", "to", to, "subject", subject)
}

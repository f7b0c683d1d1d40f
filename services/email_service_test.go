package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
	"spotrunner-api/config"
	"spotrunner-api/models"
)

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.messages = append(r.messages, m...)
	return r.err
}

func newTestEmailService(sender mailSender) *EmailService {
	return &EmailService{
		config: &config.Config{FromName: "SpotRunner", FromEmail: "noreply@spotrunner.id"},
		sender: sender,
	}
}

func TestRegistrationConfirmedIncludesParticipantID(t *testing.T) {
	sender := &recordingSender{}
	es := newTestEmailService(sender)

	user := models.User{Username: "alice", Email: "alice@example.com"}
	es.RegistrationConfirmed(user, &AttendanceResult{
		Outcome:    OutcomeRegistered,
		EventName:  "Jakarta Night Run",
		Attendance: models.Attendance{ParticipantID: "SR-ABCDEF123456", Category: "5k"},
	})

	require.Len(t, sender.messages, 1)
	m := sender.messages[0]
	assert.Equal(t, []string{"alice@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"SpotRunner - Registration confirmed"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SR-ABCDEF123456")
}

func TestRegistrationHTMLEscapesUserInput(t *testing.T) {
	body := registrationHTML(`<b>Eve</b>`, `<img src=x onerror="alert(1)">`, "5k", "SR-ABCDEF123456")

	assert.NotContains(t, body, "<b>Eve</b>")
	assert.NotContains(t, body, "<img")
	assert.Contains(t, body, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.Contains(t, body, "&lt;img src=x onerror=&#34;alert(1)&#34;&gt;")
	assert.Contains(t, body, "SR-ABCDEF123456")
}

func TestNotificationsSkipUsersWithoutEmail(t *testing.T) {
	sender := &recordingSender{}
	es := newTestEmailService(sender)

	es.RegistrationConfirmed(models.User{Username: "alice"}, &AttendanceResult{})
	es.RedemptionReceipt(models.User{Username: "alice"}, &RedemptionResult{})
	assert.Empty(t, sender.messages)
}

func TestRedemptionReceiptSendFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	es := newTestEmailService(sender)

	assert.NotPanics(t, func() {
		es.RedemptionReceipt(models.User{Username: "alice", Email: "alice@example.com"}, &RedemptionResult{
			ProductName:    "Finisher Tee",
			Redemption:     models.Redemption{Quantity: 1, PricePerItem: 100, TotalCoins: 100},
			RemainingCoins: 150,
		})
	})
	assert.Len(t, sender.messages, 1)
}

func TestEmailServiceWithoutSMTPOnlyLogs(t *testing.T) {
	es := NewEmailService(&config.Config{})
	assert.Nil(t, es.sender)
	assert.NotPanics(t, func() {
		es.RegistrationConfirmed(models.User{Email: "alice@example.com"}, &AttendanceResult{EventName: "Run"})
	})
}

package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"progresstracker/internal/config"
	"progresstracker/internal/models"

	"gopkg.in/gomail.v2"
)

const reminderSubject = "Time to Get Back to Problem Solving!"

const reminderTemplate = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Hey {{.Name}}!</h2>
  <p>We noticed you haven't been active on Codeforces for the past {{.ThresholdDays}} days. Remember, consistent practice is key to improving your competitive programming skills!</p>
  <p>Why not solve a few problems today? Here are some benefits of regular practice:</p>
  <ul>
    <li>Improve your problem-solving skills</li>
    <li>Learn new algorithms and techniques</li>
    <li>Build your confidence in competitive programming</li>
    <li>Stay prepared for upcoming contests</li>
  </ul>
  <p>Keep up the great work and happy coding!</p>
  <div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #e5e7eb;">
    <p style="color: #6b7280; font-size: 0.875rem;">
      This is an automated reminder. If you wish to disable these reminders, you can do so from your profile settings.
    </p>
  </div>
</div>
`

// Mailer delivers reminder emails over SMTP. Transport details come from the
// settings row when present, falling back to the env config.
type Mailer struct {
	defaults config.SMTPConfig
	tmpl     *template.Template
	send     func(d *gomail.Dialer, m *gomail.Message) error
}

func NewMailer(defaults config.SMTPConfig) *Mailer {
	return &Mailer{
		defaults: defaults,
		tmpl:     template.Must(template.New("reminder").Parse(reminderTemplate)),
		send: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

func (m *Mailer) SendReminder(_ context.Context, settings *models.SyncSettings, student *models.Student) error {
	host, port, user, password, from := m.transport(settings)
	if host == "" {
		return fmt.Errorf("no SMTP host configured, cannot send reminder to %s", student.Email)
	}

	threshold := models.DefaultInactivityThresholdDays
	if settings != nil && settings.InactivityThresholdDays > 0 {
		threshold = settings.InactivityThresholdDays
	}

	var body bytes.Buffer
	data := struct {
		Name          string
		ThresholdDays int
	}{Name: student.Name, ThresholdDays: threshold}
	if err := m.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render reminder for %s: %w", student.Email, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", student.Email)
	msg.SetHeader("Subject", reminderSubject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(host, port, user, password)
	if err := m.send(dialer, msg); err != nil {
		return fmt.Errorf("failed to send reminder to %s: %w", student.Email, err)
	}
	return nil
}

func (m *Mailer) transport(settings *models.SyncSettings) (host string, port int, user, password, from string) {
	host = m.defaults.Host
	port = m.defaults.Port
	user = m.defaults.User
	password = m.defaults.Password
	from = m.defaults.From

	if settings != nil && settings.SMTPHost != "" {
		host = settings.SMTPHost
		user = settings.SMTPUser
		password = settings.SMTPPassword
		if settings.SMTPPort > 0 {
			port = settings.SMTPPort
		}
		if settings.FromEmail != "" {
			from = settings.FromEmail
		}
	}
	return host, port, user, password, from
}

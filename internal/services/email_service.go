package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"signage/internal/config"
	"signage/internal/logs"
)

type EmailService interface {
	SendInvitation(to, companyName, role, link string, expiresAt time.Time) error
	SendWelcome(to, fullName, companyName string) error
	SendDeviceLinked(to, deviceName string) error
}

type emailService struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	appName  string
	dryRun   bool
}

// NewEmailService sends through SMTP. Without an smtp_host it only logs
// what it would have sent.
func NewEmailService(cfg config.EmailConfig, appName string) EmailService {
	s := &emailService{
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		appName:  appName,
		dryRun:   cfg.SMTPHost == "",
	}
	if !s.dryRun {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return s
}

func (s *emailService) send(to, subject, body string) error {
	if s.dryRun {
		logs.Logger.WithField("to", to).Infof("[email][dry-run] %s", subject)
		return nil
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

var (
	invitationTmpl = template.Must(template.New("invitation").Parse(`
		<h2>You have been invited to {{.App}}</h2>
		<p>{{.Company}} invited you to join as <strong>{{.Role}}</strong>.</p>
		<p><a href="{{.Link}}">Accept the invitation</a> and sign in with your Google account ({{.To}}).</p>
		<p>The invitation expires on {{.Expires}}.</p>
	`))
	welcomeTmpl = template.Must(template.New("welcome").Parse(`
		<h2>Welcome, {{.Name}}!</h2>
		<p>Your account in {{.Company}} at {{.App}} is ready.</p>
	`))
	deviceLinkedTmpl = template.Must(template.New("device").Parse(`
		<h3>Device linked</h3>
		<p>The device <strong>{{.Device}}</strong> is now linked to your account.</p>
		<p>If this was not you, unlink it from the device list.</p>
	`))
)

// render executes t with contextual escaping; tenant names, user names and
// device names are all caller supplied.
func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (s *emailService) SendInvitation(to, companyName, role, link string, expiresAt time.Time) error {
	body, err := render(invitationTmpl, map[string]string{
		"App": s.appName, "Company": companyName, "Role": role, "Link": link, "To": to,
		"Expires": expiresAt.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("Invitation to %s", companyName), body)
}

func (s *emailService) SendWelcome(to, fullName, companyName string) error {
	body, err := render(welcomeTmpl, map[string]string{"Name": fullName, "Company": companyName, "App": s.appName})
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("Welcome to %s", s.appName), body)
}

func (s *emailService) SendDeviceLinked(to, deviceName string) error {
	body, err := render(deviceLinkedTmpl, map[string]string{"Device": deviceName})
	if err != nil {
		return err
	}
	return s.send(to, "New device linked", body)
}

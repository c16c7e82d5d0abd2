// Package email sends staff notifications over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"studio/admin/internal/content"
)

// ErrNotConfigured is returned by senders when SMTP settings are missing.
var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// To receives inquiry notifications.
	To []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured reports whether notifications can be delivered.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && len(s.config.To) > 0
}

// Message is one outgoing e-mail with a plain-text and an HTML part.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

func (s *Service) Send(m Message) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(m.To) == 0 {
		return errors.New("email: no recipients")
	}
	if err := s.send(s.server, s.auth, s.config.From, m.To, s.render(m, time.Now())); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SendInquiryNotification tells staff a visitor submitted the contact form.
// Replies go straight to the visitor.
func (s *Service) SendInquiryNotification(inquiry content.Inquiry) error {
	subject := "New inquiry from " + inquiry.Name
	if inquiry.Subject != "" {
		subject = "New inquiry: " + inquiry.Subject
	}
	var text, html bytes.Buffer
	if err := inquiryText.Execute(&text, inquiry); err != nil {
		return fmt.Errorf("render inquiry text: %w", err)
	}
	if err := inquiryHTML.Execute(&html, inquiry); err != nil {
		return fmt.Errorf("render inquiry html: %w", err)
	}
	return s.Send(Message{
		To:      s.config.To,
		ReplyTo: inquiry.Email,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	})
}

func (s *Service) render(m Message, now time.Time) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
	}
	boundary := fmt.Sprintf("studio-%d", now.UnixNano())

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if m.ReplyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", m.Text)

	if m.HTML != "" {
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
		fmt.Fprintf(&msg, "%s\r\n\r\n", m.HTML)
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

var inquiryText = texttemplate.Must(texttemplate.New("inquiry.txt").Parse(`New inquiry received {{.CreatedAt.Format "2006-01-02 15:04"}}

Name:    {{.Name}}
Email:   {{.Email}}
{{- if .Phone}}
Phone:   {{.Phone}}{{end}}
{{- if .Subject}}
Subject: {{.Subject}}{{end}}

{{.Message}}
`))

var inquiryHTML = template.Must(template.New("inquiry.html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #222; max-width: 600px; margin: 0 auto; padding: 20px; }
        dt { font-weight: bold; }
        .message { white-space: pre-wrap; border-left: 3px solid #ccc; padding-left: 12px; }
    </style>
</head>
<body>
    <h2>New inquiry</h2>
    <dl>
        <dt>Name</dt><dd>{{.Name}}</dd>
        <dt>Email</dt><dd><a href="mailto:{{.Email}}">{{.Email}}</a></dd>
        {{if .Phone}}<dt>Phone</dt><dd>{{.Phone}}</dd>{{end}}
        {{if .Subject}}<dt>Subject</dt><dd>{{.Subject}}</dd>{{end}}
    </dl>
    <p class="message">{{.Message}}</p>
</body>
</html>`))

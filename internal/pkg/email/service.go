package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/hibiken/asynq"
	"gopkg.in/gomail.v2"

	"github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/pkg/queue"
	"github.com/ledgerly/reportflow/internal/report"
)

var ErrNoRecipient = errors.New("email has no recipient")

type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FromName     string
	QueueEnabled bool
	Queue        string
	MaxRetry     int
}

func ConfigFrom(smtp *config.SMTPConfig, delivery *config.EmailConfig) *Config {
	return &Config{
		SMTPHost:     smtp.Host,
		SMTPPort:     smtp.Port,
		SMTPUser:     smtp.Username,
		SMTPPassword: smtp.Password,
		FromEmail:    smtp.From,
		FromName:     smtp.FromName,
		QueueEnabled: delivery.QueueEnabled,
		Queue:        delivery.Queue,
		MaxRetry:     delivery.MaxRetry,
	}
}

type Email struct {
	To          []string          `json:"to"`
	CC          []string          `json:"cc,omitempty"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body,omitempty"`
	HTMLBody    string            `json:"html_body,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	ReplyTo     string            `json:"reply_to,omitempty"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type TemplateData map[string]interface{}

// Enqueuer submits background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Service struct {
	config    *Config
	templates map[string]*template.Template
	queue     Enqueuer
	sender    Sender
}

func NewService(config *Config, q Enqueuer) *Service {
	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
		queue:     q,
		sender:    newSMTPSender(config),
	}
	s.loadBuiltinTemplates()
	return s
}

// WithSender replaces the SMTP sender.
func (s *Service) WithSender(sender Sender) *Service {
	s.sender = sender
	return s
}

func (s *Service) loadBuiltinTemplates() {
	templates := map[string]string{
		"report_ready": reportReadyTemplate,
	}

	funcs := template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}

	for name, content := range templates {
		tmpl, err := template.New(name).Funcs(funcs).Parse(content)
		if err == nil {
			s.templates[name] = tmpl
		}
	}
}

func (s *Service) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if s.config.QueueEnabled && s.queue != nil {
		return s.enqueue(ctx, email)
	}
	return s.SendDirect(ctx, email)
}

func (s *Service) enqueue(ctx context.Context, email *Email) error {
	queueName := s.config.Queue
	if queueName == "" {
		queueName = queue.QueueEmails
	}
	maxRetry := s.config.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}

	_, err := s.queue.Enqueue(ctx, queue.TypeEmailSend, email,
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	return nil
}

// SendDirect delivers the email over SMTP without going through the queue.
// The connection is abandoned once ctx is done.
func (s *Service) SendDirect(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if err := s.sender.Send(ctx, s.buildMessage(email)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildMessage(email *Email) *gomail.Message {
	m := gomail.NewMessage()

	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromEmail)
	}
	m.SetHeader("To", email.To...)
	if len(email.CC) > 0 {
		m.SetHeader("Cc", email.CC...)
	}
	m.SetHeader("Subject", email.Subject)
	if email.ReplyTo != "" {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	for k, v := range email.Headers {
		m.SetHeader(k, v)
	}

	switch {
	case email.Body != "" && email.HTMLBody != "":
		m.SetBody("text/plain", email.Body)
		m.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		m.SetBody("text/html", email.HTMLBody)
	default:
		m.SetBody("text/plain", email.Body)
	}

	for _, att := range email.Attachments {
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	return m
}

func (s *Service) render(name string, data TemplateData) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Notify delivers a generated report to its owner.
func (s *Service) Notify(ctx context.Context, d report.Delivery) error {
	data := TemplateData{
		"Name":    d.RecipientName,
		"AppName": s.config.FromName,
	}
	body := fmt.Sprintf("Hello %s,\n\nYour report is attached.\n", d.RecipientName)
	if d.Report != nil {
		data["Title"] = d.Report.Title
		data["Period"] = d.Report.Period.String()
		data["Income"] = d.Report.TotalIncome
		data["Expense"] = d.Report.TotalExpense
		data["Net"] = d.Report.Net()
		body = fmt.Sprintf("Hello %s,\n\nYour %s report is attached.\n", d.RecipientName, d.Report.Title)
	}

	html, err := s.render("report_ready", data)
	if err != nil {
		return err
	}

	email := &Email{
		To:       []string{d.To},
		Subject:  d.Subject,
		Body:     body,
		HTMLBody: html,
	}
	if d.Attachment != nil {
		email.Attachments = []Attachment{{
			Filename:    d.Attachment.FileName,
			ContentType: d.Attachment.ContentType,
			Data:        d.Attachment.Data,
		}}
	}

	return s.Send(ctx, email)
}

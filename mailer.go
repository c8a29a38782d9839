package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"sync"
	"text/template"

	"github.com/goliatone/go-errors"
)

// Template ids used by the verification and email-change flows.
const (
	TemplateEmailVerify    = "email_verify"
	TemplateEmailChange    = "email_change"
	TemplatePasswordReset  = "password_reset"
	defaultVerifyTemplate  = "Follow this link to confirm your email address:\n\n{{.url}}\n\nIf you did not create this account, ignore this message.\n"
	defaultChangeTemplate  = "Follow this link to confirm your new email address:\n\n{{.url}}\n\nIf you did not request this change, ignore this message.\n"
	defaultResetTemplate   = "Follow this link to choose a new password:\n\n{{.url}}\n\nIf you did not request a password reset, ignore this message.\n"
	subjectEmailVerify     = "Confirm your email"
	subjectEmailChange     = "Confirm your new email"
	subjectPasswordReset   = "Reset your password"
	MailTaskType           = "auth:send_mail"
)

// TemplateRegistry stores and renders named Go text templates.
type TemplateRegistry struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewTemplateRegistry creates a registry preloaded with the stock
// email bodies. Register overrides them by id.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{
		templates: make(map[string]*template.Template),
	}
	_ = r.Register(TemplateEmailVerify, defaultVerifyTemplate)
	_ = r.Register(TemplateEmailChange, defaultChangeTemplate)
	_ = r.Register(TemplatePasswordReset, defaultResetTemplate)
	return r
}

// Register parses and stores a template by name.
func (r *TemplateRegistry) Register(name, tmplString string) error {
	t, err := template.New(name).Parse(tmplString)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to parse template").
			WithMetadata(map[string]any{"template": name})
	}

	r.mu.Lock()
	r.templates[name] = t
	r.mu.Unlock()

	return nil
}

// Render executes a named template with the given data.
func (r *TemplateRegistry) Render(name string, data any) (string, error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", errors.New("template not found", errors.CategoryInternal).
			WithMetadata(map[string]any{"template": name})
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to render template").
			WithMetadata(map[string]any{"template": name})
	}

	return buf.String(), nil
}

// Dispatcher renders an email body and hands delivery to the task
// scheduler. Delivery itself happens out of band; only a failed enqueue
// surfaces to the caller.
type Dispatcher struct {
	scheduler TaskScheduler
	templates *TemplateRegistry
	logger    Logger
}

func NewDispatcher(scheduler TaskScheduler, templates *TemplateRegistry, logger Logger) *Dispatcher {
	if templates == nil {
		templates = NewTemplateRegistry()
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &Dispatcher{
		scheduler: scheduler,
		templates: templates,
		logger:    logger,
	}
}

// Dispatch renders templateID with data and enqueues the message.
func (d *Dispatcher) Dispatch(ctx context.Context, to []string, subject, templateID string, data map[string]any) error {
	body, err := d.templates.Render(templateID, data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(Email{To: to, Subject: subject, Body: body})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to encode mail task")
	}

	taskID, err := d.scheduler.Schedule(ctx, Task{Type: MailTaskType, Payload: payload})
	if err != nil {
		d.logger.Error("mail dispatch enqueue failed", "subject", subject, "error", err)
		clone := ErrMailDispatch.Clone()
		clone.Source = ErrMailDispatch
		return clone.WithMetadata(map[string]any{"subject": subject})
	}

	d.logger.Debug("mail dispatch enqueued", "task", taskID, "subject", subject)
	return nil
}

// DecodeMailTask unpacks a Task produced by a Dispatcher so queue
// workers can hand it to a Mailer.
func DecodeMailTask(task Task) (Email, error) {
	var msg Email
	if task.Type != MailTaskType {
		return msg, errors.New("not a mail task", errors.CategoryBadInput).
			WithMetadata(map[string]any{"type": task.Type})
	}
	if err := json.Unmarshal(task.Payload, &msg); err != nil {
		return msg, errors.Wrap(err, errors.CategoryBadInput, "unable to decode mail task")
	}
	return msg, nil
}

// ConsoleMailer prints messages to the logger. Intended for development
// and testing.
type ConsoleMailer struct {
	Logger Logger
}

func (m ConsoleMailer) Send(_ context.Context, msg Email) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("mail (dev mode)", "to", msg.To, "subject", msg.Subject)
	logger.Debug("mail body:\n%s", msg.Body)
	return nil
}

// MemoryMailer collects messages in memory.
type MemoryMailer struct {
	mu       sync.Mutex
	Messages []Email
}

func (m *MemoryMailer) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	m.Messages = append(m.Messages, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message delivered so far.
func (m *MemoryMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// GenerateNumericToken returns a random digit string, e.g. for one-time
// codes delivered over short channels.
func GenerateNumericToken(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	out := make([]byte, length)
	ten := big.NewInt(10)
	for i := range out {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate code")
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}

package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRegistry(t *testing.T) {
	registry := auth.NewTemplateRegistry()

	t.Run("stock templates render", func(t *testing.T) {
		for _, id := range []string{auth.TemplateEmailVerify, auth.TemplateEmailChange, auth.TemplatePasswordReset} {
			body, err := registry.Render(id, map[string]any{"url": "https://example.com/x"})
			require.NoError(t, err)
			assert.Contains(t, body, "https://example.com/x")
		}
	})

	t.Run("register overrides by id", func(t *testing.T) {
		require.NoError(t, registry.Register(auth.TemplateEmailVerify, "hello {{.name}}"))
		body, err := registry.Render(auth.TemplateEmailVerify, map[string]any{"name": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "hello ada", body)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := registry.Render("nope", nil)
		assert.Error(t, err)
	})

	t.Run("bad template string", func(t *testing.T) {
		assert.Error(t, registry.Register("broken", "{{.unclosed"))
	})
}

func TestDispatcherRoundTrip(t *testing.T) {
	mailer := &auth.MemoryMailer{}
	dispatcher := auth.NewDispatcher(auth.NewSyncScheduler(mailer, nil), nil, nil)

	err := dispatcher.Dispatch(context.Background(), []string{"to@example.com"}, "Subject", auth.TemplateEmailVerify, map[string]any{
		"url": "https://example.com/confirm?token=abc",
	})
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"to@example.com"}, sent[0].To)
	assert.Equal(t, "Subject", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "token=abc")
}

func TestDecodeMailTaskRejectsOtherTypes(t *testing.T) {
	_, err := auth.DecodeMailTask(auth.Task{Type: "reports:nightly"})
	assert.Error(t, err)

	_, err = auth.DecodeMailTask(auth.Task{Type: auth.MailTaskType, Payload: []byte("{broken")})
	assert.Error(t, err)
}

func TestSyncSchedulerRejectsUnknownTasks(t *testing.T) {
	scheduler := auth.NewSyncScheduler(&auth.MemoryMailer{}, nil)

	_, err := scheduler.Schedule(context.Background(), auth.Task{Type: "reports:nightly"})
	assert.Error(t, err)
}

func TestGenerateNumericToken(t *testing.T) {
	code, err := auth.GenerateNumericToken(8)
	require.NoError(t, err)
	require.Len(t, code, 8)
	for _, r := range code {
		assert.GreaterOrEqual(t, r, '0')
		assert.LessOrEqual(t, r, '9')
	}

	fallback, err := auth.GenerateNumericToken(0)
	require.NoError(t, err)
	assert.Len(t, fallback, 6)
}

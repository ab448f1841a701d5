package services_test

import (
	"context"
	"strings"
	"testing"

	"stylemateapi/config"
	"stylemateapi/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRenderEmail(t *testing.T) {
	for _, tmpl := range []string{services.TemplateVerifyEmail, services.TemplateResetPassword} {
		body, err := services.RenderEmail(services.Email{
			Template: tmpl,
			Data:     map[string]any{"Username": "ada", "Link": "http://localhost:3000/x?a=1&b=2"},
		})
		require.NoError(t, err, tmpl)
		assert.Contains(t, body, "ada")
		// links are attribute-escaped by html/template
		assert.Contains(t, body, `href="http://localhost:3000/x?a=1&amp;b=2"`)
	}

	_, err := services.RenderEmail(services.Email{Template: "missing.html"})
	assert.Error(t, err)
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mailer := services.NewMailer(config.MailConfig{}, zap.New(core))
	_, isLog := mailer.(services.LogMailer)
	require.True(t, isLog)

	err := mailer.Send(context.Background(), services.Email{
		To:       "ada@example.com",
		Subject:  "Reset your StyleMate password",
		Template: services.TemplateResetPassword,
		Data:     map[string]any{"Username": "ada", "Link": "http://localhost:3000/reset-password/t"},
	})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.True(t, strings.HasPrefix(entry.Message, "email"))
	assert.Equal(t, "ada@example.com", entry.ContextMap()["to"])

	_, isSMTP := services.NewMailer(config.MailConfig{Host: "smtp.example.com", Port: 587}, zap.NewNop()).(*services.SMTPMailer)
	assert.True(t, isSMTP)
}

package smtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Host: "smtp.example.com"}.Enabled())
	assert.True(t, Config{Host: "smtp.example.com", From: "a@example.com", To: "b@example.com"}.Enabled())
}

func TestBuildMessageHeadersAndBody(t *testing.T) {
	t.Parallel()

	message := buildMessage("bot@example.com", "ops@example.com", "Vulture: batch aborted", "details here")

	assert.Contains(t, message, "From: bot@example.com\r\n")
	assert.Contains(t, message, "To: ops@example.com\r\n")
	assert.Contains(t, message, "Subject: Vulture: batch aborted\r\n")
	assert.Contains(t, message, "\r\n\r\ndetails here\r\n")
}

func TestDomainOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", domainOf("bot@example.com"))
	assert.Equal(t, "localhost", domainOf("not-an-email"))
}

func TestNopNotifier(t *testing.T) {
	t.Parallel()

	require.NoError(t, NopNotifier{}.Notify(context.Background(), "s", "b"))
}

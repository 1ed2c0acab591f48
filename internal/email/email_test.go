package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendClientSend(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewResendClient("key", "Onboarding <hi@example.com>").WithBaseURL(srv.URL)
	err := c.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Equal(t, "Onboarding <hi@example.com>", got.From)
	assert.Equal(t, "<p>x</p>", got.HTML)
}

func TestResendClientReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewResendClient("key", "x@example.com").WithBaseURL(srv.URL)
	err := c.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", HTML: "x"})
	assert.ErrorContains(t, err, "status 422")
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Welcome\n\nYou are **in**.")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Welcome</h1>")
	assert.Contains(t, html, "<strong>in</strong>")
}

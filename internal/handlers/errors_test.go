package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", services.ErrValidation), fiber.StatusBadRequest},
		{services.ErrUnauthorized, fiber.StatusUnauthorized},
		{services.ErrForbidden, fiber.StatusForbidden},
		{fmt.Errorf("wrapped: %w", repository.ErrNotFound), fiber.StatusNotFound},
		{workflow.ErrStageNotInWorkflow, fiber.StatusNotFound},
		{services.ErrConflict, fiber.StatusConflict},
		{services.ErrUpstream, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRespondErrorHidesServerErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/upstream", func(c *fiber.Ctx) error {
		return respondError(c, fmt.Errorf("%w: dial tcp 10.0.0.5:5432", services.ErrUpstream))
	})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return respondError(c, invalid("stage_id is required"))
	})

	body := func(path string) (int, string) {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var out map[string]string
		require.NoError(t, json.Unmarshal(raw, &out))
		return resp.StatusCode, out["error"]
	}

	code, msg := body("/upstream")
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "Upstream service failed", msg)

	code, msg = body("/invalid")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, msg, "stage_id is required")
}

func TestParsers(t *testing.T) {
	_, err := parseUUID("", "uuid")
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = parseUUID("nope", "uuid")
	assert.ErrorIs(t, err, services.ErrValidation)

	for _, raw := range []string{"0", "-2", "x", ""} {
		_, err := parseStageID(raw)
		assert.ErrorIs(t, err, services.ErrValidation, raw)
	}
	id, err := parseStageID("7")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	d, err := parseDate("2026-03-01", false)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	d, err = parseDate("", true)
	assert.NoError(t, err)
	assert.Nil(t, d)
	_, err = parseDate("03/01/2026", false)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestDateOnlyEndBoundCoversTheDay(t *testing.T) {
	end, err := parseDate("2026-01-31", true)
	require.NoError(t, err)
	lastEvent := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	assert.False(t, lastEvent.After(*end), "an event late on the end day is inside the range")
	assert.True(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).After(*end))

	exact, err := parseDate("2026-01-31T12:00:00Z", true)
	require.NoError(t, err)
	assert.True(t, exact.Equal(time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)), "timestamps are taken as given")
}

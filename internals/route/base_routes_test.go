package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderkue_backend/internals/testutil"
)

func TestHealth(t *testing.T) {
	db := testutil.OpenTestDB(t)
	app := fiber.New()
	BaseRoutes(app, db)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "OK", out["status"])
	assert.Equal(t, "Connected", out["database"])
}

package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	"github.com/dinehq/dinehq/internal/config"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
)

func guardEnv(t *testing.T) *serverEnv {
	t.Helper()
	env := newServerEnv(t, config.Config{Environment: "test", AllowFreeTier: true})
	env.srv.Engine().GET("/api/guarded/feature",
		env.srv.RequireFeature("online_ordering"),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	env.srv.Engine().POST("/api/guarded/items",
		env.srv.RequireUsageLimit("menu_items"),
		func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{"ok": true}) },
	)
	return env
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestRequireFeatureUnauthenticated(t *testing.T) {
	env := guardEnv(t)

	rec := env.request(t, http.MethodGet, "/api/guarded/feature")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	payload := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "Authentication required", payload["error"])
	require.Equal(t, false, payload["success"])
}

func TestRequireFeatureMissingFromPlan(t *testing.T) {
	env := guardEnv(t)
	env.loginAs(accountdomain.RoleOwner)
	// Free status: basic_features only.

	rec := env.request(t, http.MethodGet, "/api/guarded/feature")

	require.Equal(t, http.StatusForbidden, rec.Code)
	payload := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "Feature not available in your current plan", payload["error"])
	require.Equal(t, false, payload["success"])
	require.Equal(t, "online_ordering", payload["requiredFeature"])
	require.Equal(t, "Free", payload["currentPlan"])
}

func TestRequireFeaturePresent(t *testing.T) {
	env := guardEnv(t)
	env.loginAs(accountdomain.RoleOwner)
	env.subs.status = paidStatus(true)

	rec := env.request(t, http.MethodGet, "/api/guarded/feature")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUsageLimitUnauthenticated(t *testing.T) {
	env := guardEnv(t)

	rec := env.request(t, http.MethodPost, "/api/guarded/items")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	payload := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "Authentication required", payload["error"])
}

func TestRequireUsageLimitUnderLimit(t *testing.T) {
	env := guardEnv(t)
	env.loginAs(accountdomain.RoleOwner)
	env.subs.status = paidStatus(true) // 10 of 500 used

	rec := env.request(t, http.MethodPost, "/api/guarded/items")
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRequireUsageLimitAtBoundaryRejects(t *testing.T) {
	env := guardEnv(t)
	env.loginAs(accountdomain.RoleOwner)

	status := paidStatus(true)
	status.Limits["menu_items"] = subscriptiondomain.FeatureLimit{Current: 500, Max: 500, Unit: "items"}
	env.subs.status = status

	rec := env.request(t, http.MethodPost, "/api/guarded/items")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	payload := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "Usage limit exceeded for menu_items", payload["error"])
	require.Equal(t, false, payload["success"])
	require.Equal(t, float64(500), payload["limit"])
	require.Equal(t, float64(500), payload["current"])
	require.Equal(t, true, payload["upgradeRequired"])
}

func TestRequireUsageLimitUnknownKeyPasses(t *testing.T) {
	env := guardEnv(t)
	env.loginAs(accountdomain.RoleOwner)

	status := paidStatus(true)
	delete(status.Limits, "menu_items")
	env.subs.status = status

	rec := env.request(t, http.MethodPost, "/api/guarded/items")
	require.Equal(t, http.StatusCreated, rec.Code)
}

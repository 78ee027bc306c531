package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
)

// SubscriptionStatusHeader carries a compact entitlement summary to
// downstream page rendering.
const SubscriptionStatusHeader = "X-Subscription-Status"

// RouteConfig classifies page routes for the entitlement gate. Longest
// matching prefix wins; unlisted routes pass through untouched.
type RouteConfig struct {
	FreePrefixes      []string
	ProtectedPrefixes []string
	AdminPrefixes     []string
}

// DefaultRouteConfig mirrors the app's page layout.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		FreePrefixes: []string{
			"/", "/pricing", "/login", "/signup", "/about", "/contact",
		},
		ProtectedPrefixes: []string{
			"/dashboard", "/menu", "/orders", "/analytics", "/settings",
		},
		AdminPrefixes: []string{
			"/admin",
		},
	}
}

type routeClass int

const (
	routeUnclassified routeClass = iota
	routeFree
	routeProtected
	routeAdmin
)

func (rc RouteConfig) classify(p string) routeClass {
	best := routeUnclassified
	bestLen := -1

	check := func(prefixes []string, class routeClass) {
		for _, prefix := range prefixes {
			if !matchPrefix(p, prefix) {
				continue
			}
			if len(prefix) > bestLen {
				best = class
				bestLen = len(prefix)
			}
		}
	}
	check(rc.FreePrefixes, routeFree)
	check(rc.ProtectedPrefixes, routeProtected)
	check(rc.AdminPrefixes, routeAdmin)
	return best
}

func matchPrefix(p, prefix string) bool {
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// skipGate filters traffic the page gate must never touch: API and webhook
// endpoints, framework assets, and anything with a file extension.
func skipGate(p string) bool {
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/webhooks/") {
		return true
	}
	if strings.HasPrefix(p, "/_next/") || strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/assets/") {
		return true
	}
	if p == "/health" || p == "/metrics" || p == "/favicon.ico" {
		return true
	}
	return path.Ext(p) != ""
}

// EntitlementGate is the page-level access control middleware. Free routes
// short-circuit before any session or subscription lookup.
func (s *Server) EntitlementGate(routes RouteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if skipGate(reqPath) {
			c.Next()
			return
		}

		class := routes.classify(reqPath)
		if class == routeFree || class == routeUnclassified {
			c.Next()
			return
		}

		identity, authenticated := s.identityFromRequest(c)
		if !authenticated {
			redirect := "/login?callbackUrl=" + url.QueryEscape(reqPath)
			c.Redirect(http.StatusFound, redirect)
			c.Abort()
			return
		}

		if class == routeAdmin {
			if identity.Role == accountdomain.RoleAdmin || s.cfg.BypassAdminChecks {
				c.Next()
				return
			}
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}

		status, err := s.resolveForGate(c)
		if err != nil {
			s.gateFailure(c, reqPath, err)
			return
		}

		if status.IsFree() && !s.cfg.AllowFreeTier {
			c.Redirect(http.StatusFound, "/pricing?reason=subscription_required")
			c.Abort()
			return
		}
		if !status.IsFree() {
			if status.TrialExpired() {
				c.Redirect(http.StatusFound, "/pricing?reason=trial_expired")
				c.Abort()
				return
			}
			if !status.Active {
				c.Redirect(http.StatusFound, "/pricing?reason=subscription_required")
				c.Abort()
				return
			}
		}

		attachStatusHeader(c, status)
		c.Next()
	}
}

// resolveForGate wraps Resolve so a panic in the resolve path degrades per
// environment policy instead of taking the request down.
func (s *Server) resolveForGate(c *gin.Context) (status subscriptiondomain.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrInternal
		}
	}()

	identity, _ := s.identityFromRequest(c)
	status = s.subscriptionSvc.Resolve(c.Request.Context(), identity.AccountID)
	return status, nil
}

// gateFailure applies the environment policy for unexpected gate errors:
// development fails open, production redirects protected pages to pricing.
func (s *Server) gateFailure(c *gin.Context, reqPath string, err error) {
	s.log.Error("entitlement gate failure",
		zap.String("path", reqPath),
		zap.Error(err),
	)
	if s.cfg.IsProduction() {
		c.Redirect(http.StatusFound, "/pricing")
		c.Abort()
		return
	}
	c.Next()
}

type statusHeader struct {
	IsActive           bool   `json:"isActive"`
	PlanName           string `json:"planName"`
	PlanID             string `json:"planId"`
	TrialDaysRemaining int    `json:"trialDaysRemaining"`
}

func attachStatusHeader(c *gin.Context, status subscriptiondomain.Status) {
	payload, err := json.Marshal(statusHeader{
		IsActive:           status.Active,
		PlanName:           status.Plan.Name,
		PlanID:             status.Plan.ID.String(),
		TrialDaysRemaining: status.TrialDaysRemaining(),
	})
	if err != nil {
		return
	}
	c.Header(SubscriptionStatusHeader, string(payload))
}

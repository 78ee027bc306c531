package server

import (
	"github.com/gin-gonic/gin"

	authdomain "github.com/dinehq/dinehq/internal/auth/domain"
)

const identityContextKey = "dinehq.identity"

// identityFromRequest resolves the session cookie to an identity, caching it
// on the gin context so the gate and the guards share one lookup per
// request.
func (s *Server) identityFromRequest(c *gin.Context) (*authdomain.Identity, bool) {
	if cached, ok := c.Get(identityContextKey); ok {
		identity, ok := cached.(*authdomain.Identity)
		return identity, ok && identity != nil
	}

	token, ok := s.sessions.ReadToken(c)
	if !ok {
		c.Set(identityContextKey, (*authdomain.Identity)(nil))
		return nil, false
	}

	identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.Set(identityContextKey, (*authdomain.Identity)(nil))
		return nil, false
	}

	c.Set(identityContextKey, identity)
	return identity, true
}

// AuthRequired rejects unauthenticated API requests.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.identityFromRequest(c); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

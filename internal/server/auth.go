package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/dinehq/dinehq/internal/auth/domain"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req authdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	account, sess, err := s.authsvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	account, sess, err := s.authsvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleMe(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	account, err := s.accountRepo.FindByID(c.Request.Context(), s.db, identity.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

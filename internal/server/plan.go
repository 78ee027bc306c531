package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/dinehq/dinehq/internal/authorization"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
)

func (s *Server) handleListPlans(c *gin.Context) {
	plans, err := s.planSvc.List(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) handleGetPlan(c *gin.Context) {
	if !s.authorizeAdmin(c, authorization.ObjectPlan, authorization.ActionPlanView) {
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	plan, err := s.planSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	features, err := s.planSvc.GetFeatures(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "features": features})
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	if !s.authorizeAdmin(c, authorization.ObjectPlan, authorization.ActionPlanCreate) {
		return
	}

	var req plandomain.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	plan, err := s.planSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

func (s *Server) handleUpdatePlan(c *gin.Context) {
	if !s.authorizeAdmin(c, authorization.ObjectPlan, authorization.ActionPlanUpdate) {
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req plandomain.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	plan, err := s.planSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (s *Server) handleArchivePlan(c *gin.Context) {
	if !s.authorizeAdmin(c, authorization.ObjectPlan, authorization.ActionPlanDelete) {
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.planSvc.Archive(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// authorizeAdmin checks the caller's role against the casbin policy and
// writes the error response itself when denied.
func (s *Server) authorizeAdmin(c *gin.Context, object, action string) bool {
	identity, ok := s.identityFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	if err := s.authzSvc.Authorize(c.Request.Context(), string(identity.Role), object, action); err != nil {
		AbortWithError(c, err)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	return parseID(c.Param(name), name)
}

func parseID(raw, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(field, "invalid_id", "invalid identifier")
	}
	return id, nil
}

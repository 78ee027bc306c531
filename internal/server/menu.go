package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	menudomain "github.com/dinehq/dinehq/internal/menu/domain"
)

type menuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category"`
	Available   *bool  `json:"available,omitempty"`
}

func (s *Server) handleListMenuItems(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	items, err := s.menuRepo.ListByAccount(c.Request.Context(), s.db, identity.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleCreateMenuItem(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.PriceCents < 0 {
		AbortWithError(c, menudomain.ErrInvalidMenuItem)
		return
	}

	now := s.nowUTC()
	item := &menudomain.MenuItem{
		ID:          s.genID.Generate(),
		AccountID:   identity.AccountID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		Category:    strings.TrimSpace(req.Category),
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	if err := s.menuRepo.Insert(c.Request.Context(), s.db, item); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (s *Server) handleUpdateMenuItem(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.menuRepo.FindByID(c.Request.Context(), s.db, identity.AccountID, id)
	if err != nil {
		AbortWithError(c, menudomain.ErrMenuItemNotFound)
		return
	}

	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		item.Name = name
	}
	if req.Description != "" {
		item.Description = strings.TrimSpace(req.Description)
	}
	if req.PriceCents > 0 {
		item.PriceCents = req.PriceCents
	}
	if req.Category != "" {
		item.Category = strings.TrimSpace(req.Category)
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	item.UpdatedAt = s.nowUTC()

	if err := s.menuRepo.Update(c.Request.Context(), s.db, item); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (s *Server) handleDeleteMenuItem(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.menuRepo.FindByID(c.Request.Context(), s.db, identity.AccountID, id); err != nil {
		AbortWithError(c, menudomain.ErrMenuItemNotFound)
		return
	}
	if err := s.menuRepo.Delete(c.Request.Context(), s.db, identity.AccountID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

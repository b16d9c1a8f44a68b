package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formdeck/internal/masters"
)

// picklistType: type из тела, иначе из ?type=.
func picklistType(c *gin.Context, body map[string]any) string {
	if s, ok := body["type"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return c.Query("type")
}

// GET /api/picklists/types
func PicklistTypesHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := svc.PicklistTypes(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"types": types})
	}
}

// GET /api/picklists?type=
func PicklistListHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Picklists(c.Request.Context(), c.Query("type"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": c.Query("type"), "items": items})
	}
}

// POST /api/picklists
func PicklistCreateHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bindBody(c)
		if !ok {
			return
		}
		row, err := svc.SavePicklist(c.Request.Context(), picklistType(c, body), "", body, company(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, row)
	}
}

// PATCH /api/picklists/:id
func PicklistUpdateHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bindBody(c)
		if !ok {
			return
		}
		row, err := svc.SavePicklist(c.Request.Context(), picklistType(c, body), c.Param("id"), body, company(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

// DELETE /api/picklists/:id — только деактивация
func PicklistDeactivateHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeactivatePicklist(c.Request.Context(), c.Param("id")); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

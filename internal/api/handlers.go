package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"formdeck/internal/apperror"
	"formdeck/internal/masters"
	"formdeck/internal/reqctx"
)

// bindBody читает JSON-объект тела. Пустое тело — пустой объект.
func bindBody(c *gin.Context) (map[string]any, bool) {
	var obj map[string]any
	if err := c.ShouldBindJSON(&obj); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(apperror.NewValidation("Invalid JSON").WithCause(err))
		return nil, false
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, true
}

func company(c *gin.Context) string {
	return reqctx.Company(c.Request.Context())
}

// GET /healthz
func HealthHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Store().Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GET /api/forms/:slug
func ConfigHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := svc.Config(c.Request.Context(), c.Param("slug"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

// GET /api/forms/:slug/layout?id=
func LayoutHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.FormView(c.Request.Context(), c.Param("slug"), c.Query("id"), nil, nil)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// GET /api/forms/:slug/rows?q=&page=&page_size=&sort=
func ListHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := parseTableQuery(c.Request.URL.Query())
		v, err := svc.Table(c.Request.Context(), c.Param("slug"), q, "")
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, v.Page)
	}
}

// GET /api/forms/:slug/rows/:id — запись и строки дочерних секций
func GetOneHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cfg, err := svc.Config(ctx, c.Param("slug"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		id := c.Param("id")
		row, err := svc.Store().Get(ctx, cfg.CleanTable(), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"row":      row,
			"children": svc.Children(ctx, cfg, id),
		})
	}
}

// POST /api/forms/:slug/rows
func CreateHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bindBody(c)
		if !ok {
			return
		}
		row, err := svc.Create(c.Request.Context(), c.Param("slug"), body, company(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, row)
	}
}

// PATCH /api/forms/:slug/rows/:id
func UpdatePartialHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bindBody(c)
		if !ok {
			return
		}
		res, err := svc.Update(c.Request.Context(), c.Param("slug"), c.Param("id"), body, company(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// GET /api/forms/:slug/options/:column
func OptionsHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := svc.Options(c.Request.Context(), c.Param("slug"), c.Param("column"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"options": opts})
	}
}

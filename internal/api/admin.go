package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formdeck/internal/apperror"
	"formdeck/internal/meta"
	"formdeck/internal/store"
	"formdeck/pkg/logger"
)

type reloadReq struct {
	ConfigDir string `json:"config_dir"` // директория с *.yaml
}

// AdminReloadHandler перечитывает YAML-конфигурацию форм и подменяет её
// в store. Работает только для store, умеющих Reload (memory).
func AdminReloadHandler(reloader store.Reloader, defaultDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reloader == nil {
			_ = c.Error(apperror.NewConflict("configuration reload is only available with the memory store"))
			return
		}
		var req reloadReq
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			_ = c.Error(apperror.NewValidation("Invalid JSON").WithCause(err))
			return
		}
		dir := strings.TrimSpace(req.ConfigDir)
		if dir == "" {
			dir = defaultDir
		}

		// 1) читаем новую конфигурацию
		b, err := meta.LoadDir(dir)
		if err != nil {
			_ = c.Error(apperror.NewBadConfig("configuration load error").
				WithDetail("config_dir", dir).
				WithDetail("error", err.Error()))
			return
		}

		// 2) линтер до подмены: с блокирующими ошибками ничего не меняем
		if issues := meta.Lint(b.Forms); len(issues) > 0 {
			out := make([]gin.H, 0, len(issues))
			for _, it := range issues {
				out = append(out, gin.H{
					"form":    it.Form,
					"section": it.Section,
					"field":   it.Field,
					"code":    it.Code,
					"message": it.Message,
				})
			}
			_ = c.Error(apperror.NewBadConfig("configuration has blocking issues").
				WithDetail("config_dir", dir).
				WithDetail("issues", out))
			return
		}

		// 3) атомарная замена внутри store
		if err := reloader.Reload(b); err != nil {
			_ = c.Error(err)
			return
		}
		logger.Info(c.Request.Context(), "configuration reloaded", "config_dir", dir, "forms", len(b.Forms))

		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"config_dir": dir,
			"forms":      b.Slugs(),
			"tables":     len(b.Data),
		})
	}
}

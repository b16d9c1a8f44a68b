package api

import (
	"github.com/gin-gonic/gin"

	"formdeck/internal/api/middleware"
	"formdeck/internal/masters"
	"formdeck/internal/store"
	"formdeck/pkg/logger"
)

// Deps — всё, что нужно роутеру.
type Deps struct {
	Service   *masters.Service
	Reloader  store.Reloader // nil: reload недоступен
	ConfigDir string
	Log       *logger.Logger
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.Use(
		middleware.Trace(),
		middleware.Logger(log),
		middleware.ErrorHandler(),
		middleware.Recovery(),
		middleware.Company(),
		func(c *gin.Context) {
			c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))
			c.Next()
		},
	)

	svc := d.Service
	r.GET("/healthz", HealthHandler(svc))

	apiGroup := r.Group("/api")
	{
		forms := apiGroup.Group("/forms/:slug")
		forms.GET("", ConfigHandler(svc))
		forms.GET("/layout", LayoutHandler(svc))
		forms.GET("/options/:column", OptionsHandler(svc))
		forms.GET("/rows", ListHandler(svc))
		forms.POST("/rows", CreateHandler(svc))
		forms.GET("/rows/:id", GetOneHandler(svc))
		forms.PATCH("/rows/:id", UpdatePartialHandler(svc))

		// статические маршруты раньше параметризованных
		apiGroup.GET("/picklists/types", PicklistTypesHandler(svc))
		apiGroup.GET("/picklists", PicklistListHandler(svc))
		apiGroup.POST("/picklists", PicklistCreateHandler(svc))
		apiGroup.PATCH("/picklists/:id", PicklistUpdateHandler(svc))
		apiGroup.DELETE("/picklists/:id", PicklistDeactivateHandler(svc))

		apiGroup.POST("/admin/reload", AdminReloadHandler(d.Reloader, d.ConfigDir))
	}

	r.GET("/dashboard/masters/:slug", MasterPageHandler(svc))
	r.POST("/dashboard/masters/:slug", MasterSubmitHandler(svc))

	return r
}

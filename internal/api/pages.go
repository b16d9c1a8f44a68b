package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formdeck/internal/apperror"
	"formdeck/internal/form"
	"formdeck/internal/masters"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

// Templates parses the embedded dashboard templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.tmpl"))
}

const dashboardPrefix = "/dashboard/masters/"

func pageURL(slug string) string { return dashboardPrefix + slug }

// renderError рисует страницу ошибки; сама ошибка уходит в c.Errors для лога.
func renderError(c *gin.Context, err error, back string) {
	_ = c.Error(err)
	status := apperror.GetHTTPStatus(err)
	msg := "Something went wrong"
	if appErr, ok := apperror.AsAppError(err); ok && status < http.StatusInternalServerError {
		msg = appErr.Message
	}
	c.HTML(status, "error.tmpl", gin.H{
		"PageTitle": http.StatusText(status),
		"Status":    status,
		"Message":   msg,
		"Back":      back,
	})
}

// GET /dashboard/masters/:slug — таблица; ?action=create или ?id= — форма
func MasterPageHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		slug := c.Param("slug")
		base := pageURL(slug)

		id := strings.TrimSpace(c.Query("id"))
		if c.Query("action") == "create" || id != "" {
			v, err := svc.FormView(ctx, slug, id, nil, nil)
			if err != nil {
				renderError(c, err, base)
				return
			}
			renderForm(c, http.StatusOK, v, base)
			return
		}

		cfg, err := svc.Config(ctx, slug)
		if err != nil {
			renderError(c, err, "")
			return
		}
		v, err := svc.TableOf(ctx, cfg, parseTableQuery(c.Request.URL.Query()), base)
		if err != nil {
			renderError(c, err, "")
			return
		}
		c.HTML(http.StatusOK, "table.tmpl", gin.H{
			"PageTitle": v.Title,
			"Slug":      slug,
			"View":      v,
			"Entity":    cfg.SingularTitle(),
			"CreateURL": base + "?action=create",
		})
	}
}

func renderForm(c *gin.Context, status int, v form.View, base string) {
	title := "Add " + v.Entity
	if v.Edit {
		title = "Edit " + v.Entity
	}
	c.HTML(status, "form.tmpl", gin.H{
		"PageTitle": title,
		"Form":      v,
		"Action":    base,
	})
}

// POST /dashboard/masters/:slug — отправка формы. Ошибки полей — та же
// форма с сообщениями, успех — редирект на таблицу.
func MasterSubmitHandler(svc *masters.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		slug := c.Param("slug")
		base := pageURL(slug)

		cfg, err := svc.Config(ctx, slug)
		if err != nil {
			renderError(c, err, "")
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			renderError(c, apperror.NewValidation("malformed form body").WithCause(err), base)
			return
		}
		data := form.Decode(cfg, c.Request.PostForm)
		id := strings.TrimSpace(c.PostForm("id"))

		if id == "" {
			_, err = svc.Create(ctx, slug, data, company(c))
		} else {
			_, err = svc.Update(ctx, slug, id, data, company(c))
		}
		if err == nil {
			c.Redirect(http.StatusSeeOther, base)
			return
		}

		fields, ok := apperror.FieldErrorsOf(err)
		if !ok {
			renderError(c, err, base)
			return
		}
		// показываем ровно то, что ввёл пользователь
		values := map[string]any{}
		for k, v := range data {
			values[k] = v
		}
		v, verr := svc.FormView(ctx, slug, id, values, form.FieldErrors(fields))
		if verr != nil {
			renderError(c, verr, base)
			return
		}
		renderForm(c, http.StatusBadRequest, v, base)
	}
}

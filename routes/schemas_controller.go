package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/httpx"
)

type schemaInfo struct {
	FormType string `json:"form_type"`
	Title    string `json:"title"`
	Items    int    `json:"items"`
}

func ListSchemas(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := checklist.Types()
		list := make([]schemaInfo, 0, len(types))
		for _, t := range types {
			s, err := checklist.Get(t)
			if err != nil {
				httpx.LogInternalError(w, "schemas.list", err)
				return
			}
			list = append(list, schemaInfo{FormType: s.FormType, Title: s.Title, Items: len(s.Items)})
		}
		render.JSON(w, r, list)
	}
}

func GetSchema(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formType := chi.URLParam(r, "type")
		s, err := checklist.Get(formType)
		if errors.Is(err, checklist.ErrUnknownFormType) {
			httpx.LogNotFound(w, "schemas.get", formType)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "schemas.get", err)
			return
		}
		render.JSON(w, r, s)
	}
}

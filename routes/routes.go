package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.BearerServer), middlewares.Inspector(app.TokenSecret))

		r.Get("/schemas", ListSchemas(app))
		r.Get("/schemas/{type}", GetSchema(app))

		r.Route("/drafts/{type}/{station}/{draft}", func(r chi.Router) {
			r.Get("/", GetDraft(app))
			r.Delete("/", DiscardDraft(app))

			r.Patch("/head", PatchHead(app))
			r.Put("/summary", PutSummary(app))
			r.Patch("/rows/{item}", PatchRow(app))
			r.Put("/rows/{item}/na", MarkNA(app, true))
			r.Delete("/rows/{item}/na", MarkNA(app, false))

			r.Post("/photos/{item}", UploadPhoto(app))
			r.Get("/photos/{item}/{id}", GetPhoto(app))
			r.Delete("/photos/{item}/{id}", DeletePhoto(app))

			r.Get("/report", GetReport(app))
			r.Post("/submit", SubmitDraft(app))
			r.Post("/close", CloseDraft(app))
		})
	})

	return api
}

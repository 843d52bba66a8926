package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/backend"
	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/httpx"
	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/photo"
)

func draftKey(app app.App, r *http.Request) (model.DraftKey, bool) {
	key := model.DraftKey{
		Prefix:    app.Drafts.KeyPrefix,
		Version:   app.Drafts.SchemaVersion,
		FormType:  chi.URLParam(r, "type"),
		StationID: chi.URLParam(r, "station"),
		DraftID:   chi.URLParam(r, "draft"),
	}
	if key.StationID == "" || key.DraftID == "" {
		return key, false
	}
	return key, key.Validate() == nil
}

// openDraft writes the error response itself when it returns nil.
func openDraft(app app.App, w http.ResponseWriter, r *http.Request) *form.Controller {
	key, ok := draftKey(app, r)
	if !ok {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "drafts.key")
		return nil
	}
	c, err := app.Sessions.Get(r.Context(), key)
	if errors.Is(err, checklist.ErrUnknownFormType) {
		httpx.LogNotFound(w, "drafts.open", key.FormType)
		return nil
	}
	if err != nil {
		httpx.LogInternalError(w, "drafts.open", err)
		return nil
	}
	return c
}

// formError maps controller errors to HTTP statuses.
func formError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var incomplete *form.IncompleteError
	var status *backend.StatusError
	switch {
	case errors.As(err, &incomplete):
		httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code+".incomplete", reportBody{
			CompletionReport: incomplete.Report,
			Messages:         incomplete.Report.Messages(),
		})
	case errors.Is(err, form.ErrUnknownItem):
		httpx.LogStatusMsg(w, http.StatusNotFound, log.DebugLevel, code, "%s", err)
	case errors.Is(err, form.ErrUnknownField),
		errors.Is(err, form.ErrInvalidPF),
		errors.Is(err, photo.ErrEmpty):
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
	case errors.Is(err, form.ErrSubmitted),
		errors.Is(err, form.ErrDiscarded),
		errors.Is(err, form.ErrBusy):
		httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", err)
	case errors.Is(err, photo.ErrTooLarge):
		httpx.LogStatusMsg(w, http.StatusRequestEntityTooLarge, log.DebugLevel, code, "%s", err)
	case errors.Is(err, photo.ErrUnsupportedType):
		httpx.LogStatusMsg(w, http.StatusUnsupportedMediaType, log.DebugLevel, code, "%s", err)
	case errors.As(err, &status), errors.Is(err, backend.ErrNotConfigured):
		httpx.LogStatusMsg(w, http.StatusBadGateway, log.WarnLevel, code, "%s", err)
	default:
		httpx.LogInternalError(w, code, err)
	}
}

type reportBody struct {
	model.CompletionReport
	Messages []string `json:"messages"`
}

func GetDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		render.JSON(w, r, c.Snapshot())
	}
}

func PatchRow(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch form.RowPatch
		if err := render.DecodeJSON(r.Body, &patch); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		snap, err := c.PatchRow(chi.URLParam(r, "item"), patch)
		if err != nil {
			formError(w, r, "drafts.row", err)
			return
		}
		render.JSON(w, r, snap)
	}
}

func MarkNA(app app.App, na bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		snap, err := c.MarkNA(chi.URLParam(r, "item"), na)
		if err != nil {
			formError(w, r, "drafts.row.na", err)
			return
		}
		render.JSON(w, r, snap)
	}
}

// PatchHead only overwrites the head fields present in the body.
func PatchHead(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		head := c.Snapshot().Record.Head
		if err := render.DecodeJSON(r.Body, &head); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		snap, err := c.SetHead(head)
		if err != nil {
			formError(w, r, "drafts.head", err)
			return
		}
		render.JSON(w, r, snap)
	}
}

type summaryBody struct {
	Summary   *string   `json:"summary"`
	SummaryPF *model.PF `json:"summary_pf"`
}

func PutSummary(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body summaryBody
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		c := openDraft(app, w, r)
		if c == nil {
			return
		}

		// the verdict goes first: it is the only part that can be rejected
		snap := c.Snapshot()
		var err error
		if body.SummaryPF != nil {
			if snap, err = c.SetSummaryPF(*body.SummaryPF); err != nil {
				formError(w, r, "drafts.summary_pf", err)
				return
			}
		}
		if body.Summary != nil {
			if snap, err = c.SetSummary(*body.Summary); err != nil {
				formError(w, r, "drafts.summary", err)
				return
			}
		}
		render.JSON(w, r, snap)
	}
}

func GetReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		report := c.Report()
		render.JSON(w, r, reportBody{CompletionReport: report, Messages: report.Messages()})
	}
}

func SubmitDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		report, err := c.Submit(r.Context())
		if err != nil {
			formError(w, r, "drafts.submit", err)
			return
		}
		app.Sessions.Close(r.Context(), c.Key())
		render.JSON(w, r, map[string]any{
			"state":  c.State(),
			"report": report,
		})
	}
}

func CloseDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := draftKey(app, r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "drafts.key")
			return
		}
		app.Sessions.Close(r.Context(), key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func DiscardDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		if err := c.Discard(r.Context()); err != nil {
			formError(w, r, "drafts.discard", err)
			return
		}
		app.Sessions.Close(r.Context(), c.Key())
		w.WriteHeader(http.StatusNoContent)
	}
}

package routes

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/httpx"
	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/photo"
)

// multipart overhead accepted on top of the photo size limit
const formSlack = 1 << 20

type uploadResponse struct {
	Ref model.PhotoRef `json:"ref"`
	form.Snapshot
}

func UploadPhoto(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := app.Photos.MaxBytes
		if maxBytes <= 0 {
			maxBytes = photo.DefaultMaxBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formSlack)
		if err := r.ParseMultipartForm(maxBytes + formSlack); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "photos.upload.form", "%s", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "photos.upload.file", "%s", err)
			return
		}
		defer file.Close()

		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		ref, snap, err := c.AttachPhoto(r.Context(), chi.URLParam(r, "item"), photo.File{
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		})
		if err != nil {
			formError(w, r, "photos.upload", err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, uploadResponse{Ref: ref, Snapshot: snap})
	}
}

func GetPhoto(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		id := photoID(r)
		p, ok := c.Photo(r.Context(), chi.URLParam(r, "item"), id)
		if !ok {
			httpx.LogNotFound(w, "photos.get", id)
			return
		}
		w.Header().Set("Content-Type", p.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.Write(p.Data)
	}
}

func DeletePhoto(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := openDraft(app, w, r)
		if c == nil {
			return
		}
		snap, err := c.RemovePhoto(r.Context(), chi.URLParam(r, "item"), photoID(r))
		if err != nil {
			formError(w, r, "photos.delete", err)
			return
		}
		render.JSON(w, r, snap)
	}
}

// photoID undoes the path escaping of ids that contain slashes.
func photoID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

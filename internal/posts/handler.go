package posts

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/apperr"
	"github.com/jpbarro/HoW-X/internal/auth"
	"github.com/jpbarro/HoW-X/internal/httpx"
)

// maxMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxMemory = 8 << 20

// Handler holds post HTTP handlers.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Create stores a post from a multipart form with title, content and file.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.writeFormError(w, err, apperr.Validation(msgMissingFields))
		return
	}
	defer cleanupForm(r)

	file, err := formFile(r)
	if err != nil {
		h.writeFormError(w, err, apperr.Validation(msgMissingFields))
		return
	}
	if file != nil {
		defer file.close()
	}

	in := CreateInput{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}
	if file != nil {
		in.File = file.upload
	}

	post, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		httpx.WriteError(w, err, msgCreateFailed)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Post created and file uploaded successfully",
		"id":      post.ID.Hex(),
	})
}

// List returns every post, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		httpx.WriteError(w, err, msgReadFailed)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// Get returns a single post.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err, msgReadFailed)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

// Image streams the post's image from the file store.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	data, ct, err := h.svc.Image(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err, msgReadFailed)
		return
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Write(data)
}

// Replace handles PUT: title and content are both required.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles PATCH: only supplied fields change.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	if err := parseForm(r); err != nil {
		h.writeFormError(w, err, apperr.Validation("invalid form body"))
		return
	}
	defer cleanupForm(r)

	file, err := formFile(r)
	if err != nil {
		h.writeFormError(w, err, apperr.Validation("invalid file"))
		return
	}
	if file != nil {
		defer file.close()
	}

	// author is read-only and ignored when sent.
	in := UpdateInput{
		Title:   formField(r, "title"),
		Content: formField(r, "content"),
		Partial: partial,
	}
	if file != nil {
		in.File = file.upload
	}

	post, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, err, msgUpdateFailed)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

// Delete removes a post owned by the caller.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, err, msgDeleteFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeFormError(w http.ResponseWriter, err error, fallback error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}
	h.log.WithError(err).Debug("unreadable form body")
	httpx.WriteError(w, fallback, "")
}

// parseForm accepts multipart and urlencoded bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// formField returns nil when name was not sent at all.
func formField(r *http.Request, name string) *string {
	vals, ok := r.PostForm[name]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

type openedFile struct {
	upload *Upload
	file   multipart.File
}

func (f *openedFile) close() {
	f.file.Close()
}

// formFile opens the "file" part. It returns nil without error when no
// file was sent.
func formFile(r *http.Request) (*openedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		return nil, nil
	}
	fh := fhs[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	return &openedFile{
		file: f,
		upload: &Upload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		},
	}, nil
}

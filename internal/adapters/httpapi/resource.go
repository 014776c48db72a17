package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/usecase"
)

// resource serves the list/get/create/replace/delete endpoints of one record
// type. Books and authors differ only in service and path.
type resource[T any] struct {
	h    *Handler
	svc  *usecase.RecordService[T]
	path string
}

func mountResource[T any](r chi.Router, h *Handler, path string, svc *usecase.RecordService[T]) {
	res := &resource[T]{h: h, svc: svc, path: path}
	read := h.requireScope(h.opts.Auth.ReadScope())
	write := h.requireScope(h.opts.Auth.WriteScope())

	r.With(read).Get(path, res.list)
	r.With(read).Get(path+"/{id}", res.get)
	r.With(write, h.requireJSON).Post(path, res.create)
	r.With(write, h.requireJSON).Put(path+"/{id}", res.replace)
	r.With(write).Delete(path+"/{id}", res.remove)
}

func (res *resource[T]) list(w http.ResponseWriter, r *http.Request) {
	records, err := res.svc.List(r.Context())
	if err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (res *resource[T]) get(w http.ResponseWriter, r *http.Request) {
	rec, err := res.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (res *resource[T]) create(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}

	id, err := res.svc.Create(r.Context(), payload)
	if err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}
	res.logMutation(r, "created", id.Hex())

	w.Header().Set("Location", res.path+"/"+id.Hex())
	writeJSON(w, http.StatusCreated, createdBody{ID: id.Hex()})
}

func (res *resource[T]) replace(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}

	rawID := chi.URLParam(r, "id")
	if err := res.svc.Replace(r.Context(), rawID, payload); err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}
	res.logMutation(r, "replaced", rawID)
	w.WriteHeader(http.StatusNoContent)
}

func (res *resource[T]) remove(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	if err := res.svc.Delete(r.Context(), rawID); err != nil {
		res.h.handleDomainError(w, r, err)
		return
	}
	res.logMutation(r, "deleted", rawID)
	w.WriteHeader(http.StatusNoContent)
}

func (res *resource[T]) logMutation(r *http.Request, action, id string) {
	attrs := []any{"kind", res.svc.Kind(), "id", id}
	if p, ok := principalFromContext(r.Context()); ok {
		attrs = append(attrs, "subject", p.Subject)
	}
	res.h.requestLogger(r).Info(strings.ToLower(res.svc.Kind())+" "+action, attrs...)
}

type createdBody struct {
	ID string `json:"id"`
}

// requireJSON rejects requests whose media type is not application/json before
// the body is read.
func (h *Handler) requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			h.handleDomainError(w, r, domain.ErrUnsupportedMediaType)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readBody reads at most maxJSONBodySize bytes. Oversized or unreadable
// bodies are malformed.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBody, err)
	}
	return payload, nil
}

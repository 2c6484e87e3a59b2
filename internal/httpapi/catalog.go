package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"health-records/internal/service"
)

type catalogService[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, in service.CatalogInput) (*T, error)
	Update(ctx context.Context, id uint, in service.CatalogInput) (*T, error)
	Delete(ctx context.Context, id uint) error
}

// catalogHandlers serves CRUD for one reference catalog.
type catalogHandlers[T any] struct {
	path   string
	svc    catalogService[T]
	logger *logrus.Logger
}

func newCatalogHandlers[T any](path string, svc catalogService[T], logger *logrus.Logger) *catalogHandlers[T] {
	return &catalogHandlers[T]{path: path, svc: svc, logger: logger}
}

func (h *catalogHandlers[T]) register(r *mux.Router) {
	base := "/" + h.path
	r.HandleFunc(base, h.list).Methods(http.MethodGet)
	r.HandleFunc(base, h.create).Methods(http.MethodPost)
	r.HandleFunc(base+"/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	r.HandleFunc(base+"/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc(base+"/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
}

func (h *catalogHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *catalogHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *catalogHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var in service.CatalogInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *catalogHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.CatalogInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *catalogHandlers[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

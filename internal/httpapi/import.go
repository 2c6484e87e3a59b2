package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"health-records/internal/importer"
	"health-records/internal/service"
)

// importService is the staged import lifecycle for one kind of upload.
type importService[P any] interface {
	Stage(ctx context.Context, r io.Reader) (*P, error)
	Preview(ctx context.Context, batchID string) (*P, error)
	Commit(ctx context.Context, batchID string) (*service.CommitResult, error)
	Cancel(ctx context.Context, batchID string) error
	Template() ([]byte, error)
}

type importHandlers[P any] struct {
	name     string
	svc      importService[P]
	maxBytes int64
	logger   *logrus.Logger
}

func newImportHandlers[P any](name string, svc importService[P], maxBytes int64, logger *logrus.Logger) *importHandlers[P] {
	return &importHandlers[P]{name: name, svc: svc, maxBytes: maxBytes, logger: logger}
}

type commitResponse struct {
	Success bool `json:"success"`
	service.CommitResult
}

func (h *importHandlers[P]) register(r *mux.Router) {
	base := "/" + h.name + "/import"
	r.HandleFunc(base, h.upload).Methods(http.MethodPost)
	r.HandleFunc(base+"/template", h.template).Methods(http.MethodGet)
	r.HandleFunc(base+"/{batch_id}", h.preview).Methods(http.MethodGet)
	r.HandleFunc(base+"/{batch_id}/commit", h.commit).Methods(http.MethodPost)
	r.HandleFunc(base+"/{batch_id}/cancel", h.cancel).Methods(http.MethodPost, http.MethodGet)
}

func (h *importHandlers[P]) upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeError(w, h.logger, importer.ErrEmptyUpload)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, importer.ErrEmptyUpload)
		return
	}
	defer file.Close()

	h.logger.WithFields(logrus.Fields{
		"kind": h.name,
		"file": header.Filename,
		"size": header.Size,
	}).Info("Import upload received")

	preview, err := h.svc.Stage(r.Context(), file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *importHandlers[P]) template(w http.ResponseWriter, _ *http.Request) {
	data, err := h.svc.Template()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, h.name+"-import-template.xlsx", data)
}

func (h *importHandlers[P]) preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.Preview(r.Context(), mux.Vars(r)["batch_id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *importHandlers[P]) commit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Commit(r.Context(), mux.Vars(r)["batch_id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Success: true, CommitResult: *res})
}

func (h *importHandlers[P]) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), mux.Vars(r)["batch_id"]); err != nil {
		h.logger.WithError(err).Warn("Cancel failed")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

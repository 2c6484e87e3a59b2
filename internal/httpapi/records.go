package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
	"health-records/internal/service"
)

type recordHandlers struct {
	svc    *service.HealthRecordService
	logger *logrus.Logger
}

func (h *recordHandlers) register(r *mux.Router) {
	r.HandleFunc("/records", h.list).Methods(http.MethodGet)
	r.HandleFunc("/records", h.create).Methods(http.MethodPost)
	r.HandleFunc("/records/export", h.export).Methods(http.MethodGet)
	r.HandleFunc("/records/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/records/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/records/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
}

// recordFilter reads the list filters. classification takes an id or a name;
// vaccinated takes yes/no style values and ignores anything else.
func recordFilter(r *http.Request) (repository.RecordFilter, error) {
	q := r.URL.Query()
	f := repository.RecordFilter{
		Query:          strings.TrimSpace(q.Get("q")),
		ConclusionText: strings.TrimSpace(q.Get("conclusion")),
		Status:         models.RecordStatus(strings.TrimSpace(q.Get("status"))),
	}

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return f, fmt.Errorf("%w: year must be an integer", service.ErrInvalidInput)
		}
		f.Year = &year
	}

	if raw := strings.TrimSpace(q.Get("classification")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cid := uint(id)
			f.ClassificationID = &cid
		} else {
			f.ClassificationName = raw
		}
	}

	switch v := q.Get("vaccinated"); {
	case importer.IsTruthy(v):
		yes := true
		f.Vaccinated = &yes
	case importer.IsFalsy(v):
		no := false
		f.Vaccinated = &no
	}

	departmentID, err := queryUint(r, "department_id")
	if err != nil {
		return f, err
	}
	f.DepartmentID = departmentID
	return f, nil
}

func (h *recordHandlers) list(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page := repository.Page{
		Number: queryInt(r, "page", 1),
		Size:   queryInt(r, "page_size", service.DefaultPageSize),
	}

	result, err := h.svc.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *recordHandlers) export(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := h.svc.Export(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, "health-records.xlsx", data)
}

func (h *recordHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *recordHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in service.RecordInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	record, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *recordHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.RecordInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	record, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *recordHandlers) delete(w http.ResponseWriter, r *http.Request) {
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

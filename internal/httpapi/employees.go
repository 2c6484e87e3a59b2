package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"health-records/internal/repository"
	"health-records/internal/service"
)

type employeeHandlers struct {
	svc    *service.EmployeeService
	logger *logrus.Logger
}

func (h *employeeHandlers) register(r *mux.Router) {
	r.HandleFunc("/employees", h.list).Methods(http.MethodGet)
	r.HandleFunc("/employees", h.create).Methods(http.MethodPost)
	r.HandleFunc("/employees/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/employees/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/employees/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
}

// list accepts q, department_id, job_title, sort (code|full_name|department)
// and order (asc|desc).
func (h *employeeHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	departmentID, err := queryUint(r, "department_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	employees, err := h.svc.List(r.Context(), repository.EmployeeFilter{
		Query:        strings.TrimSpace(q.Get("q")),
		DepartmentID: departmentID,
		JobTitle:     strings.TrimSpace(q.Get("job_title")),
		SortBy:       q.Get("sort"),
		Desc:         strings.EqualFold(q.Get("order"), "desc"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *employeeHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	employee, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (h *employeeHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in service.EmployeeInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	employee, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (h *employeeHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.EmployeeInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	employee, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

// delete also removes the employee's health records.
func (h *employeeHandlers) delete(w http.ResponseWriter, r *http.Request) {
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

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"portflow/pkg/domain"
)

// resourceHandler serves the CRUD surface of one catalog table.
type resourceHandler struct {
	server *Server
	spec   domain.TableSpec
}

func (s *Server) setupResourceRoutes() {
	extras := map[domain.Table]func(*mux.Router){
		domain.TableContainers: func(r *mux.Router) {
			r.HandleFunc("/stats", s.handleContainerStats).Methods(http.MethodGet)
		},
		domain.TableVessels: func(r *mux.Router) {
			r.HandleFunc("/stats", s.handleVesselStats).Methods(http.MethodGet)
		},
		domain.TableEquipment: func(r *mux.Router) {
			r.HandleFunc("/stats", s.handleEquipmentStats).Methods(http.MethodGet)
			r.HandleFunc("/customs-status", s.handleCustomsStatus).Methods(http.MethodGet)
		},
		domain.TableResourceUsage: func(r *mux.Router) {
			r.HandleFunc("/curve", s.handleResourceCurve).Methods(http.MethodGet)
		},
	}
	for _, table := range domain.CRUDTables() {
		sub := s.router.PathPrefix("/" + string(table)).Subrouter()
		// Fixed paths go first so they are not captured by /{id}.
		if register, ok := extras[table]; ok {
			register(sub)
		}
		h := resourceHandler{server: s, spec: domain.Tables[table]}
		sub.HandleFunc("", h.list).Methods(http.MethodGet)
		sub.HandleFunc("", h.create).Methods(http.MethodPost)
		sub.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
		sub.HandleFunc("/{id}", h.update).Methods(http.MethodPut)
		sub.HandleFunc("/{id}", h.remove).Methods(http.MethodDelete)
	}
}

// listQuery turns query parameters into a store query. Reserved parameters are
// limit, order_by and order; every other parameter is an equality filter on a
// column of the table.
func listQuery(spec domain.TableSpec, values url.Values) (domain.Query, error) {
	var q domain.Query
	for key := range values {
		value := values.Get(key)
		switch key {
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return q, domain.ValidationError{Field: "limit", Message: "must be a non-negative integer"}
			}
			q.Limit = n
		case "order_by":
			if !spec.HasColumn(value) {
				return q, domain.ValidationError{Field: "order_by", Message: "unknown column " + value}
			}
			q.OrderBy = value
		case "order":
			switch strings.ToLower(value) {
			case "", "asc":
			case "desc":
				q.Descending = true
			default:
				return q, domain.ValidationError{Field: "order", Message: "must be asc or desc"}
			}
		default:
			if !spec.HasColumn(key) {
				return q, domain.ValidationError{Field: key, Message: "unknown column"}
			}
			q.Filters = append(q.Filters, domain.Eq(key, value))
		}
	}
	return q, nil
}

func (h resourceHandler) list(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(h.spec, r.URL.Query())
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	rows, err := h.server.deps.Service.List(r.Context(), h.spec.Name, q)
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRows(rows))
}

func (h resourceHandler) get(w http.ResponseWriter, r *http.Request) {
	row, err := h.server.deps.Service.Get(r.Context(), h.spec.Name, mux.Vars(r)["id"])
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h resourceHandler) create(w http.ResponseWriter, r *http.Request) {
	var row domain.Row
	if err := decodeJSON(w, r, &row); err != nil {
		h.server.fail(w, r, err)
		return
	}
	created, err := h.server.deps.Service.Create(r.Context(), h.spec.Name, row)
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h resourceHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.Row
	if err := decodeJSON(w, r, &patch); err != nil {
		h.server.fail(w, r, err)
		return
	}
	updated, err := h.server.deps.Service.Update(r.Context(), h.spec.Name, mux.Vars(r)["id"], patch)
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h resourceHandler) remove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.server.deps.Service.Delete(r.Context(), h.spec.Name, mux.Vars(r)["id"])
	if err != nil {
		h.server.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func nonNilRows(rows []domain.Row) []domain.Row {
	if rows == nil {
		return []domain.Row{}
	}
	return rows
}

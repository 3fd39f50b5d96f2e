package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"resinbay/internal/i18n"
	applog "resinbay/internal/log"
	"resinbay/internal/viewstate"
)

// viewStateResponse is the effective table state of one named view plus the
// tier each sub-field resolved from. Show columns travel as a pointer so an
// explicit empty selection stays distinguishable from "use the defaults".
type viewStateResponse struct {
	Namespace   string               `json:"namespace"`
	Sorters     []viewstate.Sorter   `json:"sorters"`
	Filters     []viewstate.Filter   `json:"filters"`
	Pagination  viewstate.Pagination `json:"pagination"`
	ShowColumns *[]string            `json:"showColumns"`
	Sources     map[string]string    `json:"sources"`
}

type shareLinkResponse struct {
	URL string `json:"url"`
}

// ViewStateResource resolves, updates, and shares per-user table state.
//
//	GET    /app/api/views/{namespace}?fragment=...  resolve effective state
//	PUT    /app/api/views/{namespace}/{field}       replace one sub-field
//	DELETE /app/api/views/{namespace}/showColumns   drop the column selection
//	GET    /app/api/views/{namespace}/share-link    durable state as a URL
//
// The optional fragment parameter carries a share link's `#...` payload; it
// overrides storage for this resolution only and is never written back.
func ViewStateResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "view-state request without database")
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, i18n.T("error.unauthorized"))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/views")
	path = strings.Trim(path, "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	segments := strings.SplitN(path, "/", 2)
	namespace := segments[0]
	storage := viewstate.NewUserStorage(r.Context(), database, userID)

	if len(segments) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resolveViewState(w, r, namespace, storage)
		return
	}

	switch segments[1] {
	case "share-link":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		shareViewState(w, r, namespace, storage)
	case viewstate.FieldSorters, viewstate.FieldFilters, viewstate.FieldPagination:
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		updateViewState(w, r, namespace, storage, segments[1])
	case viewstate.FieldShowColumns:
		switch r.Method {
		case http.MethodPut:
			updateViewState(w, r, namespace, storage, segments[1])
		case http.MethodDelete:
			resetViewColumns(w, r, namespace, storage)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func resolveViewState(w http.ResponseWriter, r *http.Request, namespace string, storage viewstate.Storage) {
	fragment := viewstate.NewURLFragment(viewURL(namespace), r.URL.Query().Get("fragment"))
	store := viewstate.New(namespace, storage, fragment)
	store.Init()
	writeJSON(w, http.StatusOK, projectViewState(store))
}

func updateViewState(w http.ResponseWriter, r *http.Request, namespace string, storage viewstate.Storage, field string) {
	ctx := r.Context()
	store := viewstate.New(namespace, storage, nil)
	store.Init()

	decoder := json.NewDecoder(r.Body)
	switch field {
	case viewstate.FieldSorters:
		var sorters []viewstate.Sorter
		if err := decoder.Decode(&sorters); err != nil {
			applog.Debug(ctx, "invalid sorters payload", "namespace", namespace, "error", err)
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
			return
		}
		store.SetSorters(sorters)
	case viewstate.FieldFilters:
		var filters []viewstate.Filter
		if err := decoder.Decode(&filters); err != nil {
			applog.Debug(ctx, "invalid filters payload", "namespace", namespace, "error", err)
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
			return
		}
		store.SetFilters(filters)
	case viewstate.FieldPagination:
		var pagination viewstate.Pagination
		if err := decoder.Decode(&pagination); err != nil || pagination.PageIndex < 1 || pagination.PageSize < 1 {
			applog.Debug(ctx, "invalid pagination payload", "namespace", namespace, "error", err)
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
			return
		}
		store.SetPagination(pagination)
	case viewstate.FieldShowColumns:
		var columns []string
		if err := decoder.Decode(&columns); err != nil {
			applog.Debug(ctx, "invalid column payload", "namespace", namespace, "error", err)
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
			return
		}
		store.SetVisibleColumns(columns)
	}

	applog.Debug(ctx, "view state updated", "namespace", namespace, "field", field)
	writeJSON(w, http.StatusOK, projectViewState(store))
}

func resetViewColumns(w http.ResponseWriter, r *http.Request, namespace string, storage viewstate.Storage) {
	store := viewstate.New(namespace, storage, nil)
	store.Init()
	store.ResetVisibleColumns()
	applog.Debug(r.Context(), "view columns reset", "namespace", namespace)
	writeJSON(w, http.StatusOK, projectViewState(store))
}

func shareViewState(w http.ResponseWriter, r *http.Request, namespace string, storage viewstate.Storage) {
	fragment := viewstate.NewURLFragment(viewURL(namespace), "")
	store := viewstate.New(namespace, storage, fragment)
	store.Init()
	writeJSON(w, http.StatusOK, shareLinkResponse{URL: store.ShareLink()})
}

// viewURL is the absolute address a share link points at. Namespaces map
// one-to-one onto list screens under /app.
func viewURL(namespace string) string {
	return baseURL + "/app/" + namespace
}

func projectViewState(store *viewstate.Store) viewStateResponse {
	state := store.State()
	response := viewStateResponse{
		Namespace:  store.Namespace(),
		Sorters:    state.Sorters,
		Filters:    state.Filters,
		Pagination: state.Pagination,
		Sources: map[string]string{
			viewstate.FieldSorters:     store.Provenance(viewstate.FieldSorters).String(),
			viewstate.FieldFilters:     store.Provenance(viewstate.FieldFilters).String(),
			viewstate.FieldPagination:  store.Provenance(viewstate.FieldPagination).String(),
			viewstate.FieldShowColumns: store.Provenance(viewstate.FieldShowColumns).String(),
		},
	}
	if state.HasColumns {
		columns := state.VisibleColumns
		if columns == nil {
			columns = []string{}
		}
		response.ShowColumns = &columns
	}
	return response
}

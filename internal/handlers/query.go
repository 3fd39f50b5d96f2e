package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	applog "resinbay/internal/log"
	"resinbay/internal/viewstate"
)

// listParams carries the server-side sort/filter/paginate inputs of a list
// request. The query parameters use the same JSON encodings as the persisted
// table state, so a share link's payloads can be passed through verbatim.
type listParams struct {
	Sorters    []viewstate.Sorter
	Filters    []viewstate.Filter
	Pagination viewstate.Pagination
	Paged      bool
}

func listParamsFromRequest(r *http.Request) listParams {
	params := listParams{}
	query := r.URL.Query()

	if raw := query.Get("sorters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Sorters); err != nil {
			applog.Debug(r.Context(), "ignoring unparseable sorters parameter", "error", err)
			params.Sorters = nil
		}
	}
	if raw := query.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Filters); err != nil {
			applog.Debug(r.Context(), "ignoring unparseable filters parameter", "error", err)
			params.Filters = nil
		}
	}
	if raw := query.Get("pagination"); raw != "" {
		var pagination viewstate.Pagination
		if err := json.Unmarshal([]byte(raw), &pagination); err == nil &&
			pagination.PageIndex >= 1 && pagination.PageSize >= 1 {
			params.Pagination = pagination
			params.Paged = true
		} else {
			applog.Debug(r.Context(), "ignoring unparseable pagination parameter", "error", err)
		}
	}
	return params
}

var filterOperators = map[string]string{
	"eq":       "=",
	"ne":       "<>",
	"lt":       "<",
	"lte":      "<=",
	"gt":       ">",
	"gte":      ">=",
	"contains": "LIKE",
}

// applyListParams narrows a query by the allowlisted columns of the resource.
// Unknown fields and operators are skipped rather than rejected; the total
// matching count is taken before pagination so clients can render pagers.
func applyListParams(query *gorm.DB, params listParams, columns map[string]string) (*gorm.DB, int64, error) {
	for _, filter := range params.Filters {
		column, ok := columns[filter.Field]
		if !ok {
			continue
		}
		operator, ok := filterOperators[filter.Operator]
		if !ok {
			continue
		}
		if operator == "LIKE" {
			query = query.Where(fmt.Sprintf("%s LIKE ?", column), fmt.Sprintf("%%%v%%", filter.Value))
			continue
		}
		query = query.Where(fmt.Sprintf("%s %s ?", column, operator), filter.Value)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, sorter := range params.Sorters {
		column, ok := columns[sorter.Field]
		if !ok {
			continue
		}
		direction := "asc"
		if sorter.Direction == viewstate.Descending {
			direction = "desc"
		}
		query = query.Order(fmt.Sprintf("%s %s", column, direction))
	}

	if params.Paged {
		offset := (params.Pagination.PageIndex - 1) * params.Pagination.PageSize
		query = query.Offset(offset).Limit(params.Pagination.PageSize)
	}

	return query, total, nil
}

func writeTotalCount(w http.ResponseWriter, total int64) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}

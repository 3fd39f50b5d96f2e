package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"resinbay/internal/viewstate"
	"resinbay/models"
)

func TestListParamsFromRequest(t *testing.T) {
	t.Parallel()

	target := `/app/api/resins?sorters=[{"field":"name","direction":"desc"}]` +
		`&filters=[{"field":"material","operator":"eq","value":"Standard"}]` +
		`&pagination={"pageIndex":2,"pageSize":10}`
	req := httptest.NewRequest(http.MethodGet, target, nil)

	params := listParamsFromRequest(req)
	if len(params.Sorters) != 1 || params.Sorters[0].Field != "name" || params.Sorters[0].Direction != viewstate.Descending {
		t.Fatalf("unexpected sorters %+v", params.Sorters)
	}
	if len(params.Filters) != 1 || params.Filters[0].Operator != "eq" {
		t.Fatalf("unexpected filters %+v", params.Filters)
	}
	if !params.Paged || params.Pagination.PageIndex != 2 || params.Pagination.PageSize != 10 {
		t.Fatalf("unexpected pagination %+v", params.Pagination)
	}
}

func TestListParamsIgnoresMalformedInput(t *testing.T) {
	t.Parallel()

	target := `/app/api/resins?sorters=not-json&pagination={"pageIndex":0,"pageSize":10}`
	req := httptest.NewRequest(http.MethodGet, target, nil)

	params := listParamsFromRequest(req)
	if params.Sorters != nil {
		t.Fatalf("expected malformed sorters dropped, got %+v", params.Sorters)
	}
	if params.Paged {
		t.Fatal("expected out-of-range pagination dropped")
	}
}

func TestApplyListParamsSkipsUnknownFields(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	for _, name := range []string{"A", "B"} {
		if err := db.Create(&models.Vendor{Name: name}).Error; err != nil {
			t.Fatalf("failed to seed vendor: %v", err)
		}
	}

	params := listParams{
		Sorters: []viewstate.Sorter{{Field: "password_hash", Direction: viewstate.Ascending}},
		Filters: []viewstate.Filter{
			{Field: "secret", Operator: "eq", Value: "x"},
			{Field: "name", Operator: "launder", Value: "x"},
		},
	}
	query := db.Model(&models.Vendor{})
	query, total, err := applyListParams(query, params, vendorColumns)
	if err != nil {
		t.Fatalf("applyListParams returned error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected unknown fields ignored, total=%d", total)
	}

	var results []models.Vendor
	if err := query.Find(&results).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both vendors, got %d", len(results))
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"resinbay/models"
)

func seedBottleFixture(t *testing.T) (models.Resin, models.Bottle) {
	t.Helper()
	resin := models.Resin{Name: "Charcoal Black", Density: 1.1, Weight: 1000, BottleWeight: 140}
	if err := database.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}
	bottle := models.Bottle{ResinID: resin.ID, UsedWeight: 200}
	if err := database.Create(&bottle).Error; err != nil {
		t.Fatalf("failed to seed bottle: %v", err)
	}
	return resin, bottle
}

func TestBottleCreateFromRemainingWeight(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "Aqua", Density: 1.08, Weight: 500}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}

	remaining := 420.0
	body, _ := json.Marshal(bottleRequest{ResinID: &resin.ID, RemainingWeight: &remaining})
	req := httptest.NewRequest(http.MethodPost, "/app/api/bottles", bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created bottleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if math.Abs(created.UsedWeight-80) > 0.001 {
		t.Fatalf("expected used weight 80, got %f", created.UsedWeight)
	}
	if created.RemainingWeight == nil || math.Abs(*created.RemainingWeight-420) > 0.1 {
		t.Fatalf("expected remaining weight 420, got %+v", created.RemainingWeight)
	}
}

func TestBottleCreateRemainingWeightNeedsNominal(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "Sample Lot", Density: 1.1}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}

	remaining := 420.0
	body, _ := json.Marshal(bottleRequest{ResinID: &resin.ID, RemainingWeight: &remaining})
	req := httptest.NewRequest(http.MethodPost, "/app/api/bottles", bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without nominal weight, got %d", w.Code)
	}
}

func TestBottleUseAccumulatesAndStampsTimestamps(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	_, bottle := seedBottleFixture(t)

	amount := 50.0
	body, _ := json.Marshal(bottleUseRequest{UseWeight: &amount})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/bottles/%d/use", bottle.ID), bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated bottleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if math.Abs(updated.UsedWeight-250) > 0.001 {
		t.Fatalf("expected used weight 250, got %f", updated.UsedWeight)
	}
	if updated.FirstUsed == nil || updated.LastUsed == nil {
		t.Fatalf("expected usage timestamps to be set, got %+v", updated)
	}
}

func TestBottleUseClampsAtZero(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	_, bottle := seedBottleFixture(t)

	amount := -500.0
	body, _ := json.Marshal(bottleUseRequest{UseWeight: &amount})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/bottles/%d/use", bottle.ID), bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated bottleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.UsedWeight != 0 {
		t.Fatalf("expected used weight clamped at zero, got %f", updated.UsedWeight)
	}
}

func TestBottleUseRequiresAmount(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	_, bottle := seedBottleFixture(t)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/bottles/%d/use", bottle.ID), bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without amount, got %d", w.Code)
	}
}

func TestBottleMeasureByGrossWeight(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	_, bottle := seedBottleFixture(t)

	// Gross reading of 640g with 140g packaging leaves 500g of resin, so
	// 500g of the 1000g nominal has been consumed.
	body, _ := json.Marshal(bottleMeasureRequest{Mode: "measured", Value: 640})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/bottles/%d/measure", bottle.ID), bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result bottleMeasureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Mode != "measured" {
		t.Fatalf("expected measured mode to apply, got %q", result.Mode)
	}
	if math.Abs(result.Bottle.UsedWeight-500) > 0.001 {
		t.Fatalf("expected used weight 500, got %f", result.Bottle.UsedWeight)
	}
}

func TestBottleMeasureDegradesWithoutPackagingWeight(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "No Packaging", Density: 1.1, Weight: 1000}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}
	bottle := models.Bottle{ResinID: resin.ID}
	if err := db.Create(&bottle).Error; err != nil {
		t.Fatalf("failed to seed bottle: %v", err)
	}

	body, _ := json.Marshal(bottleMeasureRequest{Mode: "measured", Value: 300})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/bottles/%d/measure", bottle.ID), bytes.NewReader(body))
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result bottleMeasureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Mode != "remaining" {
		t.Fatalf("expected degradation to remaining mode, got %q", result.Mode)
	}
	if math.Abs(result.Bottle.UsedWeight-700) > 0.001 {
		t.Fatalf("expected used weight 700, got %f", result.Bottle.UsedWeight)
	}
}

func TestBottleListComputedRemainingSort(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "Charcoal Black", Density: 1.1, Weight: 1000, BottleWeight: 140}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}
	bottles := []models.Bottle{
		{ResinID: resin.ID, UsedWeight: 900, Location: "Shelf A"},
		{ResinID: resin.ID, UsedWeight: 100, Location: "Shelf B"},
		{ResinID: resin.ID, UsedWeight: 500, Location: "Shelf C"},
	}
	for i := range bottles {
		if err := db.Create(&bottles[i]).Error; err != nil {
			t.Fatalf("failed to seed bottle: %v", err)
		}
	}

	target := `/app/api/bottles?sorters=[{"field":"remaining_weight","direction":"asc"}]`
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var listed []bottleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected three bottles, got %d", len(listed))
	}
	if listed[0].Location != "Shelf A" || listed[2].Location != "Shelf B" {
		t.Fatalf("expected emptiest bottle first, got %+v", listed)
	}
}

func TestBottleListHidesArchivedByDefault(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "Charcoal Black", Density: 1.1}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}
	active := models.Bottle{ResinID: resin.ID}
	archived := models.Bottle{ResinID: resin.ID, Archived: true}
	for _, bottle := range []*models.Bottle{&active, &archived} {
		if err := db.Create(bottle).Error; err != nil {
			t.Fatalf("failed to seed bottle: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/bottles", nil)
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed []bottleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != active.ID {
		t.Fatalf("expected only active bottle, got %+v", listed)
	}

	req = httptest.NewRequest(http.MethodGet, "/app/api/bottles?allow_archived=true", nil)
	w = httptest.NewRecorder()
	BottleResource(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected archived bottle included, got %d", len(listed))
	}
}

func TestBottleDistinctLocations(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	resin := models.Resin{Name: "Charcoal Black", Density: 1.1}
	if err := db.Create(&resin).Error; err != nil {
		t.Fatalf("failed to seed resin: %v", err)
	}
	bottles := []models.Bottle{
		{ResinID: resin.ID, Location: "Shelf A"},
		{ResinID: resin.ID, Location: "Shelf A"},
		{ResinID: resin.ID, Location: "Bench"},
		{ResinID: resin.ID},
	}
	for i := range bottles {
		if err := db.Create(&bottles[i]).Error; err != nil {
			t.Fatalf("failed to seed bottle: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/bottles/locations", nil)
	w := httptest.NewRecorder()
	BottleResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var locations []string
	if err := json.Unmarshal(w.Body.Bytes(), &locations); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(locations) != 2 || locations[0] != "Bench" || locations[1] != "Shelf A" {
		t.Fatalf("expected sorted distinct locations, got %+v", locations)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"resinbay/internal/events"
	"resinbay/internal/i18n"
	applog "resinbay/internal/log"
	"resinbay/internal/weight"
	"resinbay/models"
)

type bottleResponse struct {
	ID              uint           `json:"id"`
	Resin           *resinResponse `json:"resin,omitempty"`
	UsedWeight      float64        `json:"used_weight"`
	RemainingWeight *float64       `json:"remaining_weight,omitempty"`
	MeasuredWeight  *float64       `json:"measured_weight,omitempty"`
	FirstUsed       *time.Time     `json:"first_used,omitempty"`
	LastUsed        *time.Time     `json:"last_used,omitempty"`
	Location        string         `json:"location"`
	LotNr           string         `json:"lot_nr"`
	Comment         string         `json:"comment"`
	Archived        bool           `json:"archived"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type bottleRequest struct {
	ResinID         *uint      `json:"resin_id"`
	UsedWeight      *float64   `json:"used_weight"`
	RemainingWeight *float64   `json:"remaining_weight"`
	FirstUsed       *time.Time `json:"first_used"`
	LastUsed        *time.Time `json:"last_used"`
	Location        *string    `json:"location"`
	LotNr           *string    `json:"lot_nr"`
	Comment         *string    `json:"comment"`
	Archived        *bool      `json:"archived"`
}

type bottleUseRequest struct {
	UseWeight *float64 `json:"use_weight"`
	UseLength *float64 `json:"use_length"`
}

type bottleMeasureRequest struct {
	Mode  string  `json:"mode"`
	Value float64 `json:"value"`
}

type bottleMeasureResponse struct {
	Mode   string         `json:"mode"`
	Bottle bottleResponse `json:"bottle"`
}

var bottleColumns = map[string]string{
	"id":               "bottles.id",
	"used_weight":      "bottles.used_weight",
	"remaining_weight": "(resins.weight - bottles.used_weight)",
	"location":         "bottles.location",
	"lot_nr":           "bottles.lot_nr",
	"first_used":       "bottles.first_used",
	"last_used":        "bottles.last_used",
	"archived":         "bottles.archived",
	"resin.id":         "bottles.resin_id",
	"resin.name":       "resins.name",
	"resin.material":   "resins.material",
	"vendor.name":      "vendors.name",
}

// BottleResource handles REST-style interactions for bottle records,
// including the weight consumption and measurement operations.
func BottleResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "bottle request without database")
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/bottles")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			listBottles(w, r)
		case http.MethodPost:
			createBottle(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case "locations":
		listDistinctStrings(w, r, &models.Bottle{}, "location")
		return
	case "lot-numbers":
		listDistinctStrings(w, r, &models.Bottle{}, "lot_nr")
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid bottle identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	bottleID := uint(idValue)

	if len(segments) > 1 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch segments[1] {
		case "use":
			useBottle(w, r, bottleID)
		case "measure":
			measureBottle(w, r, bottleID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showBottle(w, r, bottleID)
	case http.MethodPut:
		updateBottle(w, r, bottleID)
	case http.MethodDelete:
		deleteBottle(w, r, bottleID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listBottles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := listParamsFromRequest(r)

	query := database.WithContext(ctx).Model(&models.Bottle{}).
		Joins("LEFT JOIN resins ON resins.id = bottles.resin_id").
		Joins("LEFT JOIN vendors ON vendors.id = resins.vendor_id").
		Preload("Resin.Vendor")

	// Archived bottles are hidden unless the client asks for them.
	if !strings.EqualFold(r.URL.Query().Get("allow_archived"), "true") {
		query = query.Where("bottles.archived = ?", false)
	}

	query, total, err := applyListParams(query, params, bottleColumns)
	if err != nil {
		applog.Error(ctx, "failed to count bottles", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var results []models.Bottle
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list bottles", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	responses := make([]bottleResponse, 0, len(results))
	for _, bottle := range results {
		responses = append(responses, projectBottle(bottle))
	}
	writeTotalCount(w, total)
	writeJSON(w, http.StatusOK, responses)
}

func createBottle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload bottleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid bottle payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}
	if payload.ResinID == nil {
		writeJSONError(w, http.StatusBadRequest, "resin_id is required")
		return
	}

	var resin models.Resin
	if err := database.WithContext(ctx).First(&resin, *payload.ResinID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusBadRequest, "resin does not exist")
			return
		}
		applog.Error(ctx, "failed to load resin for bottle", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	// A missing weight means a fresh, unopened bottle.
	used := 0.0
	switch {
	case payload.UsedWeight != nil:
		used = *payload.UsedWeight
	case payload.RemainingWeight != nil:
		if resin.Weight <= 0 {
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.remaining_needs_weight"))
			return
		}
		tracker := weight.NewTracker(weight.ResinWeightInfo{Nominal: resin.Weight, Packaging: resin.BottleWeight}, 0)
		tracker.SetByRemaining(*payload.RemainingWeight)
		used = tracker.Used()
		if used < 0 {
			used = 0
		}
	}

	bottle := models.Bottle{
		ResinID:    resin.ID,
		UsedWeight: used,
		FirstUsed:  normalizeUTC(payload.FirstUsed),
		LastUsed:   normalizeUTC(payload.LastUsed),
	}
	if payload.Location != nil {
		bottle.Location = strings.TrimSpace(*payload.Location)
	}
	if payload.LotNr != nil {
		bottle.LotNr = strings.TrimSpace(*payload.LotNr)
	}
	if payload.Comment != nil {
		bottle.Comment = strings.TrimSpace(*payload.Comment)
	}
	if payload.Archived != nil {
		bottle.Archived = *payload.Archived
	}

	if err := database.WithContext(ctx).Create(&bottle).Error; err != nil {
		applog.Error(ctx, "failed to create bottle", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	bottle.Resin = &resin
	publish("bottle", events.Created, bottle.ID)
	writeJSON(w, http.StatusCreated, projectBottle(bottle))
}

func showBottle(w http.ResponseWriter, r *http.Request, bottleID uint) {
	ctx := r.Context()
	bottle, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}
	applog.Debug(ctx, "bottle loaded", "id", bottleID)
	writeJSON(w, http.StatusOK, projectBottle(bottle))
}

func updateBottle(w http.ResponseWriter, r *http.Request, bottleID uint) {
	ctx := r.Context()
	bottle, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}

	var payload bottleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid bottle update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	resin := bottle.Resin
	if payload.ResinID != nil && (resin == nil || *payload.ResinID != resin.ID) {
		var replacement models.Resin
		if err := database.WithContext(ctx).First(&replacement, *payload.ResinID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeJSONError(w, http.StatusBadRequest, "resin does not exist")
				return
			}
			applog.Error(ctx, "failed to load replacement resin", "error", err)
			writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
			return
		}
		resin = &replacement
	}

	updates := map[string]any{}
	if payload.ResinID != nil {
		updates["resin_id"] = *payload.ResinID
	}

	// Used weight stays canonical: a remaining-weight edit is converted,
	// never stored alongside. Swapping the resin alone must not rewrite it.
	switch {
	case payload.UsedWeight != nil:
		updates["used_weight"] = *payload.UsedWeight
	case payload.RemainingWeight != nil:
		if resin == nil || resin.Weight <= 0 {
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.remaining_needs_weight"))
			return
		}
		tracker := weight.NewTracker(weight.ResinWeightInfo{Nominal: resin.Weight, Packaging: resin.BottleWeight}, bottle.UsedWeight)
		tracker.SetByRemaining(*payload.RemainingWeight)
		used := tracker.Used()
		if used < 0 {
			used = 0
		}
		updates["used_weight"] = used
	}

	if payload.FirstUsed != nil {
		updates["first_used"] = normalizeUTC(payload.FirstUsed)
	}
	if payload.LastUsed != nil {
		updates["last_used"] = normalizeUTC(payload.LastUsed)
	}
	if payload.Location != nil {
		updates["location"] = strings.TrimSpace(*payload.Location)
	}
	if payload.LotNr != nil {
		updates["lot_nr"] = strings.TrimSpace(*payload.LotNr)
	}
	if payload.Comment != nil {
		updates["comment"] = strings.TrimSpace(*payload.Comment)
	}
	if payload.Archived != nil {
		updates["archived"] = *payload.Archived
	}

	if len(updates) > 0 {
		if err := database.WithContext(ctx).Model(&bottle).Updates(updates).Error; err != nil {
			applog.Error(ctx, "failed to update bottle", "error", err, "id", bottleID)
			writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
			return
		}
	}

	reloaded, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}
	publish("bottle", events.Updated, bottleID)
	writeJSON(w, http.StatusOK, projectBottle(reloaded))
}

func deleteBottle(w http.ResponseWriter, r *http.Request, bottleID uint) {
	ctx := r.Context()
	bottle, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}

	if err := database.WithContext(ctx).Delete(&bottle).Error; err != nil {
		applog.Error(ctx, "failed to delete bottle", "error", err, "id", bottleID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	publish("bottle", events.Deleted, bottleID)
	w.WriteHeader(http.StatusNoContent)
}

// useBottle consumes resin from a bottle by weight or by length, increasing
// the accumulated used weight and stamping the usage timestamps. The result
// is clamped at zero: consumption is an accumulation, not a mid-edit field.
func useBottle(w http.ResponseWriter, r *http.Request, bottleID uint) {
	ctx := r.Context()
	bottle, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}

	var payload bottleUseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid bottle use payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	var consumed float64
	switch {
	case payload.UseWeight != nil:
		consumed = *payload.UseWeight
	case payload.UseLength != nil:
		if bottle.Resin == nil || bottle.Resin.Diameter <= 0 || bottle.Resin.Density <= 0 {
			writeJSONError(w, http.StatusBadRequest, "resin diameter and density are required to consume by length")
			return
		}
		consumed = weight.WeightFromLength(*payload.UseLength, bottle.Resin.Diameter, bottle.Resin.Density)
	default:
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.use_requires_amount"))
		return
	}

	used := bottle.UsedWeight + consumed
	if used < 0 {
		used = 0
	}

	now := time.Now().UTC().Truncate(time.Second)
	updates := map[string]any{
		"used_weight": used,
		"last_used":   now,
	}
	if bottle.FirstUsed == nil {
		updates["first_used"] = now
	}

	if err := database.WithContext(ctx).Model(&bottle).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to record bottle usage", "error", err, "id", bottleID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	reloaded, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}
	publish("bottle", events.Updated, bottleID)
	writeJSON(w, http.StatusOK, projectBottle(reloaded))
}

// measureBottle records a weight reading through the reconciliation engine.
// The requested entry mode degrades to the nearest one the resin's data
// supports; the response reports which mode actually applied.
func measureBottle(w http.ResponseWriter, r *http.Request, bottleID uint) {
	ctx := r.Context()
	bottle, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}

	var payload bottleMeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid bottle measure payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	info := weight.ResinWeightInfo{}
	if bottle.Resin != nil {
		info = weight.ResinWeightInfo{Nominal: bottle.Resin.Weight, Packaging: bottle.Resin.BottleWeight}
	}

	tracker := weight.NewTracker(info, bottle.UsedWeight)
	mode := tracker.SelectMode(weight.ParseMode(payload.Mode))
	switch mode {
	case weight.ByMeasured:
		tracker.SetByMeasured(payload.Value)
	case weight.ByRemaining:
		tracker.SetByRemaining(payload.Value)
	default:
		tracker.SetByUsed(payload.Value)
	}

	used := tracker.Used()
	if used < 0 {
		used = 0
	}

	if err := database.WithContext(ctx).Model(&bottle).Update("used_weight", used).Error; err != nil {
		applog.Error(ctx, "failed to record bottle measurement", "error", err, "id", bottleID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	reloaded, ok := loadBottle(w, r, bottleID)
	if !ok {
		return
	}
	publish("bottle", events.Updated, bottleID)
	writeJSON(w, http.StatusOK, bottleMeasureResponse{
		Mode:   mode.String(),
		Bottle: projectBottle(reloaded),
	})
}

func loadBottle(w http.ResponseWriter, r *http.Request, bottleID uint) (models.Bottle, bool) {
	ctx := r.Context()
	var bottle models.Bottle
	if err := database.WithContext(ctx).Preload("Resin.Vendor").First(&bottle, bottleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "bottle not found", "id", bottleID)
			http.NotFound(w, r)
			return models.Bottle{}, false
		}
		applog.Error(ctx, "failed to load bottle", "error", err, "id", bottleID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return models.Bottle{}, false
	}
	return bottle, true
}

func projectBottle(bottle models.Bottle) bottleResponse {
	response := bottleResponse{
		ID:         bottle.ID,
		UsedWeight: bottle.UsedWeight,
		FirstUsed:  bottle.FirstUsed,
		LastUsed:   bottle.LastUsed,
		Location:   bottle.Location,
		LotNr:      bottle.LotNr,
		Comment:    bottle.Comment,
		Archived:   bottle.Archived,
		CreatedAt:  bottle.CreatedAt,
		UpdatedAt:  bottle.UpdatedAt,
	}
	if bottle.Resin != nil {
		resin := projectResin(*bottle.Resin)
		response.Resin = &resin

		tracker := weight.NewTracker(weight.ResinWeightInfo{Nominal: bottle.Resin.Weight, Packaging: bottle.Resin.BottleWeight}, bottle.UsedWeight)
		if remaining, ok := tracker.Remaining(); ok {
			rounded := weight.RoundDisplay(remaining)
			response.RemainingWeight = &rounded
		}
		if measured, ok := tracker.Measured(); ok {
			rounded := weight.RoundDisplay(measured)
			response.MeasuredWeight = &rounded
		}
	}
	return response
}

func normalizeUTC(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC().Truncate(time.Second)
	return &normalized
}

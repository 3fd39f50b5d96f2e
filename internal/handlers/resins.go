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
	"resinbay/models"
)

type resinResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Vendor        *vendorResponse `json:"vendor,omitempty"`
	Material      string          `json:"material"`
	Price         float64         `json:"price"`
	Density       float64         `json:"density"`
	Diameter      float64         `json:"diameter"`
	Weight        float64         `json:"weight"`
	BottleWeight  float64         `json:"bottle_weight"`
	ArticleNumber string          `json:"article_number"`
	Comment       string          `json:"comment"`
	CureTemp      int             `json:"cure_temp"`
	CureTime      int             `json:"cure_time"`
	WashTime      int             `json:"wash_time"`
	ColorHex      string          `json:"color_hex"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type resinRequest struct {
	Name          string  `json:"name"`
	VendorID      *uint   `json:"vendor_id"`
	Material      string  `json:"material"`
	Price         float64 `json:"price"`
	Density       float64 `json:"density"`
	Diameter      float64 `json:"diameter"`
	Weight        float64 `json:"weight"`
	BottleWeight  float64 `json:"bottle_weight"`
	ArticleNumber string  `json:"article_number"`
	Comment       string  `json:"comment"`
	CureTemp      int     `json:"cure_temp"`
	CureTime      int     `json:"cure_time"`
	WashTime      int     `json:"wash_time"`
	ColorHex      string  `json:"color_hex"`
}

var resinColumns = map[string]string{
	"id":             "resins.id",
	"name":           "resins.name",
	"material":       "resins.material",
	"price":          "resins.price",
	"density":        "resins.density",
	"weight":         "resins.weight",
	"bottle_weight":  "resins.bottle_weight",
	"article_number": "resins.article_number",
	"vendor.id":      "resins.vendor_id",
	"vendor.name":    "vendors.name",
}

// ResinResource handles REST-style interactions for resin records.
func ResinResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "resin request without database")
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/resins")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			listResins(w, r)
		case http.MethodPost:
			createResin(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case "materials":
		listDistinctStrings(w, r, &models.Resin{}, "material")
		return
	case "article-numbers":
		listDistinctStrings(w, r, &models.Resin{}, "article_number")
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid resin identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	resinID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showResin(w, r, resinID)
	case http.MethodPut:
		updateResin(w, r, resinID)
	case http.MethodDelete:
		deleteResin(w, r, resinID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listResins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := listParamsFromRequest(r)

	query := database.WithContext(ctx).Model(&models.Resin{}).
		Joins("LEFT JOIN vendors ON vendors.id = resins.vendor_id").
		Preload("Vendor")
	query, total, err := applyListParams(query, params, resinColumns)
	if err != nil {
		applog.Error(ctx, "failed to count resins", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var results []models.Resin
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list resins", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	responses := make([]resinResponse, 0, len(results))
	for _, resin := range results {
		responses = append(responses, projectResin(resin))
	}
	writeTotalCount(w, total)
	writeJSON(w, http.StatusOK, responses)
}

func createResin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload resinRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid resin payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Density <= 0 {
		writeJSONError(w, http.StatusBadRequest, "density must be greater than zero")
		return
	}
	colorHex, err := normalizeColorHex(payload.ColorHex)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.VendorID != nil {
		var vendor models.Vendor
		if err := database.WithContext(ctx).First(&vendor, *payload.VendorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeJSONError(w, http.StatusBadRequest, "vendor does not exist")
				return
			}
			applog.Error(ctx, "failed to load vendor for resin", "error", err)
			writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
			return
		}
	}

	resin := models.Resin{
		Name:          strings.TrimSpace(payload.Name),
		VendorID:      payload.VendorID,
		Material:      strings.TrimSpace(payload.Material),
		Price:         payload.Price,
		Density:       payload.Density,
		Diameter:      payload.Diameter,
		Weight:        payload.Weight,
		BottleWeight:  payload.BottleWeight,
		ArticleNumber: strings.TrimSpace(payload.ArticleNumber),
		Comment:       strings.TrimSpace(payload.Comment),
		CureTemp:      payload.CureTemp,
		CureTime:      payload.CureTime,
		WashTime:      payload.WashTime,
		ColorHex:      colorHex,
	}
	if err := database.WithContext(ctx).Create(&resin).Error; err != nil {
		applog.Error(ctx, "failed to create resin", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	publish("resin", events.Created, resin.ID)
	writeJSON(w, http.StatusCreated, projectResin(resin))
}

func showResin(w http.ResponseWriter, r *http.Request, resinID uint) {
	ctx := r.Context()
	var resin models.Resin
	if err := database.WithContext(ctx).Preload("Vendor").First(&resin, resinID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "resin not found", "id", resinID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load resin", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, projectResin(resin))
}

func updateResin(w http.ResponseWriter, r *http.Request, resinID uint) {
	ctx := r.Context()
	var resin models.Resin
	if err := database.WithContext(ctx).First(&resin, resinID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load resin for update", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var payload resinRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid resin update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Density <= 0 {
		writeJSONError(w, http.StatusBadRequest, "density must be greater than zero")
		return
	}
	colorHex, err := normalizeColorHex(payload.ColorHex)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.VendorID != nil {
		var vendor models.Vendor
		if err := database.WithContext(ctx).First(&vendor, *payload.VendorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeJSONError(w, http.StatusBadRequest, "vendor does not exist")
				return
			}
			applog.Error(ctx, "failed to load vendor for resin update", "error", err)
			writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
			return
		}
	}

	updates := map[string]any{
		"name":           strings.TrimSpace(payload.Name),
		"vendor_id":      payload.VendorID,
		"material":       strings.TrimSpace(payload.Material),
		"price":          payload.Price,
		"density":        payload.Density,
		"diameter":       payload.Diameter,
		"weight":         payload.Weight,
		"bottle_weight":  payload.BottleWeight,
		"article_number": strings.TrimSpace(payload.ArticleNumber),
		"comment":        strings.TrimSpace(payload.Comment),
		"cure_temp":      payload.CureTemp,
		"cure_time":      payload.CureTime,
		"wash_time":      payload.WashTime,
		"color_hex":      colorHex,
	}
	if err := database.WithContext(ctx).Model(&resin).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update resin", "error", err, "id", resinID)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	if err := database.WithContext(ctx).Preload("Vendor").First(&resin, resinID).Error; err != nil {
		applog.Error(ctx, "failed to reload resin after update", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	publish("resin", events.Updated, resin.ID)
	writeJSON(w, http.StatusOK, projectResin(resin))
}

func deleteResin(w http.ResponseWriter, r *http.Request, resinID uint) {
	ctx := r.Context()
	var resin models.Resin
	if err := database.WithContext(ctx).First(&resin, resinID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load resin for delete", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var inUse int64
	if err := database.WithContext(ctx).Model(&models.Bottle{}).Where("resin_id = ?", resinID).Count(&inUse).Error; err != nil {
		applog.Error(ctx, "failed to check resin references", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}
	if inUse > 0 {
		writeJSONError(w, http.StatusConflict, i18n.T("error.resin_in_use"))
		return
	}

	if err := database.WithContext(ctx).Delete(&resin).Error; err != nil {
		applog.Error(ctx, "failed to delete resin", "error", err, "id", resinID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	publish("resin", events.Deleted, resin.ID)
	w.WriteHeader(http.StatusNoContent)
}

// listDistinctStrings serves the distinct non-empty values of one column,
// used to populate filter dropdowns.
func listDistinctStrings(w http.ResponseWriter, r *http.Request, model any, column string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var values []string
	err := database.WithContext(ctx).Model(model).
		Distinct().
		Where(column+" <> ''").
		Order(column + " asc").
		Pluck(column, &values).Error
	if err != nil {
		applog.Error(ctx, "failed to list distinct values", "error", err, "column", column)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func normalizeColorHex(value string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if trimmed == "" {
		return "", nil
	}
	upper := strings.ToUpper(trimmed)
	for _, c := range upper {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return "", errors.New("color_hex contains invalid characters")
		}
	}
	if len(upper) != 6 && len(upper) != 8 {
		return "", errors.New("color_hex must be 6 or 8 characters long")
	}
	return upper, nil
}

func projectResin(resin models.Resin) resinResponse {
	response := resinResponse{
		ID:            resin.ID,
		Name:          resin.Name,
		Material:      resin.Material,
		Price:         resin.Price,
		Density:       resin.Density,
		Diameter:      resin.Diameter,
		Weight:        resin.Weight,
		BottleWeight:  resin.BottleWeight,
		ArticleNumber: resin.ArticleNumber,
		Comment:       resin.Comment,
		CureTemp:      resin.CureTemp,
		CureTime:      resin.CureTime,
		WashTime:      resin.WashTime,
		ColorHex:      resin.ColorHex,
		CreatedAt:     resin.CreatedAt,
		UpdatedAt:     resin.UpdatedAt,
	}
	if resin.Vendor != nil {
		vendor := projectVendor(*resin.Vendor)
		response.Vendor = &vendor
	}
	return response
}

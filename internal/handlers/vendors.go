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

type vendorResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type vendorRequest struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

var vendorColumns = map[string]string{
	"id":      "vendors.id",
	"name":    "vendors.name",
	"comment": "vendors.comment",
}

// VendorResource handles REST-style interactions for vendor records.
func VendorResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "vendor request without database")
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/vendors")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listVendors(w, r)
		case http.MethodPost:
			createVendor(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid vendor identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	vendorID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showVendor(w, r, vendorID)
	case http.MethodPut:
		updateVendor(w, r, vendorID)
	case http.MethodDelete:
		deleteVendor(w, r, vendorID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listVendors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := listParamsFromRequest(r)

	query := database.WithContext(ctx).Model(&models.Vendor{})
	query, total, err := applyListParams(query, params, vendorColumns)
	if err != nil {
		applog.Error(ctx, "failed to count vendors", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var results []models.Vendor
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list vendors", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	responses := make([]vendorResponse, 0, len(results))
	for _, vendor := range results {
		responses = append(responses, projectVendor(vendor))
	}
	writeTotalCount(w, total)
	writeJSON(w, http.StatusOK, responses)
}

func createVendor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid vendor payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	vendor := models.Vendor{Name: name, Comment: strings.TrimSpace(payload.Comment)}
	if err := database.WithContext(ctx).Create(&vendor).Error; err != nil {
		applog.Error(ctx, "failed to create vendor", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	publish("vendor", events.Created, vendor.ID)
	writeJSON(w, http.StatusCreated, projectVendor(vendor))
}

func showVendor(w http.ResponseWriter, r *http.Request, vendorID uint) {
	ctx := r.Context()
	var vendor models.Vendor
	if err := database.WithContext(ctx).First(&vendor, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "vendor not found", "id", vendorID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load vendor", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, projectVendor(vendor))
}

func updateVendor(w http.ResponseWriter, r *http.Request, vendorID uint) {
	ctx := r.Context()
	var vendor models.Vendor
	if err := database.WithContext(ctx).First(&vendor, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load vendor for update", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var payload vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid vendor update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	updates := map[string]any{
		"name":    name,
		"comment": strings.TrimSpace(payload.Comment),
	}
	if err := database.WithContext(ctx).Model(&vendor).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update vendor", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	publish("vendor", events.Updated, vendor.ID)
	writeJSON(w, http.StatusOK, projectVendor(vendor))
}

func deleteVendor(w http.ResponseWriter, r *http.Request, vendorID uint) {
	ctx := r.Context()
	var vendor models.Vendor
	if err := database.WithContext(ctx).First(&vendor, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load vendor for delete", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	var inUse int64
	if err := database.WithContext(ctx).Model(&models.Resin{}).Where("vendor_id = ?", vendorID).Count(&inUse).Error; err != nil {
		applog.Error(ctx, "failed to check vendor references", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}
	if inUse > 0 {
		writeJSONError(w, http.StatusConflict, i18n.T("error.vendor_in_use"))
		return
	}

	if err := database.WithContext(ctx).Delete(&vendor).Error; err != nil {
		applog.Error(ctx, "failed to delete vendor", "error", err, "id", vendorID)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	publish("vendor", events.Deleted, vendor.ID)
	w.WriteHeader(http.StatusNoContent)
}

func projectVendor(vendor models.Vendor) vendorResponse {
	return vendorResponse{
		ID:        vendor.ID,
		Name:      vendor.Name,
		Comment:   vendor.Comment,
		CreatedAt: vendor.CreatedAt,
		UpdatedAt: vendor.UpdatedAt,
	}
}

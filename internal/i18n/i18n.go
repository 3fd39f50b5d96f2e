package i18n

import (
	"fmt"
	"sync"
)

// Catalog maps message keys to format strings for one locale.
type Catalog map[string]string

var (
	mu       sync.RWMutex
	catalogs = map[string]Catalog{"en": english}
	active   = "en"
)

var english = Catalog{
	"error.not_found":              "The requested record could not be found.",
	"error.invalid_payload":        "The request payload could not be understood.",
	"error.unavailable":            "The service is temporarily unavailable. Please try again.",
	"error.unauthorized":           "Please sign in to continue.",
	"error.vendor_in_use":          "This vendor still has resins and cannot be removed.",
	"error.resin_in_use":           "This resin still has bottles and cannot be removed.",
	"error.remaining_needs_weight": "Remaining weight can only be used when the resin has a nominal weight.",
	"error.use_requires_amount":    "Provide either a weight or a length to consume.",
	"warning.record_stale":         "This %s was changed elsewhere. Saving will overwrite those changes.",
	"auth.invalid_credentials":     "Invalid email or password. Please try again.",
	"auth.signin_failed":           "We were unable to sign you in. Please try again.",
	"auth.fields_required":         "Email and password are required.",
	"auth.email_taken":             "An account with this email already exists.",
}

// Register installs or replaces the catalog for a locale.
func Register(locale string, catalog Catalog) {
	mu.Lock()
	defer mu.Unlock()
	catalogs[locale] = catalog
}

// SetLocale switches the active locale. Unknown locales keep English as the
// fallback at lookup time rather than failing.
func SetLocale(locale string) {
	mu.Lock()
	defer mu.Unlock()
	active = locale
}

// T resolves a message key in the active locale and interpolates args.
// Unknown keys return the key itself so a missing translation is visible but
// never fatal.
func T(key string, args ...any) string {
	mu.RLock()
	catalog, ok := catalogs[active]
	if !ok {
		catalog = english
	}
	format, found := catalog[key]
	if !found {
		format, found = english[key]
	}
	mu.RUnlock()

	if !found {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

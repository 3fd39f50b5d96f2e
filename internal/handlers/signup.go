package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"resinbay/internal/i18n"
	applog "resinbay/internal/log"
)

// Signup registers a new account and signs the user in.
func Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "signup dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseForm(); err != nil {
		applog.Debug(r.Context(), "failed to parse signup form", "error", err)
		writeJSONError(w, http.StatusBadRequest, i18n.T("error.invalid_payload"))
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	name := strings.TrimSpace(r.PostFormValue("name"))
	password := r.PostFormValue("password")

	if email == "" || password == "" {
		writeJSONError(w, http.StatusBadRequest, i18n.T("auth.fields_required"))
		return
	}

	if _, err := findUserByEmail(r, email); err == nil {
		applog.Debug(r.Context(), "signup rejected: email already registered", "email", strings.ToLower(email))
		writeJSONError(w, http.StatusConflict, i18n.T("auth.email_taken"))
		return
	} else if err != gorm.ErrRecordNotFound {
		applog.Error(r.Context(), "failed to check existing account", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	user, err := createUser(r, email, name, password)
	if err != nil {
		applog.Error(r.Context(), "failed to create account", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeJSONError(w, http.StatusInternalServerError, i18n.T("error.unavailable"))
		return
	}

	applog.Info(r.Context(), "account created", "userID", user.ID)
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

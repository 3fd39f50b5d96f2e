package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"resinbay/internal/events"
	"resinbay/internal/i18n"
	applog "resinbay/internal/log"
)

// eventResources are the change feeds clients may subscribe to.
var eventResources = map[string]bool{
	"vendor": true,
	"resin":  true,
	"bottle": true,
}

var staleTrackers map[string]*events.StaleTracker

// TrackStaleness starts the advisory stale trackers for every resource feed.
// Call it once at startup after Configure; the trackers stop with ctx.
func TrackStaleness(ctx context.Context) {
	if broker == nil {
		return
	}
	staleTrackers = make(map[string]*events.StaleTracker, len(eventResources))
	for resource := range eventResources {
		staleTrackers[resource] = events.TrackStaleness(ctx, broker, resource)
	}
}

// EventStream serves a resource's change feed as server-sent events so open
// list screens can refresh without polling.
func EventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if broker == nil {
		http.Error(w, i18n.T("error.unavailable"), http.StatusServiceUnavailable)
		return
	}

	resource := strings.Trim(strings.TrimPrefix(r.URL.Path, "/app/api/events"), "/")
	if !eventResources[resource] {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, i18n.T("error.unavailable"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	feed := broker.Subscribe(ctx, resource)
	applog.Debug(ctx, "event stream opened", "resource", resource)

	for event := range feed {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
		flusher.Flush()
	}
	applog.Debug(ctx, "event stream closed", "resource", resource)
}

// StaleResource reports and clears the advisory stale flag of one record.
//
//	GET  /app/api/stale/{resource}/{id}              read the flag
//	POST /app/api/stale/{resource}/{id}/acknowledge  clear it
func StaleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/app/api/stale"), "/")
	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		http.NotFound(w, r)
		return
	}

	tracker, ok := staleTrackers[segments[0]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	idValue, err := strconv.ParseUint(segments[1], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := uint(idValue)

	if len(segments) == 3 && segments[2] == "acknowledge" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tracker.Acknowledge(id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(segments) != 2 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{"stale": tracker.IsStale(id)}
	if tracker.IsStale(id) {
		response["message"] = i18n.T("warning.record_stale", segments[0])
	}
	writeJSON(w, http.StatusOK, response)
}

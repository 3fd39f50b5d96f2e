package server

import (
	"context"
	"net/http"

	"resinbay/internal/handlers"
	applog "resinbay/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	mux.HandleFunc("/login", handlers.Login)
	applog.Debug(context.Background(), "route registered", "path", "/login")
	mux.HandleFunc("/signup", handlers.Signup)
	applog.Debug(context.Background(), "route registered", "path", "/signup")
	mux.HandleFunc("/logout", handlers.Logout)
	applog.Debug(context.Background(), "route registered", "path", "/logout")

	protect := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, handlers.RequireAuthentication(handler))
		applog.Debug(context.Background(), "route registered", "path", pattern, "protected", true)
	}
	protect("/app/api/vendors", handlers.VendorResource)
	protect("/app/api/vendors/", handlers.VendorResource)
	protect("/app/api/resins", handlers.ResinResource)
	protect("/app/api/resins/", handlers.ResinResource)
	protect("/app/api/bottles", handlers.BottleResource)
	protect("/app/api/bottles/", handlers.BottleResource)
	protect("/app/api/views/", handlers.ViewStateResource)
	protect("/app/api/events/", handlers.EventStream)
	protect("/app/api/stale/", handlers.StaleResource)

	return mux
}

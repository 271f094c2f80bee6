package app

// registerRoutes sets up all HTTP handlers for the application.
func (a *App) registerRoutes() {
	// API routes
	a.Mux.HandleFunc("GET /api/vehicles/", a.handleVehicles)
	a.Mux.HandleFunc("GET /api/traffic/", a.handleTraffic)
	a.Mux.HandleFunc("GET /api/routes/", a.handleRoutes)
	a.Mux.HandleFunc("GET /api/map/", a.handleMap)
	a.Mux.HandleFunc("GET /api/overlays/", a.handleOverlays)
	a.Mux.HandleFunc("GET /api/gtfsrt/vehicle-positions", a.handleGTFSRT)
	a.Mux.HandleFunc("GET /api/health", a.handleHealth)

	// Live stream
	a.Mux.HandleFunc("GET /ws", a.Hub.ServeWS)
}

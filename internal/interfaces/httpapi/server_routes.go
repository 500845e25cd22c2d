package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/rankings", handler.GetRankings)
	mux.HandleFunc("GET /v1/tipsters", handler.ListTipsters)
	mux.HandleFunc("GET /v1/tipsters/{slug}/stats", handler.GetTipsterStats)
}

package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, docsEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !docsEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerRecordRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues/{league}/records/{date}", handler.GetDailyRecord)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/{job}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunJob)))
}

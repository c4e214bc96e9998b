package webui

import (
	"net/http"

	"trajet.transportbi.org/internal/app"
)

// WebUI serves the HTML pages that sit next to the JSON API.
type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}

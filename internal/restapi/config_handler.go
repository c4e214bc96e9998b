package restapi

import (
	"net/http"

	"trajet.transportbi.org/internal/buildinfo"
	"trajet.transportbi.org/internal/models"
)

// configHandler bootstraps clients with the map defaults and the map token.
func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	version := buildinfo.Version
	if short := buildinfo.ShortCommit(); short != "unknown" {
		version += "+" + short
	}

	configEntry := models.NewConfigModel(version, api.Config.MapboxToken)
	response := models.NewEntryResponse(configEntry, models.NewEmptyReferences(), api.Clock)
	api.sendResponse(w, r, response)
}

package restapi

import (
	"net/http"
	"strings"

	"trajet.transportbi.org/internal/models"
)

func (api *RestAPI) homeHandler(w http.ResponseWriter, r *http.Request) {
	home := api.Catalog.Home(r.Context())
	if r.Context().Err() != nil {
		return
	}
	response := models.NewListResponse(home.Items, models.NewEmptyReferences(), home.Partial, api.Clock)
	api.sendResponse(w, r, response)
}

// agenciesHandler lists active agencies, each with its active routes.
// Agencies whose routes failed to load carry routesUnavailable.
func (api *RestAPI) agenciesHandler(w http.ResponseWriter, r *http.Request) {
	agencies, err := api.Catalog.Agencies(r.Context())
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	partial := false
	for _, a := range agencies {
		if a.RoutesUnavailable {
			partial = true
			break
		}
	}
	response := models.NewListResponse(agencies, models.NewEmptyReferences(), partial, api.Clock)
	api.sendResponse(w, r, response)
}

func (api *RestAPI) citiesHandler(w http.ResponseWriter, r *http.Request) {
	cities, err := api.Catalog.Cities(r.Context())
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	response := models.NewListResponse(cities, models.NewEmptyReferences(), false, api.Clock)
	api.sendResponse(w, r, response)
}

func pathID(r *http.Request) (string, map[string][]string) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", map[string][]string{"id": {"is required"}}
	}
	return id, nil
}

func (api *RestAPI) busLineHandler(w http.ResponseWriter, r *http.Request) {
	id, fieldErrors := pathID(r)
	if fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	view, err := api.Catalog.Line(r.Context(), id)
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	response := models.NewEntryResponse(view, models.NewEmptyReferences(), api.Clock)
	api.sendResponse(w, r, response)
}

// intercityRouteHandler returns one route; its agency is listed in the
// references.
func (api *RestAPI) intercityRouteHandler(w http.ResponseWriter, r *http.Request) {
	id, fieldErrors := pathID(r)
	if fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	view, err := api.Catalog.Route(r.Context(), id)
	if err != nil {
		api.handleError(w, r, err)
		return
	}

	references := models.NewEmptyReferences()
	if view.Route.Agency != nil {
		references.Agencies = append(references.Agencies, models.TransportAgency{
			ID:   view.Route.AgencyID,
			Name: view.Route.Agency.Name,
		})
	}
	response := models.NewEntryResponse(view, references, api.Clock)
	api.sendResponse(w, r, response)
}

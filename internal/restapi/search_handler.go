package restapi

import (
	"net/http"

	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/models"
)

type searchEntry struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Recent  []string              `json:"recent"`
	Partial bool                  `json:"partial"`
}

// searchHandler runs one search and records it in the caller's recent
// searches. A blank query answers an empty list without touching the
// backend.
func (api *RestAPI) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if len(query) > 200 {
		api.validationErrorResponse(w, r, map[string][]string{"query": {"must be at most 200 characters"}})
		return
	}

	recents := api.recentsFor(app.RequestAPIKey(r))
	out := api.Search.Search(r.Context(), query, recents)
	if r.Context().Err() != nil {
		return
	}

	entry := searchEntry{Query: out.Query, Results: out.Results, Recent: recents.List(), Partial: out.Partial}
	response := models.NewOKResponse(entry, api.Clock)
	api.sendResponse(w, r, response)
}

func (api *RestAPI) recentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	recents := api.recentsFor(app.RequestAPIKey(r))
	response := models.NewListResponse(recents.List(), models.NewEmptyReferences(), false, api.Clock)
	api.sendResponse(w, r, response)
}

func (api *RestAPI) clearRecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	api.recentsFor(app.RequestAPIKey(r)).Clear()
	response := models.NewListResponse([]string{}, models.NewEmptyReferences(), false, api.Clock)
	api.sendResponse(w, r, response)
}

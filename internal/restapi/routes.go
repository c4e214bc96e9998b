package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"trajet.transportbi.org/internal/admin"
)

// validateAPIKey rejects requests without a configured ?key=.
func validateAPIKey(api *RestAPI, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitAndValidateAPIKey(api *RestAPI, finalHandler http.HandlerFunc) http.Handler {
	return validateAPIKey(api, api.rateLimiter(finalHandler))
}

// public registers a keyed endpoint with a cache tier.
func (api *RestAPI) public(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	mux.Handle(pattern, CacheControlMiddleware(cacheSeconds, rateLimitAndValidateAPIKey(api, h)))
}

// private registers a keyed endpoint whose answers depend on the caller.
func (api *RestAPI) private(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, CacheControlMiddleware(CacheDurationNone, rateLimitAndValidateAPIKey(api, h)))
}

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	api.public(mux, "GET /api/config.json", CacheDurationLong, api.configHandler)
	api.public(mux, "GET /api/home.json", CacheDurationShort, api.homeHandler)
	api.public(mux, "GET /api/map.json", CacheDurationShort, api.mapHandler)
	api.public(mux, "GET /api/map/tap.json", CacheDurationShort, api.mapTapHandler)
	api.public(mux, "GET /api/bus-lines/{id}", CacheDurationShort, api.busLineHandler)
	api.public(mux, "GET /api/routes/{id}", CacheDurationShort, api.intercityRouteHandler)
	api.public(mux, "GET /api/agencies.json", CacheDurationShort, api.agenciesHandler)
	api.public(mux, "GET /api/cities.json", CacheDurationLong, api.citiesHandler)

	api.private(mux, "GET /api/search.json", api.searchHandler)
	api.private(mux, "GET /api/search/recent.json", api.recentSearchesHandler)
	api.private(mux, "DELETE /api/search/recent.json", api.clearRecentSearchesHandler)

	api.private(mux, "POST /api/auth/sign-in", api.signInHandler)
	api.private(mux, "POST /api/auth/sign-up", api.signUpHandler)
	api.private(mux, "POST /api/auth/sign-out", api.signOutHandler)
	api.private(mux, "GET /api/auth/me", api.meHandler)

	api.private(mux, "GET /api/admin/dashboard.json", api.requireAdmin(api.dashboardHandler))
	api.private(mux, "POST /api/admin/import-gtfs", api.requireAdmin(api.importGTFSHandler))

	api.private(mux, "GET /api/admin/agencies", adminList(api, (*admin.Flows).ListAgencies))
	api.private(mux, "POST /api/admin/agencies", adminSave(api, setAgencyID, (*admin.Flows).SaveAgency))
	api.private(mux, "PUT /api/admin/agencies/{id}", adminSave(api, setAgencyID, (*admin.Flows).SaveAgency))
	api.private(mux, "DELETE /api/admin/agencies/{id}", adminDelete(api, (*admin.Flows).DeleteAgency))
	api.private(mux, "POST /api/admin/agencies/{id}/toggle", adminToggle(api, (*admin.Flows).ToggleAgency))

	api.private(mux, "GET /api/admin/bus-lines", adminList(api, (*admin.Flows).ListBusLines))
	api.private(mux, "POST /api/admin/bus-lines", adminSave(api, setBusLineID, (*admin.Flows).SaveBusLine))
	api.private(mux, "PUT /api/admin/bus-lines/{id}", adminSave(api, setBusLineID, (*admin.Flows).SaveBusLine))
	api.private(mux, "DELETE /api/admin/bus-lines/{id}", adminDelete(api, (*admin.Flows).DeleteBusLine))
	api.private(mux, "POST /api/admin/bus-lines/{id}/toggle", adminToggle(api, (*admin.Flows).ToggleBusLine))

	api.private(mux, "GET /api/admin/routes", adminList(api, (*admin.Flows).ListRoutes))
	api.private(mux, "POST /api/admin/routes", adminSave(api, setRouteID, (*admin.Flows).SaveRoute))
	api.private(mux, "PUT /api/admin/routes/{id}", adminSave(api, setRouteID, (*admin.Flows).SaveRoute))
	api.private(mux, "DELETE /api/admin/routes/{id}", adminDelete(api, (*admin.Flows).DeleteRoute))
	api.private(mux, "POST /api/admin/routes/{id}/toggle", adminToggle(api, (*admin.Flows).ToggleRoute))

	api.private(mux, "GET /api/admin/cities", adminList(api, (*admin.Flows).ListCities))
	api.private(mux, "POST /api/admin/cities", adminSave(api, setCityID, (*admin.Flows).SaveCity))
	api.private(mux, "PUT /api/admin/cities/{id}", adminSave(api, setCityID, (*admin.Flows).SaveCity))
}

package restapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trajet.transportbi.org/internal/mapview"
	"trajet.transportbi.org/internal/models"
)

func etag(fingerprint string) string {
	return `"` + fingerprint + `"`
}

// etagMatches reports whether an If-None-Match header names tag.
func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(candidate), "W/"))
		if candidate == tag || candidate == "*" {
			return true
		}
	}
	return false
}

// mapHandler draws every active line. The ETag is the content fingerprint
// of the lines, so an identical re-fetch answers 304 and the client keeps
// its current camera.
func (api *RestAPI) mapHandler(w http.ResponseWriter, r *http.Request) {
	view, err := api.Catalog.Map(r.Context())
	if err != nil {
		api.handleError(w, r, err)
		return
	}

	tag := etag(view.Fingerprint)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	response := models.NewEntryResponse(view, models.NewEmptyReferences(), api.Clock)
	api.sendResponse(w, r, response)
}

type tapEntry struct {
	Marker mapview.Marker     `json:"marker"`
	Line   mapview.LineDetail `json:"line"`
}

func parseCoordinate(r *http.Request, name string, fieldErrors map[string][]string) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		fieldErrors[name] = append(fieldErrors[name], "is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fieldErrors[name] = append(fieldErrors[name], "must be a number")
		return 0
	}
	return v
}

// mapTapHandler resolves a tap to the nearest stop marker within
// mapview.TapRadiusMeters and returns its line's detail.
func (api *RestAPI) mapTapHandler(w http.ResponseWriter, r *http.Request) {
	fieldErrors := map[string][]string{}
	lat := parseCoordinate(r, "lat", fieldErrors)
	lon := parseCoordinate(r, "lon", fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	point := models.LatLng{Latitude: lat, Longitude: lon}
	if err := models.ValidateLatLng(point, "tap"); err != nil {
		var ce *models.CoordinateError
		if errors.As(err, &ce) {
			api.validationErrorResponse(w, r, map[string][]string{ce.Field: {ce.Message}})
			return
		}
		api.validationErrorResponse(w, r, map[string][]string{"tap": {err.Error()}})
		return
	}

	view, err := api.Catalog.Map(r.Context())
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	marker, detail, ok := mapview.NewMarkerIndex(view.Lines()).Tap(point)
	if !ok {
		api.sendNotFound(w, r)
		return
	}
	response := models.NewEntryResponse(tapEntry{Marker: marker, Line: detail}, models.NewEmptyReferences(), api.Clock)
	api.sendResponse(w, r, response)
}

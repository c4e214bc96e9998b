package restapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"trajet.transportbi.org/internal/admin"
	"trajet.transportbi.org/internal/gtfs"
	"trajet.transportbi.org/internal/models"
)

func adminList[T any](api *RestAPI, list func(*admin.Flows, context.Context) ([]T, error)) http.HandlerFunc {
	return api.requireAdmin(func(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
		rows, err := list(flows, r.Context())
		if err != nil {
			api.handleError(w, r, err)
			return
		}
		api.sendResponse(w, r, models.NewListResponse(rows, models.NewEmptyReferences(), false, api.Clock))
	})
}

// adminSave decodes a form and saves it. On PUT the path id wins over any
// id in the body; on POST the id is cleared so the call always creates.
func adminSave[F, T any](api *RestAPI, setID func(*F, string), save func(*admin.Flows, context.Context, F) (T, error)) http.HandlerFunc {
	return api.requireAdmin(func(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
		var form F
		if !api.decodeJSON(w, r, &form) {
			return
		}
		creating := r.Method == http.MethodPost
		if creating {
			setID(&form, "")
		} else {
			id, fieldErrors := pathID(r)
			if fieldErrors != nil {
				api.validationErrorResponse(w, r, fieldErrors)
				return
			}
			setID(&form, id)
		}

		saved, err := save(flows, r.Context(), form)
		if err != nil {
			api.handleError(w, r, err)
			return
		}
		response := models.NewEntryResponse(saved, models.NewEmptyReferences(), api.Clock)
		if creating {
			response.Code = http.StatusCreated
		}
		api.sendResponse(w, r, response)
	})
}

func adminToggle[T any](api *RestAPI, toggle func(*admin.Flows, context.Context, string) (T, error)) http.HandlerFunc {
	return api.requireAdmin(func(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
		row, err := toggle(flows, r.Context(), r.PathValue("id"))
		if err != nil {
			api.handleError(w, r, err)
			return
		}
		api.sendResponse(w, r, models.NewEntryResponse(row, models.NewEmptyReferences(), api.Clock))
	})
}

func adminDelete(api *RestAPI, del func(*admin.Flows, context.Context, string) error) http.HandlerFunc {
	return api.requireAdmin(func(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
		if err := del(flows, r.Context(), r.PathValue("id")); err != nil {
			api.handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (api *RestAPI) dashboardHandler(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
	d, err := flows.Dashboard(r.Context())
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(d, models.NewEmptyReferences(), api.Clock))
}

// importGTFSHandler reads a GTFS zip from the request body and inserts its
// routes as bus lines of the city named by ?city_id=.
func (api *RestAPI) importGTFSHandler(w http.ResponseWriter, r *http.Request, flows *admin.Flows) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFeedUploadSize))
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"body": {fmt.Sprintf("must be a GTFS zip of at most %d MB", maxFeedUploadSize>>20)},
		})
		return
	}
	if len(body) == 0 {
		api.validationErrorResponse(w, r, map[string][]string{"body": {"is required"}})
		return
	}
	feed, err := gtfs.Parse(body)
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"body": {err.Error()}})
		return
	}

	summary, err := flows.ImportGTFS(r.Context(), feed, r.URL.Query().Get("city_id"))
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(summary, models.NewEmptyReferences(), api.Clock))
}

func setAgencyID(f *admin.AgencyForm, id string)   { f.ID = id }
func setBusLineID(f *admin.BusLineForm, id string) { f.ID = id }
func setRouteID(f *admin.RouteForm, id string)     { f.ID = id }
func setCityID(f *admin.CityForm, id string)       { f.ID = id }

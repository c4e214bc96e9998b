package restapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"trajet.transportbi.org/internal/admin"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/session"
	"trajet.transportbi.org/internal/supabase"
)

func (api *RestAPI) logRequestError(r *http.Request, msg string, err error) {
	logging.LogError(api.Logger, msg, err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())))
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.logRequestError(r, "internal server error", err)
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// backendErrorResponse reports a failed call to the remote data source
// without exposing its details.
func (api *RestAPI) backendErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.logRequestError(r, "backend request failed", err)
	api.sendError(w, r, http.StatusBadGateway, "the data service is unavailable, please try again")
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusBadRequest)
	api.encode(w, r, validationErrorBody{
		Code:        http.StatusBadRequest,
		CurrentTime: api.Clock.NowUnixMilli(),
		Text:        "invalid request",
		Version:     2,
		FieldErrors: fieldErrors,
	})
}

type validationErrorBody struct {
	Code        int                 `json:"code"`
	CurrentTime int64               `json:"currentTime"`
	Text        string              `json:"text"`
	Version     int                 `json:"version"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendUnauthorized(w, r)
}

// handleError maps domain errors onto responses. Anything unrecognised is a
// backend failure.
func (api *RestAPI) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *admin.ValidationError
		apiErr *supabase.APIError
	)
	switch {
	case errors.As(err, &verr):
		api.validationErrorResponse(w, r, verr.Fields)
	case errors.Is(err, gateway.ErrNotFound):
		api.sendNotFound(w, r)
	case errors.Is(err, gateway.ErrConflict):
		api.sendError(w, r, http.StatusConflict, "the record conflicts with an existing one")
	case errors.Is(err, gateway.ErrInvalidQuery):
		api.serverErrorResponse(w, r, err)
	case errors.Is(err, admin.ErrForbidden):
		api.sendError(w, r, http.StatusForbidden, "admin privileges required")
	case errors.Is(err, session.ErrInvalidCredentials):
		api.sendError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrNotSignedIn):
		api.sendError(w, r, http.StatusUnauthorized, "sign in required")
	case errors.Is(err, session.ErrUserExists):
		api.sendError(w, r, http.StatusConflict, "an account already exists for this email")
	case errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden):
		api.sendError(w, r, http.StatusForbidden, "the data service refused the request")
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		api.sendError(w, r, http.StatusBadRequest, apiErr.Message)
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		api.Logger.Debug("request canceled", slog.String("path", r.URL.Path))
	default:
		api.backendErrorResponse(w, r, err)
	}
}

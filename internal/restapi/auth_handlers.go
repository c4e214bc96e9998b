package restapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"trajet.transportbi.org/internal/localauth"
	"trajet.transportbi.org/internal/models"
	"trajet.transportbi.org/internal/session"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) fieldErrors() map[string][]string {
	fieldErrors := map[string][]string{}
	if strings.TrimSpace(c.Email) == "" {
		fieldErrors["email"] = []string{"is required"}
	}
	if c.Password == "" {
		fieldErrors["password"] = []string{"is required"}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// decodeJSON reads a bounded JSON body into dst. It answers the request and
// returns false on malformed input.
func (api *RestAPI) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "must be a valid JSON object"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = "is too large"
		case errors.Is(err, io.EOF):
			msg = "is required"
		}
		api.validationErrorResponse(w, r, map[string][]string{"body": {msg}})
		return false
	}
	return true
}

// sessionEntry carries the issued session. Pending is set when sign-up
// succeeded but the backend wants the email confirmed before the first
// sign-in.
type sessionEntry struct {
	Session *session.Session `json:"session"`
	Pending bool             `json:"pending,omitempty"`
}

// requestProvider builds a provider whose session lives only for this
// request. The server never keeps sessions; clients hold the tokens.
func (api *RestAPI) requestProvider(seed *session.Session) (session.Provider, error) {
	store := &session.MemoryStore{}
	if seed != nil {
		if err := store.Save(seed); err != nil {
			return nil, err
		}
	}
	return api.Backend.NewProvider(store)
}

func (api *RestAPI) signInHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !api.decodeJSON(w, r, &creds) {
		return
	}
	if fieldErrors := creds.fieldErrors(); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	provider, err := api.requestProvider(nil)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	sess, err := provider.SignIn(r.Context(), strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(sessionEntry{Session: sess}, models.NewEmptyReferences(), api.Clock))
}

func (api *RestAPI) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !api.decodeJSON(w, r, &creds) {
		return
	}
	if fieldErrors := creds.fieldErrors(); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	provider, err := api.requestProvider(nil)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	sess, err := provider.SignUp(r.Context(), strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		if errors.Is(err, localauth.ErrWeakPassword) {
			api.validationErrorResponse(w, r, map[string][]string{"password": {err.Error()}})
			return
		}
		api.handleError(w, r, err)
		return
	}
	entry := sessionEntry{Session: sess, Pending: sess == nil}
	response := models.NewEntryResponse(entry, models.NewEmptyReferences(), api.Clock)
	response.Code = http.StatusCreated
	api.sendResponse(w, r, response)
}

// signOutHandler revokes the bearer token at the backend. It succeeds even
// when the backend call fails: the client drops its tokens either way.
func (api *RestAPI) signOutHandler(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		api.sendError(w, r, http.StatusUnauthorized, "sign in required")
		return
	}
	provider, err := api.requestProvider(&session.Session{AccessToken: token})
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if err := provider.SignOut(r.Context()); err != nil {
		api.logRequestError(r, "backend sign-out failed", err)
	}
	api.sendResponse(w, r, models.NewOKResponse(nil, api.Clock))
}

type meEntry struct {
	User    session.User `json:"user"`
	IsAdmin bool         `json:"is_admin"`
}

func (api *RestAPI) meHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.identify(r)
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	entry := meEntry{User: id.User, IsAdmin: id.IsAdmin()}
	api.sendResponse(w, r, models.NewEntryResponse(entry, models.NewEmptyReferences(), api.Clock))
}

package restapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"trajet.transportbi.org/internal/admin"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/session"
)

// Identity is the caller behind a bearer token, resolved once per request.
type Identity struct {
	User  session.User
	Token string
	Admin bool
}

func (i *Identity) IsAdmin() bool { return i != nil && i.Admin }

var errNoBearer = errors.New("missing bearer token")

func bearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(token), nil
}

// identify resolves the bearer token of r. A failed admin lookup leaves the
// identity without admin rights.
func (api *RestAPI) identify(r *http.Request) (*Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, session.ErrNotSignedIn
	}
	user, err := api.Backend.UserForToken(r.Context(), token)
	if err != nil {
		return nil, err
	}

	id := &Identity{User: user, Token: token}
	if api.Gateway.Admins != nil {
		ctx := gateway.WithAccessToken(r.Context(), token)
		ok, err := api.Gateway.Admins.IsAdmin(ctx, user.ID)
		if err != nil {
			logging.LogError(api.Logger, "admin lookup failed, treating caller as non-admin", err,
				slog.String("user_id", user.ID))
		}
		id.Admin = ok && err == nil
	}
	return id, nil
}

// adminHandler is a handler that runs with a resolved admin identity and
// flows bound to it.
type adminHandler func(w http.ResponseWriter, r *http.Request, flows *admin.Flows)

// requireAdmin answers 401 without a valid token and 403 for non-admins,
// before any admin data is fetched. The request context carries the token
// so the backend applies the caller's row-level security.
func (api *RestAPI) requireAdmin(next adminHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.identify(r)
		if err != nil {
			if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, session.ErrInvalidToken) {
				api.sendError(w, r, http.StatusUnauthorized, "sign in required")
				return
			}
			api.handleError(w, r, err)
			return
		}
		if !id.IsAdmin() {
			api.sendError(w, r, http.StatusForbidden, "admin privileges required")
			return
		}
		r = r.WithContext(gateway.WithAccessToken(r.Context(), id.Token))
		next(w, r, admin.New(api.Gateway, id))
	}
}

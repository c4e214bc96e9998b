package app

import (
	"crypto/subtle"
	"net/http"
)

// RequestAPIKey returns the "key" query parameter of r.
func RequestAPIKey(r *http.Request) string {
	return r.URL.Query().Get("key")
}

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(RequestAPIKey(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.ApiKeys {
		if validKey == "" {
			continue
		}
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}

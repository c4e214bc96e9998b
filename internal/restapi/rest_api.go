package restapi

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/search"
)

const (
	// recentsTTL is how long an API key's recent searches outlive its last
	// search.
	recentsTTL     = 24 * time.Hour
	recentsCleanup = time.Hour

	// maxFeedUploadSize bounds GTFS zip bodies posted to the import endpoint.
	maxFeedUploadSize = 64 << 20
	maxFormBodySize   = 1 << 20
)

type RestAPI struct {
	*app.Application
	rateLimiter func(http.Handler) http.Handler
	limiter     *RateLimitMiddleware
	recents     *cache.Cache
}

// NewRestAPI creates a new RestAPI instance with a per-key rate limiter and
// a per-key recent searches store.
func NewRestAPI(app *app.Application) *RestAPI {
	limiter := NewRateLimitMiddleware(app.Config.RateLimit, time.Second, nil, app.Clock)
	return &RestAPI{
		Application: app,
		rateLimiter: limiter.Handler(),
		limiter:     limiter,
		recents:     cache.New(recentsTTL, recentsCleanup),
	}
}

// recentsFor returns the recent searches of one API key, creating the list
// on first use. Each call extends the list's lifetime.
func (api *RestAPI) recentsFor(key string) *search.Recents {
	if v, ok := api.recents.Get(key); ok {
		r := v.(*search.Recents)
		api.recents.Set(key, r, cache.DefaultExpiration)
		return r
	}
	r := search.NewRecents(search.DefaultRecentsCapacity)
	if err := api.recents.Add(key, r, cache.DefaultExpiration); err != nil {
		// Another request created the list first.
		if v, ok := api.recents.Get(key); ok {
			return v.(*search.Recents)
		}
	}
	return r
}

// Shutdown stops background goroutines owned by the API.
func (api *RestAPI) Shutdown() {
	if api.limiter != nil {
		api.limiter.Stop()
	}
}

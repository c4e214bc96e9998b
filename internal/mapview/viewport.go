package mapview

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"trajet.transportbi.org/internal/models"
	"trajet.transportbi.org/internal/utils"
)

// EdgePadding is the screen margin, in points, kept around fitted geometry.
type EdgePadding struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// DefaultEdgePadding leaves room at the bottom for the detail panel.
var DefaultEdgePadding = EdgePadding{Top: 80, Right: 80, Bottom: 200, Left: 80}

// minDelta keeps a single-point fit from zooming in without limit.
const minDelta = 0.005

type Viewport struct {
	NorthEast      models.LatLng `json:"north_east"`
	SouthWest      models.LatLng `json:"south_west"`
	Center         models.LatLng `json:"center"`
	LatitudeDelta  float64       `json:"latitude_delta"`
	LongitudeDelta float64       `json:"longitude_delta"`
	Padding        EdgePadding   `json:"edge_padding"`
}

// ComputeViewport fits points. It reports false when there is nothing to fit.
func ComputeViewport(points []models.LatLng, padding EdgePadding) (Viewport, bool) {
	b, ok := utils.Envelope(points)
	if !ok {
		return Viewport{}, false
	}
	return Viewport{
		NorthEast:      models.LatLng{Latitude: b.MaxLat, Longitude: b.MaxLon},
		SouthWest:      models.LatLng{Latitude: b.MinLat, Longitude: b.MinLon},
		Center:         b.Center(),
		LatitudeDelta:  max(b.LatSpan(), minDelta),
		LongitudeDelta: max(b.LonSpan(), minDelta),
		Padding:        padding,
	}, true
}

// DefaultViewport is the initial region shown before any line loads.
func DefaultViewport() Viewport {
	c := models.DefaultMapCenter
	d := models.DefaultRegionDelta
	return Viewport{
		NorthEast:      models.LatLng{Latitude: c.Latitude + d/2, Longitude: c.Longitude + d/2},
		SouthWest:      models.LatLng{Latitude: c.Latitude - d/2, Longitude: c.Longitude - d/2},
		Center:         c,
		LatitudeDelta:  d,
		LongitudeDelta: d,
		Padding:        DefaultEdgePadding,
	}
}

// Fitter applies the viewport fit once: the first time the observed lines
// contain any point. Later observations never refit, whatever their
// content, until Reset.
type Fitter struct {
	mu     sync.Mutex
	fitted bool
}

func (f *Fitter) Observe(lines []models.BusLine) (Viewport, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fitted {
		return Viewport{}, false
	}
	vp, ok := ComputeViewport(Points(lines), DefaultEdgePadding)
	if !ok {
		return Viewport{}, false
	}
	f.fitted = true
	return vp, true
}

func (f *Fitter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fitted = false
}

// Fingerprint hashes the rendered content of lines. Identical content gives
// an identical fingerprint.
func Fingerprint(lines []models.BusLine) string {
	h := xxhash.New()
	enc := json.NewEncoder(h)
	for _, line := range lines {
		_ = enc.Encode(line)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

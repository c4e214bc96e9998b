package mapview

import (
	"math"

	"github.com/tidwall/rtree"
	"trajet.transportbi.org/internal/models"
	"trajet.transportbi.org/internal/utils"
)

// TapRadiusMeters is how far from a marker a tap still selects it.
const TapRadiusMeters = 75.0

// MarkerIndex answers which stop marker, if any, a tap selected.
type MarkerIndex struct {
	tree    rtree.RTreeG[Marker]
	details map[string]LineDetail
}

func NewMarkerIndex(lines []models.BusLine) *MarkerIndex {
	idx := &MarkerIndex{details: make(map[string]LineDetail, len(lines))}
	for _, line := range lines {
		idx.details[line.ID] = Detail(line)
	}
	for _, m := range Markers(lines) {
		pt := [2]float64{m.Position.Longitude, m.Position.Latitude}
		idx.tree.Insert(pt, pt, m)
	}
	return idx
}

func (idx *MarkerIndex) Len() int {
	return idx.tree.Len()
}

// Tap returns the nearest marker within TapRadiusMeters of p together with
// the detail of the line that owns it.
func (idx *MarkerIndex) Tap(p models.LatLng) (Marker, LineDetail, bool) {
	b := utils.CalculateBounds(p.Latitude, p.Longitude, TapRadiusMeters)

	var (
		best     Marker
		bestDist = math.Inf(1)
	)
	idx.tree.Search(
		[2]float64{b.MinLon, b.MinLat},
		[2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, m Marker) bool {
			d := utils.DistanceBetween(p, m.Position)
			if d <= TapRadiusMeters && (d < bestDist || (d == bestDist && m.ID < best.ID)) {
				best, bestDist = m, d
			}
			return true
		},
	)
	if math.IsInf(bestDist, 1) {
		return Marker{}, LineDetail{}, false
	}
	return best, idx.details[best.LineID], true
}

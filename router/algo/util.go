package algo

import "math"

const EARTH_RADIUS = 6_371_000 // m

// WGS84经纬度
type Point struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance in meters.
func Haversine(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return EARTH_RADIUS * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// 按米计的距离预估
type HaversineHeuristics struct{}

func (HaversineHeuristics) HeuristicEuclidean(p1, p2 Point) float64 {
	return Haversine(p1, p2)
}

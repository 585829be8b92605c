package router

import (
	"fmt"
	"math"
	"slices"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

type bikeDock struct {
	station  int
	distance float64 // 车站到单车站点的距离（m）
}

// 可用单车站点及其空间索引
type bikeNetwork struct {
	ids   []string
	docks *gridIndex
}

// 可用的单车站点，无车的站点在构建时剔除
func newBikeNetwork(stations map[string]BikeStationInput) (*bikeNetwork, error) {
	ids := lo.Keys(stations)
	slices.Sort(ids)
	kept := make([]string, 0, len(ids))
	points := make([]algo.Point, 0, len(ids))
	for _, id := range ids {
		s := stations[id]
		if s.Bikes < 0 || s.Capacity < 0 {
			return nil, fmt.Errorf("%w: bike station %s has negative bikes or capacity", ErrDataIntegrity, id)
		}
		if s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
			return nil, fmt.Errorf("%w: bike station %s has invalid position (%v, %v)", ErrDataIntegrity, id, s.Lat, s.Lon)
		}
		if s.Bikes == 0 {
			continue
		}
		kept = append(kept, id)
		points = append(points, s.point())
	}
	if dropped := len(ids) - len(kept); dropped > 0 {
		log.Infof("%d bike stations without bikes dropped", dropped)
	}
	return &bikeNetwork{ids: kept, docks: newGridIndex(points)}, nil
}

func (b *bikeNetwork) size() int {
	return len(b.ids)
}

// 步行MaxDockAccessDistance内最近的单车站点，没有时station为NO_INDEX
func (b *bikeNetwork) nearest(p algo.Point, m *distanceMeasurer, opts ProximityOptions) bikeDock {
	dock := bikeDock{station: algo.NO_INDEX, distance: math.Inf(0)}
	for _, s := range b.docks.within(p, opts.MaxDockAccessDistance) {
		d, ok := m.distance(p, b.docks.points[s])
		if ok && d <= opts.MaxDockAccessDistance && d < dock.distance {
			dock = bikeDock{station: s, distance: d}
		}
	}
	return dock
}

// 从from站点骑到to站点的总时间：步行到站点 + 借还车 + 骑行 + 步行离开站点
func (b *bikeNetwork) ride(from, to bikeDock, m *distanceMeasurer, opts ProximityOptions) (int32, bool) {
	if from.station == algo.NO_INDEX || to.station == algo.NO_INDEX || from.station == to.station {
		return 0, false
	}
	ride, ok := m.distance(b.docks.points[from.station], b.docks.points[to.station])
	if !ok || ride > opts.BikeSpeed*float64(opts.MaxBikeTime) {
		return 0, false
	}
	seconds := (from.distance+to.distance)/opts.WalkSpeed + ride/opts.BikeSpeed + float64(opts.BikeRentalTime)
	return max(int32(math.Ceil(seconds)), 1), true
}

// 借车和还车的站点id
func (b *bikeNetwork) stations(from, to bikeDock) []string {
	return []string{b.ids[from.station], b.ids[to.station]}
}

// 共享单车连接：两个车站各自步行可达不同的单车站点，且骑行时间不超过MaxBikeTime
func buildBikeTransfers(
	tt *Timetable,
	stops *gridIndex,
	bikes *bikeNetwork,
	m *distanceMeasurer,
	opts ProximityOptions,
) map[string][]TransferInput {
	out := make(map[string][]TransferInput)
	if bikes.size() < 2 {
		return out
	}
	// 每个车站最近的可用单车站点
	nearest := lo.Map(stops.points, func(p algo.Point, _ int) bikeDock {
		return bikes.nearest(p, m, opts)
	})

	maxRide := opts.BikeSpeed * float64(opts.MaxBikeTime)
	for i, from := range nearest {
		if from.station == algo.NO_INDEX {
			continue
		}
		for _, j := range stops.within(stops.points[i], maxRide+2*opts.MaxDockAccessDistance) {
			if j == i {
				continue
			}
			duration, ok := bikes.ride(from, nearest[j], m, opts)
			if !ok {
				continue
			}
			out[tt.StopID(i)] = append(out[tt.StopID(i)], TransferInput{
				To:       tt.StopID(j),
				Duration: duration,
				Mode:     algo.MODE_BIKE.String(),
			})
		}
	}
	return out
}

// BuildProximityTransfers derives walk connections between nearby stops and
// bike connections through the available bike stations. Distances follow the
// street graph when one is given and the great circle otherwise.
func BuildProximityTransfers(
	tt *Timetable,
	stations map[string]BikeStationInput,
	streets *StreetGraph,
	opts ProximityOptions,
) (map[string][]TransferInput, error) {
	bikes, err := newBikeNetwork(stations)
	if err != nil {
		return nil, err
	}
	return buildProximityTransfers(tt, newGridIndex(stopPoints(tt)), bikes, newDistanceMeasurer(streets), opts), nil
}

func buildProximityTransfers(
	tt *Timetable,
	grid *gridIndex,
	bikes *bikeNetwork,
	m *distanceMeasurer,
	opts ProximityOptions,
) map[string][]TransferInput {
	out := make(map[string][]TransferInput)
	if opts.Walk {
		out = mergeTransfers(out, buildWalkTransfers(tt, grid, m, opts))
	}
	if opts.Bike {
		out = mergeTransfers(out, buildBikeTransfers(tt, grid, bikes, m, opts))
	}
	return out
}

func mergeTransfers(dst, src map[string][]TransferInput) map[string][]TransferInput {
	if dst == nil {
		dst = make(map[string][]TransferInput, len(src))
	}
	for from, edges := range src {
		dst[from] = append(dst[from], edges...)
	}
	return dst
}

package router

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

// 坐标与车站之间的接驳
type pointAccess struct {
	algo.Access
	// 骑行接驳的借车和还车站点
	stations []string
}

// 坐标查询的接驳计算，距离缓存不可跨查询共享
type pointLinker struct {
	net  *Network
	m    *distanceMeasurer
	opts ProximityOptions
}

func (n *Network) newPointLinker() *pointLinker {
	return &pointLinker{net: n, m: newDistanceMeasurer(n.streets), opts: n.opts}
}

func walkSeconds(d, speed float64) int32 {
	return max(int32(math.Ceil(d/speed)), 1)
}

// toStop为true时从p到车站，否则从车站到p
func (l *pointLinker) between(p, stop algo.Point, toStop bool) (float64, bool) {
	if toStop {
		return l.m.distance(p, stop)
	}
	return l.m.distance(stop, p)
}

// 步行MaxAccessWalkTime内可达的车站
func (l *pointLinker) walkAccess(p algo.Point, toStop bool) []pointAccess {
	radius := l.opts.WalkSpeed * float64(l.opts.MaxAccessWalkTime)
	out := make([]pointAccess, 0)
	for _, i := range l.net.stops.within(p, radius) {
		d, ok := l.between(p, l.net.stops.points[i], toStop)
		if !ok {
			continue
		}
		t := walkSeconds(d, l.opts.WalkSpeed)
		if t > l.opts.MaxAccessWalkTime {
			continue
		}
		out = append(out, pointAccess{Access: algo.Access{Stop: i, Duration: t, Mode: algo.MODE_WALK}})
	}
	return out
}

// 经共享单车可达的车站，规则与车站间的骑行连接相同
func (l *pointLinker) bikeAccess(p algo.Point, toStop bool) []pointAccess {
	bikes := l.net.bikes
	if !l.opts.Bike || bikes.size() < 2 {
		return nil
	}
	here := bikes.nearest(p, l.m, l.opts)
	if here.station == algo.NO_INDEX {
		return nil
	}
	maxRide := l.opts.BikeSpeed * float64(l.opts.MaxBikeTime)
	out := make([]pointAccess, 0)
	for _, i := range l.net.stops.within(p, maxRide+2*l.opts.MaxDockAccessDistance) {
		there := bikes.nearest(l.net.stops.points[i], l.m, l.opts)
		from, to := here, there
		if !toStop {
			from, to = there, here
		}
		t, ok := bikes.ride(from, to, l.m, l.opts)
		if !ok {
			continue
		}
		out = append(out, pointAccess{
			Access:   algo.Access{Stop: i, Duration: t, Mode: algo.MODE_BIKE},
			stations: bikes.stations(from, to),
		})
	}
	return out
}

func directItinerary(departure, duration int32, mode algo.Mode, stations []string) Itinerary {
	return Itinerary{
		Legs: []Leg{{
			Kind:     LEG_KIND_DIRECT,
			From:     PLACE_ORIGIN,
			To:       PLACE_DESTINATION,
			Start:    departure,
			End:      departure + duration,
			Mode:     mode.String(),
			Stations: stations,
		}},
		Departure: departure,
		Arrival:   departure + duration,
	}
}

// 不乘车的直达方案：步行不超过MaxAccessWalkTime，骑行规则与车站间的骑行连接相同
func (l *pointLinker) direct(o, d algo.Point, departure int32, includeBike bool) []Itinerary {
	out := make([]Itinerary, 0, 2)
	if dist, ok := l.m.distance(o, d); ok {
		t := walkSeconds(dist, l.opts.WalkSpeed)
		if t <= l.opts.MaxAccessWalkTime && departure <= algo.INF_TIME-t {
			out = append(out, directItinerary(departure, t, algo.MODE_WALK, nil))
		}
	}
	bikes := l.net.bikes
	if includeBike && l.opts.Bike && bikes.size() >= 2 {
		from, to := bikes.nearest(o, l.m, l.opts), bikes.nearest(d, l.m, l.opts)
		if t, ok := bikes.ride(from, to, l.m, l.opts); ok && departure <= algo.INF_TIME-t {
			out = append(out, directItinerary(departure, t, algo.MODE_BIKE, bikes.stations(from, to)))
		}
	}
	return out
}

func checkPosition(name string, p Position) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: %s position (%v, %v)", ErrInvalidQuery, name, p.Lat, p.Lon)
	}
	return nil
}

// 按到达时间升序，只保留换乘次数严格下降的方案；相同时保留靠前的
func paretoItineraries(its []Itinerary) []Itinerary {
	sort.SliceStable(its, func(i, j int) bool {
		if its[i].Arrival != its[j].Arrival {
			return its[i].Arrival < its[j].Arrival
		}
		return its[i].Transfers < its[j].Transfers
	})
	out := its[:0]
	for _, it := range its {
		if len(out) == 0 || it.Transfers < out[len(out)-1].Transfers {
			out = append(out, it)
		}
	}
	return out
}

func selectItineraries(its []Itinerary, sel algo.Selection) []Itinerary {
	if len(its) == 0 {
		return its
	}
	switch sel {
	case algo.SELECT_EARLIEST:
		return its[:1]
	case algo.SELECT_FEWEST_CHANGES:
		return its[len(its)-1:]
	}
	return its
}

// RouteBetween returns the Pareto set of itineraries over (arrival,
// transfers) between two coordinates, ordered by arrival. Direct walk and
// bike itineraries count as zero transfers. A positive MaxResults keeps the
// earliest ones.
func (r *Router) RouteBetween(q PointQuery) ([]Itinerary, error) {
	if err := checkPosition(PLACE_ORIGIN, q.Origin); err != nil {
		return nil, err
	}
	if err := checkPosition(PLACE_DESTINATION, q.Destination); err != nil {
		return nil, err
	}
	if q.Departure < 0 {
		return nil, fmt.Errorf("%w: negative departure %d", ErrInvalidQuery, q.Departure)
	}
	if q.Selection < algo.SELECT_ALL || q.Selection > algo.SELECT_FEWEST_CHANGES {
		return nil, fmt.Errorf("%w: unknown selection %d", ErrInvalidQuery, q.Selection)
	}
	if q.MaxResults < 0 {
		return nil, fmt.Errorf("%w: negative max results %d", ErrInvalidQuery, q.MaxResults)
	}
	maxRounds := q.MaxRounds
	if maxRounds < 0 {
		maxRounds = r.opts.MaxRounds
	}

	net := r.network()
	linker := net.newPointLinker()
	o, d := q.Origin.point(), q.Destination.point()
	access, egress := linker.walkAccess(o, true), linker.walkAccess(d, false)
	if q.IncludeBike {
		access = append(access, linker.bikeAccess(o, true)...)
		egress = append(egress, linker.bikeAccess(d, false)...)
	}
	toAlgo := func(a pointAccess, _ int) algo.Access { return a.Access }
	store := net.raptor.RunFrom(lo.Map(access, toAlgo), q.Departure, algo.Options{
		MaxRounds:         maxRounds,
		IncludeBike:       q.IncludeBike,
		BoardSlack:        r.opts.BoardSlack,
		Parallelism:       r.opts.Parallelism,
		Target:            algo.NO_INDEX,
		CountTransferLegs: r.opts.CountTransferLegs,
	})
	journeys, err := algo.ReconstructEgress(store, net.tt, lo.Map(egress, toAlgo), algo.SELECT_ALL)
	if err != nil {
		log.Errorf("(%v, %v) -> (%v, %v) at %s: %v",
			q.Origin.Lat, q.Origin.Lon, q.Destination.Lat, q.Destination.Lon, FormatClock(q.Departure), err)
		return nil, err
	}

	// 直达方案在前，与乘车方案相同时优先保留
	its := linker.direct(o, d, q.Departure, q.IncludeBike)
	its = append(its, lo.Map(journeys, net.itinerary)...)
	its = selectItineraries(paretoItineraries(its), q.Selection)
	if q.MaxResults > 0 && len(its) > q.MaxResults {
		its = its[:q.MaxResults]
	}
	net.fillStations(its, access, egress)
	return its, nil
}

// 为骑行接驳段补充借还车站点
func (n *Network) fillStations(its []Itinerary, access, egress []pointAccess) {
	stationsOf := func(as []pointAccess) map[string][]string {
		m := make(map[string][]string)
		for _, a := range as {
			if a.Mode == algo.MODE_BIKE {
				m[n.tt.StopID(a.Stop)] = a.stations
			}
		}
		return m
	}
	accessStations, egressStations := stationsOf(access), stationsOf(egress)
	bike := algo.MODE_BIKE.String()
	for _, it := range its {
		for i := range it.Legs {
			leg := &it.Legs[i]
			switch {
			case leg.Kind == LEG_KIND_ACCESS && leg.Mode == bike:
				leg.Stations = accessStations[leg.To]
			case leg.Kind == LEG_KIND_EGRESS && leg.Mode == bike:
				leg.Stations = egressStations[leg.From]
			}
		}
	}
}

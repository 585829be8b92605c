package router

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

// 内部线路：停靠序列相同且班次互不超车
type pattern struct {
	routeID string
	stops   []int
	tripIDs []string
	// [trip][index]
	arrivals   [][]int32
	departures [][]int32
	// [index][trip]，按班次有序，用于二分查找
	columns [][]int32
}

// Timetable is the immutable schedule. Input routes are split into internal
// patterns so that every pattern has a single stop sequence and its trips
// never overtake each other, which keeps every departure column sorted.
type Timetable struct {
	stopIDs   []string
	stopIndex map[string]int
	positions []Position

	patterns []*pattern
	routesAt [][]algo.RouteStop
	numTrips int
}

type tripTimes struct {
	id         string
	stops      []int
	arrivals   []int32
	departures []int32
}

func NewTimetable(in *TimetableInput) (*Timetable, error) {
	tt := &Timetable{
		stopIDs:   lo.Keys(in.Stops),
		stopIndex: make(map[string]int, len(in.Stops)),
	}
	slices.Sort(tt.stopIDs)
	tt.positions = make([]Position, len(tt.stopIDs))
	for i, id := range tt.stopIDs {
		p := in.Stops[id]
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("%w: stop %s has invalid position (%v, %v)", ErrDataIntegrity, id, p.Lat, p.Lon)
		}
		tt.stopIndex[id] = i
		tt.positions[i] = p
	}

	// 检查线路与班次的从属关系
	owner := make(map[string]string, len(in.Trips))
	routeIDs := lo.Keys(in.Routes)
	slices.Sort(routeIDs)
	for _, routeID := range routeIDs {
		for _, tripID := range in.Routes[routeID].Trips {
			if _, ok := in.Trips[tripID]; !ok {
				return nil, fmt.Errorf("%w: route %s references unknown trip %s", ErrDataIntegrity, routeID, tripID)
			}
			if other, ok := owner[tripID]; ok {
				return nil, fmt.Errorf("%w: trip %s belongs to routes %s and %s", ErrDataIntegrity, tripID, other, routeID)
			}
			owner[tripID] = routeID
		}
	}
	tripIDs := lo.Keys(in.Trips)
	slices.Sort(tripIDs)
	trips := make(map[string]*tripTimes, len(in.Trips))
	for _, tripID := range tripIDs {
		if _, ok := owner[tripID]; !ok {
			return nil, fmt.Errorf("%w: trip %s belongs to no route", ErrDataIntegrity, tripID)
		}
		t, err := tt.validateTrip(tripID, in.Trips[tripID])
		if err != nil {
			return nil, err
		}
		trips[tripID] = t
	}

	for _, routeID := range routeIDs {
		ts := lo.Map(in.Routes[routeID].Trips, func(id string, _ int) *tripTimes { return trips[id] })
		if len(ts) == 0 {
			log.Warnf("route %s has no trip, skipped", routeID)
			continue
		}
		tt.addRoute(routeID, ts)
	}

	tt.routesAt = make([][]algo.RouteStop, len(tt.stopIDs))
	for r, p := range tt.patterns {
		for i, stop := range p.stops {
			tt.routesAt[stop] = append(tt.routesAt[stop], algo.RouteStop{Route: r, Index: i})
		}
	}
	tt.numTrips = len(trips)
	return tt, nil
}

func (tt *Timetable) validateTrip(tripID string, sts []StopTimeInput) (*tripTimes, error) {
	if len(sts) < 2 {
		return nil, fmt.Errorf("%w: trip %s has %d stop times, at least 2 required", ErrDataIntegrity, tripID, len(sts))
	}
	t := &tripTimes{
		id:         tripID,
		stops:      make([]int, len(sts)),
		arrivals:   make([]int32, len(sts)),
		departures: make([]int32, len(sts)),
	}
	for i, st := range sts {
		stop, ok := tt.stopIndex[st.StopID]
		if !ok {
			return nil, fmt.Errorf("%w: trip %s references unknown stop %s", ErrDataIntegrity, tripID, st.StopID)
		}
		arrival, departure := int32(st.Arrival), int32(st.Departure)
		switch {
		case arrival < 0:
			return nil, fmt.Errorf("%w: trip %s has negative time at stop %s", ErrDataIntegrity, tripID, st.StopID)
		case departure < arrival:
			return nil, fmt.Errorf("%w: trip %s departs stop %s before arriving", ErrDataIntegrity, tripID, st.StopID)
		case i > 0 && arrival < t.departures[i-1]:
			return nil, fmt.Errorf("%w: trip %s arrives at stop %s before leaving the previous stop", ErrDataIntegrity, tripID, st.StopID)
		}
		t.stops[i], t.arrivals[i], t.departures[i] = stop, arrival, departure
	}
	return t, nil
}

// 按停靠序列分组，再把每组拆成互不超车的链
func (tt *Timetable) addRoute(routeID string, ts []*tripTimes) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].departures[0] != ts[j].departures[0] {
			return ts[i].departures[0] < ts[j].departures[0]
		}
		return ts[i].id < ts[j].id
	})
	groups := make(map[string][]*pattern)
	order := make([]string, 0)
	for _, t := range ts {
		key := strings.Join(lo.Map(t.stops, func(s int, _ int) string { return tt.stopIDs[s] }), "\x00")
		chains, ok := groups[key]
		if !ok {
			order = append(order, key)
		}
		placed := false
		for _, p := range chains {
			last := len(p.tripIDs) - 1
			if !overtakes(p.arrivals[last], p.departures[last], t) {
				p.append(t)
				placed = true
				break
			}
		}
		if !placed {
			p := &pattern{routeID: routeID, stops: t.stops, columns: make([][]int32, len(t.stops))}
			p.append(t)
			groups[key] = append(chains, p)
		}
	}
	split := 0
	for _, key := range order {
		tt.patterns = append(tt.patterns, groups[key]...)
		split += len(groups[key])
	}
	if split > 1 {
		log.Debugf("route %s split into %d patterns", routeID, split)
	}
}

// t在某个车站早于前一班次到达或出发
func overtakes(arrivals, departures []int32, t *tripTimes) bool {
	for i := range t.stops {
		if t.arrivals[i] < arrivals[i] || t.departures[i] < departures[i] {
			return true
		}
	}
	return false
}

func (p *pattern) append(t *tripTimes) {
	p.tripIDs = append(p.tripIDs, t.id)
	p.arrivals = append(p.arrivals, t.arrivals)
	p.departures = append(p.departures, t.departures)
	for i, d := range t.departures {
		p.columns[i] = append(p.columns[i], d)
	}
}

// algo.Timetable

func (tt *Timetable) NumStops() int {
	return len(tt.stopIDs)
}

func (tt *Timetable) RoutesAt(stop int) []algo.RouteStop {
	return tt.routesAt[stop]
}

func (tt *Timetable) PatternLen(route int) int {
	return len(tt.patterns[route].stops)
}

func (tt *Timetable) PatternStop(route, index int) int {
	return tt.patterns[route].stops[index]
}

func (tt *Timetable) EarliestTrip(route, index int, t int32) (int, bool) {
	col := tt.patterns[route].columns[index]
	i := sort.Search(len(col), func(i int) bool { return col[i] >= t })
	if i == len(col) {
		return algo.NO_INDEX, false
	}
	return i, true
}

func (tt *Timetable) StopTime(route, trip, index int) (int32, int32) {
	p := tt.patterns[route]
	return p.arrivals[trip][index], p.departures[trip][index]
}

// getter

func (tt *Timetable) StopIndex(id string) (int, bool) {
	i, ok := tt.stopIndex[id]
	return i, ok
}

func (tt *Timetable) StopID(stop int) string {
	return tt.stopIDs[stop]
}

func (tt *Timetable) StopIDs() []string {
	return slices.Clone(tt.stopIDs)
}

func (tt *Timetable) Position(stop int) Position {
	return tt.positions[stop]
}

func (tt *Timetable) RouteID(route int) string {
	return tt.patterns[route].routeID
}

func (tt *Timetable) TripID(route, trip int) string {
	return tt.patterns[route].tripIDs[trip]
}

func (tt *Timetable) NumPatterns() int {
	return len(tt.patterns)
}

func (tt *Timetable) NumTrips() int {
	return tt.numTrips
}

// EarliestTrips returns, for every route serving the stop, the earliest trip
// departing at or after t, ordered by departure. A route with no such trip is
// left out.
func (tt *Timetable) EarliestTrips(stopID string, t int32) ([]Boarding, error) {
	stop, ok := tt.stopIndex[stopID]
	if !ok {
		return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}
	best := make(map[string]Boarding)
	for _, rs := range tt.routesAt[stop] {
		trip, ok := tt.EarliestTrip(rs.Route, rs.Index, t)
		if !ok {
			continue
		}
		_, departure := tt.StopTime(rs.Route, trip, rs.Index)
		routeID := tt.RouteID(rs.Route)
		if b, ok := best[routeID]; ok && b.Departure <= departure {
			continue
		}
		best[routeID] = Boarding{
			RouteID:   routeID,
			TripID:    tt.TripID(rs.Route, trip),
			Index:     rs.Index,
			Departure: departure,
		}
	}
	boardings := lo.Values(best)
	sort.Slice(boardings, func(i, j int) bool {
		if boardings[i].Departure != boardings[j].Departure {
			return boardings[i].Departure < boardings[j].Departure
		}
		return boardings[i].RouteID < boardings[j].RouteID
	})
	return boardings, nil
}

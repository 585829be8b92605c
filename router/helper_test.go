package router_test

import (
	"fmt"
	"testing"

	"git.fiblab.net/sim/raptor/router"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) router.Clock {
	return router.Clock(h*3600 + m*60)
}

func st(stop string, arrival, departure router.Clock) router.StopTimeInput {
	return router.StopTimeInput{StopID: stop, Arrival: arrival, Departure: departure}
}

// 车站相距很远，不会生成步行换乘
func lineStops(ids ...string) map[string]router.Position {
	stops := make(map[string]router.Position, len(ids))
	for i, id := range ids {
		stops[id] = router.Position{Lat: 0, Lon: float64(i) * 0.1, Name: id}
	}
	return stops
}

// S1 -> S2 -> S3，08:00出发，08:10到S2，08:20到S3
func scenarioA() *router.NetworkInput {
	return &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops: lineStops("S1", "S2", "S3", "S4"),
			Trips: map[string][]router.StopTimeInput{
				"T1": {st("S1", hm(8, 0), hm(8, 0)), st("S2", hm(8, 10), hm(8, 10)), st("S3", hm(8, 20), hm(8, 20))},
			},
			Routes: map[string]router.RouteInput{
				"R1": {Trips: []string{"T1"}},
			},
		},
	}
}

// S1 -> S2 (08:00-08:10)，S2 -> S4 (08:15-08:30)
func scenarioC() *router.NetworkInput {
	in := scenarioA()
	in.Timetable.Trips["T2"] = []router.StopTimeInput{st("S2", hm(8, 15), hm(8, 15)), st("S4", hm(8, 30), hm(8, 30))}
	in.Timetable.Routes["R2"] = router.RouteInput{Trips: []string{"T2"}}
	return in
}

// 3x3网格，相邻车站约222m，横纵线路双向运行，06:00至09:00每10分钟一班
func gridNetwork() *router.NetworkInput {
	in := &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops:  make(map[string]router.Position),
			Trips:  make(map[string][]router.StopTimeInput),
			Routes: make(map[string]router.RouteInput),
		},
	}
	id := func(r, c int) string { return fmt.Sprintf("G%d%d", r, c) }
	for r := range 3 {
		for c := range 3 {
			in.Timetable.Stops[id(r, c)] = router.Position{Lat: 0.002 * float64(r), Lon: 0.002 * float64(c)}
		}
	}
	addLine := func(name string, stops []string, offset int) {
		route := router.RouteInput{}
		for k := range 18 {
			tripID := fmt.Sprintf("%s-%02d", name, k)
			start := hm(6, 0) + router.Clock(k*600+offset)
			sts := make([]router.StopTimeInput, len(stops))
			for i, s := range stops {
				t := start + router.Clock(i*180)
				sts[i] = st(s, t, t+30)
			}
			in.Timetable.Trips[tripID] = sts
			route.Trips = append(route.Trips, tripID)
		}
		in.Timetable.Routes[name] = route
	}
	for i := range 3 {
		row := []string{id(i, 0), id(i, 1), id(i, 2)}
		col := []string{id(0, i), id(1, i), id(2, i)}
		addLine(fmt.Sprintf("row%d", i), row, i*60)
		addLine(fmt.Sprintf("row%d-back", i), []string{row[2], row[1], row[0]}, i*60+120)
		addLine(fmt.Sprintf("col%d", i), col, i*60+240)
		addLine(fmt.Sprintf("col%d-back", i), []string{col[2], col[1], col[0]}, i*60+360)
	}
	return in
}

func mustRouter(t *testing.T, in *router.NetworkInput, proximity router.ProximityOptions, opts router.Options) *router.Router {
	t.Helper()
	net, err := router.BuildNetwork(in, proximity)
	require.NoError(t, err)
	return router.New(net, opts)
}

func noProximity() router.ProximityOptions {
	return router.ProximityOptions{}
}

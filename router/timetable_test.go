package router_test

import (
	"testing"

	"git.fiblab.net/sim/raptor/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDataIntegrity(t *testing.T) {
	cases := map[string]func(in *router.NetworkInput){
		"non-monotonic times": func(in *router.NetworkInput) {
			in.Timetable.Trips["T1"][2].Arrival = hm(8, 5)
		},
		"departure before arrival": func(in *router.NetworkInput) {
			in.Timetable.Trips["T1"][1].Departure = hm(8, 9)
		},
		"negative time": func(in *router.NetworkInput) {
			in.Timetable.Trips["T1"][0].Arrival = -1
		},
		"dangling stop": func(in *router.NetworkInput) {
			in.Timetable.Trips["T1"][1].StopID = "S9"
		},
		"single stop trip": func(in *router.NetworkInput) {
			in.Timetable.Trips["T1"] = in.Timetable.Trips["T1"][:1]
		},
		"unknown trip in route": func(in *router.NetworkInput) {
			in.Timetable.Routes["R1"] = router.RouteInput{Trips: []string{"T1", "T9"}}
		},
		"trip without route": func(in *router.NetworkInput) {
			in.Timetable.Trips["T2"] = in.Timetable.Trips["T1"]
		},
		"trip in two routes": func(in *router.NetworkInput) {
			in.Timetable.Routes["R2"] = router.RouteInput{Trips: []string{"T1"}}
		},
		"invalid position": func(in *router.NetworkInput) {
			in.Timetable.Stops["S4"] = router.Position{Lat: 91}
		},
		"zero duration transfer": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S1": {{To: "S2", Duration: 0}}}
		},
		"negative duration transfer": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S1": {{To: "S2", Duration: -60}}}
		},
		"transfer from unknown stop": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S9": {{To: "S2", Duration: 60}}}
		},
		"transfer to unknown stop": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S1": {{To: "S9", Duration: 60}}}
		},
		"transfer self loop": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S1": {{To: "S1", Duration: 60}}}
		},
		"transfer unknown mode": func(in *router.NetworkInput) {
			in.Transfers = map[string][]router.TransferInput{"S1": {{To: "S2", Duration: 60, Mode: "scooter"}}}
		},
		"street unknown node": func(in *router.NetworkInput) {
			in.Streets = &router.StreetInput{
				Nodes: []router.StreetNodeInput{{ID: "a"}},
				Edges: []router.StreetEdgeInput{{From: "a", To: "b"}},
			}
		},
		"street duplicated node": func(in *router.NetworkInput) {
			in.Streets = &router.StreetInput{Nodes: []router.StreetNodeInput{{ID: "a"}, {ID: "a"}}}
		},
		"bike station negative bikes": func(in *router.NetworkInput) {
			in.BikeStations = map[string]router.BikeStationInput{"B1": {Bikes: -1}, "B2": {Bikes: 1}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := scenarioA()
			mutate(in)
			_, err := router.BuildNetwork(in, router.DefaultProximityOptions())
			assert.ErrorIs(t, err, router.ErrDataIntegrity)
		})
	}
}

func TestTimetableEmptyRoute(t *testing.T) {
	in := scenarioA()
	in.Timetable.Routes["empty"] = router.RouteInput{}
	net, err := router.BuildNetwork(in, router.DefaultProximityOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, net.Timetable().NumPatterns())
}

func TestTimetableLookup(t *testing.T) {
	in := scenarioA()
	in.Timetable.Trips["T0"] = []router.StopTimeInput{st("S1", hm(7, 50), hm(7, 50)), st("S2", hm(8, 0), hm(8, 0)), st("S3", hm(8, 10), hm(8, 10))}
	in.Timetable.Routes["R1"] = router.RouteInput{Trips: []string{"T1", "T0"}}
	net, err := router.BuildNetwork(in, router.DefaultProximityOptions())
	require.NoError(t, err)
	tt := net.Timetable()

	s2, ok := tt.StopIndex("S2")
	require.True(t, ok)
	assert.Equal(t, "S2", tt.StopID(s2))
	routes := tt.RoutesAt(s2)
	require.Len(t, routes, 1)
	assert.Equal(t, 3, tt.PatternLen(routes[0].Route))
	assert.Equal(t, s2, tt.PatternStop(routes[0].Route, routes[0].Index))

	// 班次按出发时间排序
	trip, ok := tt.EarliestTrip(routes[0].Route, routes[0].Index, int32(hm(7, 55)))
	require.True(t, ok)
	assert.Equal(t, "T0", tt.TripID(routes[0].Route, trip))
	trip, ok = tt.EarliestTrip(routes[0].Route, routes[0].Index, int32(hm(8, 0))+1)
	require.True(t, ok)
	assert.Equal(t, "T1", tt.TripID(routes[0].Route, trip))
	arrival, departure := tt.StopTime(routes[0].Route, trip, routes[0].Index)
	assert.Equal(t, int32(hm(8, 10)), arrival)
	assert.Equal(t, int32(hm(8, 10)), departure)
	_, ok = tt.EarliestTrip(routes[0].Route, routes[0].Index, int32(hm(8, 11)))
	assert.False(t, ok)

	_, err = tt.EarliestTrips("S9", 0)
	assert.ErrorIs(t, err, router.ErrNotFound)
}

func TestTransferRelation(t *testing.T) {
	in := scenarioA()
	in.Transfers = map[string][]router.TransferInput{
		"S1": {
			{To: "S2", Duration: 300, Mode: "walk"},
			{To: "S2", Duration: 200},
			{To: "S3", Duration: 400, Mode: "bike"},
		},
		"S2": {{To: "S1", Duration: 500, Mode: "walk"}},
	}
	net, err := router.BuildNetwork(in, router.DefaultProximityOptions())
	require.NoError(t, err)
	tr := net.Transfers()
	assert.Equal(t, 3, tr.NumEdges())

	// 重复的边保留最短时间，且不假设对称
	edges, err := tr.From("S1", false)
	require.NoError(t, err)
	assert.Equal(t, []router.TransferInput{{To: "S2", Duration: 200, Mode: "walk"}}, edges)
	edges, err = tr.From("S1", true)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	edges, err = tr.From("S2", true)
	require.NoError(t, err)
	assert.Equal(t, []router.TransferInput{{To: "S1", Duration: 500, Mode: "walk"}}, edges)
	edges, err = tr.From("S3", true)
	require.NoError(t, err)
	assert.Empty(t, edges)

	// 序列可重复遍历，可提前终止
	s1, _ := net.Timetable().StopIndex("S1")
	seq := tr.Transfers(s1, true)
	n := 0
	for range seq {
		n++
	}
	for range seq {
		n++
		break
	}
	assert.Equal(t, 3, n)
}

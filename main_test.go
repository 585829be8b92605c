package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/raptor/loader"
	"git.fiblab.net/sim/raptor/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) router.Clock {
	return router.Clock(h*3600 + m*60)
}

func st(stop string, arrival, departure router.Clock) router.StopTimeInput {
	return router.StopTimeInput{StopID: stop, Arrival: arrival, Departure: departure}
}

// S1 -> S2 -> S3 (08:00-08:20)，S2 -> S4 (08:15-08:30)，S4附近有S5
func testNetwork() *router.NetworkInput {
	return &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops: map[string]router.Position{
				"S1": {Lat: 0, Lon: 0},
				"S2": {Lat: 0, Lon: 0.1},
				"S3": {Lat: 0, Lon: 0.2},
				"S4": {Lat: 0.1, Lon: 0.1},
				"S5": {Lat: 0.1, Lon: 0.102},
			},
			Trips: map[string][]router.StopTimeInput{
				"T1": {st("S1", hm(8, 0), hm(8, 0)), st("S2", hm(8, 10), hm(8, 10)), st("S3", hm(8, 20), hm(8, 20))},
				"T2": {st("S2", hm(8, 15), hm(8, 15)), st("S4", hm(8, 30), hm(8, 30))},
			},
			Routes: map[string]router.RouteInput{
				"R1": {Trips: []string{"T1"}},
				"R2": {Trips: []string{"T2"}},
			},
		},
	}
}

func testServer(t testing.TB) *RoutingServer {
	net, err := router.BuildNetwork(testNetwork(), router.DefaultProximityOptions())
	require.NoError(t, err)
	return NewRoutingServer(router.New(net, router.DefaultOptions()))
}

func FuzzRouter(f *testing.F) {
	server := testServer(f)
	stops := append(server.router.StopIDs(), "unknown")
	f.Add(uint8(0), uint8(4), int32(hm(7, 55)), int8(-1), false, uint8(0))
	f.Add(uint8(1), uint8(1), int32(0), int8(0), true, uint8(2))

	// 构造随机请求
	f.Fuzz(func(t *testing.T, from, to uint8, departure int32, rounds int8, bike bool, sel uint8) {
		req := &GetRouteRequest{
			Origin:      stops[int(from)%len(stops)],
			Destination: stops[int(to)%len(stops)],
			Departure:   router.Clock(departure),
			IncludeBike: bike,
			Selection:   []string{"", "all", "earliest", "fewest_changes", "bogus"}[int(sel)%5],
		}
		if rounds >= 0 {
			n := int(rounds)
			req.MaxRounds = &n
		}
		res, err := server.GetRoute(context.Background(), connect.NewRequest(req))
		// 有且只有一个是nil
		assert.True(t, (res == nil) != (err == nil))
		if res != nil {
			for _, it := range res.Msg.Itineraries {
				assert.GreaterOrEqual(t, it.Arrival, req.Departure)
			}
		}
	})
}

func TestConnectService(t *testing.T) {
	server := testServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	codec := connect.WithCodec(jsonCodec{})
	routeClient := connect.NewClient[GetRouteRequest, GetRouteResponse](ts.Client(), ts.URL+GET_ROUTE_PROCEDURE, codec)
	res, err := routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{
		Origin:      "S1",
		Destination: "S4",
		Departure:   hm(7, 55),
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Msg.RequestID)
	require.Len(t, res.Msg.Itineraries, 1)
	it := res.Msg.Itineraries[0]
	assert.Equal(t, hm(8, 30), it.Arrival)
	assert.Equal(t, 1, it.Transfers)
	assert.Equal(t, "transit", it.Kind)
	require.Len(t, it.Legs, 2)
	assert.Equal(t, Leg{Kind: "ride", From: "S1", To: "S2", Start: hm(8, 0), End: hm(8, 10), RouteID: "R1", TripID: "T1"}, it.Legs[0])

	// 不可达返回空结果
	res, err = routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{
		Origin:      "S3",
		Destination: "S1",
		Departure:   hm(7, 0),
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Msg.Itineraries)

	_, err = routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{Origin: "S9", Destination: "S1"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	_, err = routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{Origin: "S1", Destination: "S2", Selection: "fastest"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{Origin: "S1", Destination: "S2", Departure: -5}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// 坐标查询：步行约334m到S1，S3下车后步行到终点
	res, err = routeClient.CallUnary(context.Background(), connect.NewRequest(&GetRouteRequest{
		OriginPoint:      &router.Position{Lat: 0.003, Lon: 0},
		DestinationPoint: &router.Position{Lat: 0.003, Lon: 0.2},
		Departure:        hm(7, 55),
		MaxResults:       1,
	}))
	require.NoError(t, err)
	require.Len(t, res.Msg.Itineraries, 1)
	it = res.Msg.Itineraries[0]
	assert.Equal(t, "mixed", it.Kind)
	assert.Equal(t, hm(8, 20)+267, it.Arrival)
	require.Len(t, it.Legs, 3)
	assert.Equal(t, Leg{Kind: "access", From: "origin", To: "S1", Start: hm(7, 55), End: hm(7, 55) + 267, Mode: "walk"}, it.Legs[0])
	assert.Equal(t, "destination", it.Legs[2].To)

	for _, bad := range []*GetRouteRequest{
		{OriginPoint: &router.Position{}},
		{Origin: "S1", OriginPoint: &router.Position{}, DestinationPoint: &router.Position{}},
		{OriginPoint: &router.Position{Lat: 100}, DestinationPoint: &router.Position{}},
		{Origin: "S1", Destination: "S2", MaxResults: -1},
	} {
		_, err = routeClient.CallUnary(context.Background(), connect.NewRequest(bad))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err), "%+v", bad)
	}

	depClient := connect.NewClient[GetDeparturesRequest, GetDeparturesResponse](ts.Client(), ts.URL+GET_DEPARTURES_PROCEDURE, codec)
	deps, err := depClient.CallUnary(context.Background(), connect.NewRequest(&GetDeparturesRequest{StopID: "S2", Time: hm(8, 0)}))
	require.NoError(t, err)
	assert.Equal(t, []Departure{
		{RouteID: "R1", TripID: "T1", Departure: hm(8, 10)},
		{RouteID: "R2", TripID: "T2", Departure: hm(8, 15)},
	}, deps.Msg.Departures)

	trClient := connect.NewClient[GetTransfersRequest, GetTransfersResponse](ts.Client(), ts.URL+GET_TRANSFERS_PROCEDURE, codec)
	trs, err := trClient.CallUnary(context.Background(), connect.NewRequest(&GetTransfersRequest{StopID: "S4"}))
	require.NoError(t, err)
	require.Len(t, trs.Msg.Transfers, 1)
	assert.Equal(t, "S5", trs.Msg.Transfers[0].To)
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestRestService(t *testing.T) {
	server := testServer(t)
	ts := httptest.NewServer(server.RestHandler())
	defer ts.Close()

	var route GetRouteResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/route?from=S1&to=S5&departure=07:55", &route))
	require.Len(t, route.Itineraries, 1)
	// S4 -> S5步行
	it := route.Itineraries[0]
	assert.Equal(t, "mixed", it.Kind)
	assert.Equal(t, "walk", it.Legs[len(it.Legs)-1].Mode)

	route = GetRouteResponse{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=28500&max_rounds=1", &route))
	assert.Empty(t, route.Itineraries)

	route = GetRouteResponse{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/route?from_lat=0.003&from_lon=0&to_lat=0.003&to_lon=0.2&departure=07:55&max_results=2", &route))
	require.Len(t, route.Itineraries, 1)
	assert.Equal(t, "origin", route.Itineraries[0].Legs[0].From)

	var e restError
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/route?from=S1&to=S9&departure=08:00", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from_lat=abc&from_lon=0&to_lat=0&to_lon=0&departure=08:00", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from_lat=0&from_lon=0&departure=08:00", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=08:00&max_results=x", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=-00:00:05", &e))
	assert.Equal(t, "not_found", e.Code)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=8h", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=08:00&bike=maybe", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/route?from=S1&to=S4&departure=08:00&max_rounds=-2", &e))

	var deps GetDeparturesResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/stops/S2/departures?time=08:12", &deps))
	assert.Equal(t, []Departure{{RouteID: "R2", TripID: "T2", Departure: hm(8, 15)}}, deps.Departures)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/stops/S9/departures?time=08:12", &e))

	var trs GetTransfersResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/stops/S5/transfers", &trs))
	require.Len(t, trs.Transfers, 1)

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])
}

func TestDebugHandler(t *testing.T) {
	server := testServer(t)
	ts := httptest.NewServer(server.debugHandler())
	defer ts.Close()

	var stats router.Stats
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/debug/network", &stats))
	assert.Equal(t, router.Stats{Stops: 5, Patterns: 2, Trips: 2, Transfers: 2}, stats)

	resp, err := http.Get(ts.URL + "/debug/pprof/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: transit.beijing
listen: localhost:8080
gtfs:
  service_date: "2024-01-01"
routing:
  max_rounds: 3
  board_slack: 60
proximity:
  bike: false
`), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.RouterOptions().MaxRounds)
	assert.Equal(t, int32(60), cfg.RouterOptions().BoardSlack)
	opts := cfg.ProximityOptions()
	assert.False(t, opts.Bike)
	assert.True(t, opts.Walk)
	assert.Equal(t, router.DefaultProximityOptions().MaxWalkDistance, opts.MaxWalkDistance)
	src, err := cfg.Source()
	require.NoError(t, err)
	assert.Equal(t, "beijing", src.Path.Coll)
	assert.Equal(t, 2024, src.GTFS.ServiceDate.Year())

	cases := map[string]func(c *Config){
		"no network":       func(c *Config) { c.Network = "" },
		"bad listen":       func(c *Config) { c.Listen = "nowhere" },
		"negative rounds":  func(c *Config) { c.Routing.MaxRounds = -1 },
		"bad date":         func(c *Config) { c.GTFS.ServiceDate = "01/01/2024" },
		"zero walk speed":  func(c *Config) { c.Proximity.WalkTransferSpeed = 0 },
		"walk clamp order": func(c *Config) { c.Proximity.MaxWalkTime = c.Proximity.MinWalkTime - 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := cfg
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	_, err = LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, loader.SaveFile(path, testNetwork()))
	cfg := DefaultConfig()
	cfg.Network = path

	net, err := loadNetwork(context.Background(), &cfg)
	require.NoError(t, err)
	server := NewRoutingServer(router.New(net, cfg.RouterOptions()))
	assert.False(t, server.router.HasStop("S6"))

	in := testNetwork()
	in.Timetable.Stops["S6"] = router.Position{Lat: 0.2, Lon: 0.2}
	require.NoError(t, loader.SaveFile(path, in))
	require.NoError(t, server.Reload(context.Background(), &cfg))
	assert.True(t, server.router.HasStop("S6"))

	// 构建失败时保留原网络
	in.Timetable.Trips["T1"][1].StopID = "S9"
	require.NoError(t, loader.SaveFile(path, in))
	assert.ErrorIs(t, server.Reload(context.Background(), &cfg), router.ErrDataIntegrity)
	assert.True(t, server.router.HasStop("S6"))

	res, err := server.GetRoute(context.Background(), connect.NewRequest(&GetRouteRequest{Origin: "S1", Destination: "S3", Departure: hm(7, 0)}))
	require.NoError(t, err)
	assert.Len(t, res.Msg.Itineraries, 1)
}

func TestBenchmarkRoutes(t *testing.T) {
	server := testServer(t)
	res := benchmarkRoutes(server, 50, 1, 4, true)
	assert.Equal(t, 50, res.Count)
	assert.Zero(t, res.Failed)
	assert.Positive(t, res.Success)

	// 相同种子生成相同请求
	assert.Equal(t, randomRequests(server.router.StopIDs(), 10, 7, false), randomRequests(server.router.StopIDs(), 10, 7, false))
}

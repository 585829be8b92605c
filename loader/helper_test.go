package loader_test

import (
	"git.fiblab.net/sim/raptor/router"
)

func hm(h, m int) router.Clock {
	return router.Clock(h*3600 + m*60)
}

func st(stop string, arrival, departure router.Clock) router.StopTimeInput {
	return router.StopTimeInput{StopID: stop, Arrival: arrival, Departure: departure}
}

// 包含所有输入部分的小网络
func sampleNetwork() *router.NetworkInput {
	return &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops: map[string]router.Position{
				"S1": {Lat: 40, Lon: 116, Name: "first"},
				"S2": {Lat: 40, Lon: 116.002, Name: "second"},
				"S3": {Lat: 40, Lon: 116.1, Name: "third"},
			},
			Trips: map[string][]router.StopTimeInput{
				"T1": {st("S1", hm(8, 0), hm(8, 0)), st("S2", hm(8, 5), hm(8, 6)), st("S3", hm(8, 20), hm(8, 20))},
				"T2": {st("S1", hm(9, 0), hm(9, 0)), st("S2", hm(9, 5), hm(9, 6)), st("S3", hm(9, 20), hm(9, 20))},
				"T3": {st("S3", hm(8, 30), hm(8, 30)), st("S1", hm(8, 50), hm(8, 50))},
			},
			Routes: map[string]router.RouteInput{
				"R1": {Name: "line 1", Trips: []string{"T1", "T2"}},
				"R2": {Name: "line 2", Trips: []string{"T3"}},
			},
		},
		Transfers: map[string][]router.TransferInput{
			"S2": {{To: "S3", Duration: 900, Mode: "bike"}},
		},
		BikeStations: map[string]router.BikeStationInput{
			"D1": {Position: router.Position{Lat: 40, Lon: 116.0005}, Capacity: 20, Bikes: 4},
		},
		Streets: &router.StreetInput{
			Nodes: []router.StreetNodeInput{{ID: "n1", Lat: 40, Lon: 116}, {ID: "n2", Lat: 40, Lon: 116.002}},
			Edges: []router.StreetEdgeInput{{From: "n1", To: "n2", Length: 180, OneWay: true}},
		},
	}
}

package algo_test

import (
	"iter"

	"git.fiblab.net/sim/raptor/router/algo"
)

// 测试用时刻表：每条线路一个停靠序列，班次按出发时间升序
type fakeTimetable struct {
	stops    int
	patterns [][]int
	// route -> trip -> index -> {arrival, departure}
	times [][][][2]int32
}

func (tt *fakeTimetable) addRoute(pattern []int, trips ...[][2]int32) {
	tt.patterns = append(tt.patterns, pattern)
	tt.times = append(tt.times, trips)
}

func (tt *fakeTimetable) NumStops() int { return tt.stops }

func (tt *fakeTimetable) RoutesAt(stop int) []algo.RouteStop {
	var out []algo.RouteStop
	for r, p := range tt.patterns {
		for i, s := range p {
			if s == stop {
				out = append(out, algo.RouteStop{Route: r, Index: i})
			}
		}
	}
	return out
}

func (tt *fakeTimetable) PatternLen(route int) int { return len(tt.patterns[route]) }

func (tt *fakeTimetable) PatternStop(route, index int) int { return tt.patterns[route][index] }

func (tt *fakeTimetable) EarliestTrip(route, index int, t int32) (int, bool) {
	for trip, st := range tt.times[route] {
		if st[index][1] >= t {
			return trip, true
		}
	}
	return algo.NO_INDEX, false
}

func (tt *fakeTimetable) StopTime(route, trip, index int) (int32, int32) {
	st := tt.times[route][trip][index]
	return st[0], st[1]
}

type fakeTransfers map[int][]algo.Transfer

func (f fakeTransfers) Transfers(stop int, includeBike bool) iter.Seq[algo.Transfer] {
	return func(yield func(algo.Transfer) bool) {
		for _, e := range f[stop] {
			if e.Mode == algo.MODE_BIKE && !includeBike {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// 车站0到3：慢速直达线路，或经车站1换乘的快速组合
//
//	route 0: 0 -> 3, dep 100, arr 1000
//	route 1: 0 -> 1, dep 100, arr 200
//	route 2: 1 -> 3, trips dep 250/300, arr 400/450
//	walk 1 -> 2 (60s), bike 0 -> 3 (200s)
func paretoNetwork() (*fakeTimetable, fakeTransfers) {
	tt := &fakeTimetable{stops: 4}
	tt.addRoute([]int{0, 3}, [][2]int32{{100, 100}, {1000, 1000}})
	tt.addRoute([]int{0, 1}, [][2]int32{{100, 100}, {200, 200}})
	tt.addRoute([]int{1, 3},
		[][2]int32{{250, 250}, {400, 400}},
		[][2]int32{{300, 300}, {450, 450}},
	)
	tr := fakeTransfers{
		0: {{To: 3, Duration: 200, Mode: algo.MODE_BIKE}},
		1: {{To: 2, Duration: 60, Mode: algo.MODE_WALK}},
	}
	return tt, tr
}

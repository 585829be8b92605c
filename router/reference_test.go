package router_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"git.fiblab.net/sim/raptor/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 随机小网络：同一线路的班次运行时间相同，不会互相超车；
// 换乘只从前一半车站连到后一半车站，不存在连续换乘
func randomNetwork(rng *rand.Rand) *router.NetworkInput {
	n := 3 + rng.Intn(4)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("S%d", i)
	}
	in := &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops:  lineStops(ids...),
			Trips:  make(map[string][]router.StopTimeInput),
			Routes: make(map[string]router.RouteInput),
		},
		Transfers: make(map[string][]router.TransferInput),
	}
	routes := 1 + rng.Intn(4)
	for r := 0; r < routes; r++ {
		pattern := rng.Perm(n)[:2+rng.Intn(min(n, 4)-1)]
		runs := make([]int, len(pattern))
		for i := 1; i < len(runs); i++ {
			runs[i] = 60 + rng.Intn(840)
		}
		dwell := rng.Intn(2) * 30
		route := router.RouteInput{}
		for k := 1 + rng.Intn(3); k > 0; k-- {
			trip := fmt.Sprintf("R%dT%d", r, k)
			at := rng.Intn(3600)
			for i, s := range pattern {
				at += runs[i]
				in.Timetable.Trips[trip] = append(in.Timetable.Trips[trip],
					st(ids[s], router.Clock(at), router.Clock(at+dwell)))
				at += dwell
			}
			route.Trips = append(route.Trips, trip)
		}
		in.Timetable.Routes[fmt.Sprintf("R%d", r)] = route
	}
	half := n / 2
	for from := 0; from < half; from++ {
		for k := rng.Intn(3); k > 0; k-- {
			mode := "walk"
			if rng.Intn(2) == 0 {
				mode = "bike"
			}
			in.Transfers[ids[from]] = append(in.Transfers[ids[from]], router.TransferInput{
				To:       ids[half+rng.Intn(n-half)],
				Duration: int32(30 + rng.Intn(1200)),
				Mode:     mode,
			})
		}
	}
	return in
}

type outcome struct {
	Arrival   int32
	Transfers int
}

// 逐轮枚举所有乘车序列，得到每轮到达各站的最早时刻，再取(到达时间, 换乘次数)的Pareto集
func referencePareto(in *router.NetworkInput, q router.Query) []outcome {
	relax := func(at map[string]int32) map[string]int32 {
		out := make(map[string]int32, len(at))
		update := func(s string, t int32) {
			if old, ok := out[s]; !ok || t < old {
				out[s] = t
			}
		}
		for s, t := range at {
			update(s, t)
			for _, e := range in.Transfers[s] {
				if e.Mode == "bike" && !q.IncludeBike {
					continue
				}
				update(e.To, t+e.Duration)
			}
		}
		return out
	}

	reach := map[string]int32{q.Origin: q.Departure}
	if q.MaxRounds > 0 {
		reach = relax(reach)
	}
	arrivals := []map[string]int32{reach}
	for k := 1; k <= q.MaxRounds; k++ {
		alight := make(map[string]int32)
		for _, route := range in.Timetable.Routes {
			for _, trip := range route.Trips {
				sts := in.Timetable.Trips[trip]
				for i, board := range sts {
					ready, ok := reach[board.StopID]
					if !ok || ready > int32(board.Departure) {
						continue
					}
					for _, off := range sts[i+1:] {
						if old, ok := alight[off.StopID]; !ok || int32(off.Arrival) < old {
							alight[off.StopID] = int32(off.Arrival)
						}
					}
				}
			}
		}
		reach = relax(alight)
		arrivals = append(arrivals, reach)
	}

	candidates := make([]outcome, 0, len(arrivals))
	for k, at := range arrivals {
		if t, ok := at[q.Destination]; ok {
			candidates = append(candidates, outcome{Arrival: t, Transfers: max(k-1, 0)})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Arrival != candidates[j].Arrival {
			return candidates[i].Arrival < candidates[j].Arrival
		}
		return candidates[i].Transfers < candidates[j].Transfers
	})
	front := make([]outcome, 0, len(candidates))
	for _, c := range candidates {
		if len(front) == 0 || c.Transfers < front[len(front)-1].Transfers {
			front = append(front, c)
		}
	}
	return front
}

func TestRandomNetworksMatchReference(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))
	for n := 0; n < 200; n++ {
		in := randomNetwork(rng)
		opts := router.DefaultOptions()
		opts.Parallelism = 1 + rng.Intn(3)
		r := mustRouter(t, in, noProximity(), opts)
		for _, origin := range r.StopIDs() {
			for _, dest := range r.StopIDs() {
				q := router.Query{
					Origin:      origin,
					Destination: dest,
					Departure:   int32(rng.Intn(3600)),
					MaxRounds:   rng.Intn(5),
					IncludeBike: rng.Intn(2) == 0,
				}
				its, err := r.Route(q)
				require.NoError(t, err)
				checkItineraries(t, q, its)
				got := make([]outcome, 0, len(its))
				for _, it := range its {
					got = append(got, outcome{Arrival: it.Arrival, Transfers: it.Transfers})
				}
				assert.Equal(t, referencePareto(in, q), got, "network %d %+v", n, q)
				if t.Failed() {
					return
				}
			}
		}
	}
}

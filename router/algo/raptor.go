package algo

import (
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("module", "algo")

type Options struct {
	// 最大轮数（上车次数上限），0表示只返回起点
	MaxRounds int
	// 是否使用共享单车连接
	IncludeBike bool
	// 到站后至少等待多久才能上车（秒），在起点直接上车时不计
	BoardSlack int32
	// 单轮内并行扫描线路的goroutine数，<=1时串行
	Parallelism int
	// 目标剪枝：被终点前沿支配的label不再扩展。会使非终点车站的前沿不完整
	TargetPruning bool
	Target        int
	// 下车后的步行/骑行是否也计入换乘次数
	CountTransferLegs bool
}

// Raptor is the round-based scanner. It is stateless between queries and
// safe for concurrent use as long as the timetable and transfer relation are.
type Raptor struct {
	tt Timetable
	tr TransferRelation
}

func NewRaptor(tt Timetable, tr TransferRelation) *Raptor {
	return &Raptor{tt: tt, tr: tr}
}

// Run executes the search from origin and returns the final label store.
func (r *Raptor) Run(origin int, departure int32, opts Options) *LabelStore {
	s := NewLabelStore(r.tt.NumStops(), opts.MaxRounds)
	s.Seed(origin, departure)
	if opts.MaxRounds <= 0 {
		return s
	}
	seeded, seedLabels := s.TakeImproved()
	// 起点的步行/骑行接驳算作第0轮
	walked, _ := r.relaxTransfers(s, 0, seedLabels, opts)
	r.rounds(s, mergeStops(seeded, walked), opts)
	return s
}

// RunFrom executes the search from an origin point connected to stops by
// the access legs. Access legs are not followed by transfers, and target
// pruning is not applied since there is no single target stop.
func (r *Raptor) RunFrom(access []Access, departure int32, opts Options) *LabelStore {
	s := NewLabelStore(r.tt.NumStops(), opts.MaxRounds)
	for _, a := range access {
		s.SeedAccess(a, departure)
	}
	seeded, _ := s.TakeImproved()
	if opts.MaxRounds <= 0 {
		return s
	}
	opts.TargetPruning = false
	r.rounds(s, seeded, opts)
	return s
}

func (r *Raptor) rounds(s *LabelStore, marked []int, opts Options) {
	for k := 1; k <= opts.MaxRounds && len(marked) > 0; k++ {
		s.BeginRound(k)
		queue := r.collectRoutes(marked)
		for _, proposals := range r.scanRoutes(s, k, queue, opts) {
			for _, l := range proposals {
				s.Propose(l)
			}
		}
		ridden, rideLabels := s.TakeImproved()
		walked, _ := r.relaxTransfers(s, k, rideLabels, opts)
		marked = mergeStops(ridden, walked)
		log.Debugf("round %d: %d routes scanned, %d stops improved", k, len(queue), len(marked))
	}
}

// 收集经过已标记车站的线路，以及每条线路上最早被标记的车站下标
func (r *Raptor) collectRoutes(marked []int) []RouteStop {
	first := make(map[int]int)
	for _, stop := range marked {
		for _, rs := range r.tt.RoutesAt(stop) {
			if i, ok := first[rs.Route]; !ok || rs.Index < i {
				first[rs.Route] = rs.Index
			}
		}
	}
	routes := lo.Keys(first)
	sort.Ints(routes)
	return lo.Map(routes, func(route int, _ int) RouteStop {
		return RouteStop{Route: route, Index: first[route]}
	})
}

// 扫描阶段只读label store，因此可以按线路并行；提议按线路顺序合并，结果与串行一致
func (r *Raptor) scanRoutes(s *LabelStore, k int, queue []RouteStop, opts Options) [][]Label {
	out := make([][]Label, len(queue))
	if opts.Parallelism <= 1 || len(queue) < 2 {
		for i, rq := range queue {
			out[i] = r.scanRoute(s, k, rq, opts)
		}
		return out
	}
	var g errgroup.Group
	g.SetLimit(opts.Parallelism)
	for i, rq := range queue {
		g.Go(func() error {
			out[i] = r.scanRoute(s, k, rq, opts)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Raptor) scanRoute(s *LabelStore, k int, rq RouteStop, opts Options) []Label {
	var proposals []Label
	route := rq.Route
	// 当前乘坐的班次
	trip, boardIndex, boardLabel := NO_INDEX, NO_INDEX, NO_INDEX
	var boarded Label
	n := r.tt.PatternLen(route)
	for i := rq.Index; i < n; i++ {
		stop := r.tt.PatternStop(route, i)
		if trip != NO_INDEX {
			arrival, _ := r.tt.StopTime(route, trip, i)
			l := Label{
				Stop:        stop,
				Arrival:     arrival,
				Boardings:   boarded.Boardings + 1,
				Changes:     boarded.Changes,
				Round:       k,
				Kind:        LEG_RIDE,
				Prev:        boardLabel,
				Route:       route,
				Trip:        trip,
				BoardIndex:  boardIndex,
				AlightIndex: i,
			}
			if boarded.Boardings > 0 {
				l.Changes++
			}
			if r.worth(s, &l, opts) {
				proposals = append(proposals, l)
			}
		}
		prevArrival, prevLabel := s.RoundArrival(k-1, stop)
		if prevLabel == NO_INDEX {
			continue
		}
		from, _ := s.Label(prevLabel)
		ready := prevArrival
		if from.Kind != LEG_ORIGIN && from.Kind != LEG_ACCESS {
			ready = int32(min(int64(ready)+int64(opts.BoardSlack), int64(INF_TIME)))
		}
		if trip != NO_INDEX {
			if _, departure := r.tt.StopTime(route, trip, i); ready > departure {
				continue
			}
		}
		t, ok := r.tt.EarliestTrip(route, i, ready)
		if !ok {
			continue
		}
		// 换到更早的班次；同一班次只在上车次数更少时才换上车站
		if trip == NO_INDEX || t < trip || (t == trip && from.Boardings < boarded.Boardings) {
			trip, boardIndex, boardLabel, boarded = t, i, prevLabel, from
		}
	}
	return proposals
}

// 从本阶段新得到的label出发松弛非计划连接，不连续步行
func (r *Raptor) relaxTransfers(s *LabelStore, k int, sources []int, opts Options) ([]int, []int) {
	sources = lo.Filter(sources, func(id int, _ int) bool { return s.Alive(id) })
	for _, id := range sources {
		from, _ := s.Label(id)
		for e := range r.tr.Transfers(from.Stop, opts.IncludeBike) {
			// 超出时间范围
			if from.Arrival > INF_TIME-e.Duration {
				continue
			}
			l := Label{
				Stop:      e.To,
				Arrival:   from.Arrival + e.Duration,
				Boardings: from.Boardings,
				Changes:   from.Changes,
				Round:     k,
				Kind:      LEG_TRANSFER,
				Prev:      id,
				Mode:      e.Mode,
				Duration:  e.Duration,
			}
			if opts.CountTransferLegs && from.Boardings > 0 {
				l.Changes++
			}
			if r.worth(s, &l, opts) {
				s.Propose(l)
			}
		}
	}
	return s.TakeImproved()
}

func (r *Raptor) worth(s *LabelStore, l *Label, opts Options) bool {
	if s.Dominated(l) {
		return false
	}
	if opts.TargetPruning && l.Stop != opts.Target && s.DominatedAt(opts.Target, l) {
		return false
	}
	return true
}

func mergeStops(a, b []int) []int {
	merged := lo.Uniq(append(append(make([]int, 0, len(a)+len(b)), a...), b...))
	sort.Ints(merged)
	return merged
}

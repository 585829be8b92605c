package algo

import (
	"slices"
	"sort"
)

// LabelStore holds the mutable state of one query: every label ever
// accepted (an append-only arena, so predecessor ids stay valid after a label
// leaves its frontier), the per-stop Pareto frontier over (arrival, changes),
// and the per-round earliest arrivals that drive boarding.
type LabelStore struct {
	labels []Label
	dead   []bool // label已被支配，移出前沿

	// 每个车站的非支配label id，按(Changes, Arrival)排序
	frontiers [][]int
	// 每个车站所有轮次中最早到达时间
	best []int32
	// rounds[k][stop]: 至多k轮时的最早到达时间及对应label
	rounds     [][]int32
	roundLabel [][]int

	// 当前阶段新插入的label
	fresh []int
}

func NewLabelStore(numStops, maxRounds int) *LabelStore {
	maxRounds = max(maxRounds, 0)
	s := &LabelStore{
		labels:     make([]Label, 0, numStops),
		dead:       make([]bool, 0, numStops),
		frontiers:  make([][]int, numStops),
		best:       make([]int32, numStops),
		rounds:     make([][]int32, 1, maxRounds+1),
		roundLabel: make([][]int, 1, maxRounds+1),
	}
	for i := range s.best {
		s.best[i] = INF_TIME
	}
	s.rounds[0] = slices.Clone(s.best)
	s.roundLabel[0] = make([]int, numStops)
	for i := range s.roundLabel[0] {
		s.roundLabel[0][i] = NO_INDEX
	}
	return s
}

// Seed places the round-0 origin label.
func (s *LabelStore) Seed(origin int, departure int32) int {
	id, _ := s.Propose(Label{
		Stop:    origin,
		Arrival: departure,
		Round:   0,
		Kind:    LEG_ORIGIN,
		Prev:    NO_INDEX,
	})
	return id
}

// SeedAccess places a round-0 label reached from the origin point through
// a, leaving at departure.
func (s *LabelStore) SeedAccess(a Access, departure int32) (int, bool) {
	if departure > INF_TIME-a.Duration {
		return NO_INDEX, false
	}
	return s.Propose(Label{
		Stop:     a.Stop,
		Arrival:  departure + a.Duration,
		Round:    0,
		Kind:     LEG_ACCESS,
		Prev:     NO_INDEX,
		Mode:     a.Mode,
		Duration: a.Duration,
	})
}

// BeginRound opens round k, starting from the arrivals of round k-1.
func (s *LabelStore) BeginRound(k int) {
	for len(s.rounds) <= k {
		last := len(s.rounds) - 1
		s.rounds = append(s.rounds, slices.Clone(s.rounds[last]))
		s.roundLabel = append(s.roundLabel, slices.Clone(s.roundLabel[last]))
	}
}

// Rounds returns the number of opened rounds, round 0 included.
func (s *LabelStore) Rounds() int {
	return len(s.rounds)
}

// Dominated reports whether some frontier label at l.Stop dominates or
// equals l.
func (s *LabelStore) Dominated(l *Label) bool {
	return s.DominatedAt(l.Stop, l)
}

// DominatedAt compares l against the frontier of an arbitrary stop; used for
// target pruning.
func (s *LabelStore) DominatedAt(stop int, l *Label) bool {
	if stop < 0 || stop >= len(s.frontiers) {
		return false
	}
	for _, id := range s.frontiers[stop] {
		o := &s.labels[id]
		if o.Arrival <= l.Arrival && o.Changes <= l.Changes {
			return true
		}
	}
	return false
}

// Propose inserts l unless it is dominated, removing the labels l dominates.
func (s *LabelStore) Propose(l Label) (int, bool) {
	if s.Dominated(&l) {
		return NO_INDEX, false
	}
	id := len(s.labels)
	s.labels = append(s.labels, l)
	s.dead = append(s.dead, false)

	f := s.frontiers[l.Stop]
	kept := f[:0]
	for _, o := range f {
		if l.Dominates(&s.labels[o]) {
			s.dead[o] = true
			continue
		}
		kept = append(kept, o)
	}
	pos := sort.Search(len(kept), func(i int) bool {
		o := &s.labels[kept[i]]
		return o.Changes > l.Changes || (o.Changes == l.Changes && o.Arrival > l.Arrival)
	})
	kept = slices.Insert(kept, pos, id)
	s.frontiers[l.Stop] = kept

	if l.Arrival < s.best[l.Stop] {
		s.best[l.Stop] = l.Arrival
	}
	if l.Round < len(s.rounds) && l.Arrival < s.rounds[l.Round][l.Stop] {
		s.rounds[l.Round][l.Stop] = l.Arrival
		s.roundLabel[l.Round][l.Stop] = id
	}
	s.fresh = append(s.fresh, id)
	return id, true
}

// TakeImproved drains the labels inserted since the last call and returns
// them with the set of stops they improved, both in ascending order.
func (s *LabelStore) TakeImproved() (stops []int, labels []int) {
	labels = s.fresh
	s.fresh = nil
	seen := make(map[int]struct{}, len(labels))
	for _, id := range labels {
		stop := s.labels[id].Stop
		if _, ok := seen[stop]; ok {
			continue
		}
		seen[stop] = struct{}{}
		stops = append(stops, stop)
	}
	sort.Ints(stops)
	return stops, labels
}

// 各轮中最早到达时间；不参与剪枝，换乘次数更少的后续标签仍可能进入前沿
func (s *LabelStore) Best(stop int) int32 {
	return s.best[stop]
}

// RoundArrival returns the earliest arrival at stop using at most k rounds
// and the label achieving it.
func (s *LabelStore) RoundArrival(k, stop int) (int32, int) {
	if k < 0 {
		return INF_TIME, NO_INDEX
	}
	if k >= len(s.rounds) {
		k = len(s.rounds) - 1
	}
	return s.rounds[k][stop], s.roundLabel[k][stop]
}

func (s *LabelStore) Label(id int) (Label, bool) {
	if id < 0 || id >= len(s.labels) {
		return Label{}, false
	}
	return s.labels[id], true
}

func (s *LabelStore) Alive(id int) bool {
	return id >= 0 && id < len(s.dead) && !s.dead[id]
}

func (s *LabelStore) NumLabels() int {
	return len(s.labels)
}

// FrontierIDs returns the ids of the non-dominated labels at stop, ordered
// by increasing changes (and therefore decreasing arrival).
func (s *LabelStore) FrontierIDs(stop int) []int {
	return slices.Clone(s.frontiers[stop])
}

func (s *LabelStore) Frontier(stop int) []Label {
	f := s.frontiers[stop]
	out := make([]Label, len(f))
	for i, id := range f {
		out[i] = s.labels[id]
	}
	return out
}

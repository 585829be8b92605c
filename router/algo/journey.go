package algo

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// 从终点前沿中选取哪些label
type Selection int8

const (
	SELECT_ALL Selection = iota
	SELECT_EARLIEST
	SELECT_FEWEST_CHANGES
)

// Reconstruct materializes the journeys ending in the selected frontier
// labels of dest, sorted by arrival then changes.
func Reconstruct(s *LabelStore, tt Timetable, dest int, sel Selection) ([]Journey, error) {
	ids := s.FrontierIDs(dest)
	if len(ids) == 0 {
		return nil, nil
	}
	// 前沿按换乘次数升序、到达时间降序
	switch sel {
	case SELECT_EARLIEST:
		ids = ids[len(ids)-1:]
	case SELECT_FEWEST_CHANGES:
		ids = ids[:1]
	}
	journeys := make([]Journey, 0, len(ids))
	for _, id := range ids {
		j, err := reconstructOne(s, tt, id)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	sort.SliceStable(journeys, func(i, j int) bool {
		if journeys[i].Arrival != journeys[j].Arrival {
			return journeys[i].Arrival < journeys[j].Arrival
		}
		return journeys[i].Changes < journeys[j].Changes
	})
	return journeys, nil
}

type egressCandidate struct {
	label   int
	egress  Access
	arrival int32
	changes int
}

// ReconstructEgress materializes the journeys that end at the destination
// point through one of the egress legs. Candidates are compared after the
// egress, so the result is the Pareto set at the destination point, sorted by
// arrival. Labels that never boarded are skipped.
func ReconstructEgress(s *LabelStore, tt Timetable, egress []Access, sel Selection) ([]Journey, error) {
	candidates := make([]egressCandidate, 0)
	for _, e := range egress {
		for _, id := range s.FrontierIDs(e.Stop) {
			l, _ := s.Label(id)
			if l.Boardings == 0 || l.Arrival > INF_TIME-e.Duration {
				continue
			}
			candidates = append(candidates, egressCandidate{
				label:   id,
				egress:  e,
				arrival: l.Arrival + e.Duration,
				changes: l.Changes,
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].arrival != candidates[j].arrival {
			return candidates[i].arrival < candidates[j].arrival
		}
		return candidates[i].changes < candidates[j].changes
	})
	// 按到达时间升序，只保留换乘次数严格下降的候选
	pareto := candidates[:0]
	for _, c := range candidates {
		if len(pareto) == 0 || c.changes < pareto[len(pareto)-1].changes {
			pareto = append(pareto, c)
		}
	}
	if len(pareto) == 0 {
		return nil, nil
	}
	switch sel {
	case SELECT_EARLIEST:
		pareto = pareto[:1]
	case SELECT_FEWEST_CHANGES:
		pareto = pareto[len(pareto)-1:]
	}
	journeys := make([]Journey, 0, len(pareto))
	for _, c := range pareto {
		j, err := reconstructOne(s, tt, c.label)
		if err != nil {
			return nil, err
		}
		j.Legs = append(j.Legs, Leg{
			Kind:     LEG_EGRESS,
			From:     c.egress.Stop,
			To:       NO_INDEX,
			Start:    j.Arrival,
			End:      c.arrival,
			Route:    NO_INDEX,
			Trip:     NO_INDEX,
			Mode:     c.egress.Mode,
			Duration: c.egress.Duration,
		})
		j.Arrival = c.arrival
		journeys = append(journeys, j)
	}
	return journeys, nil
}

func reconstructOne(s *LabelStore, tt Timetable, id int) (Journey, error) {
	last, ok := s.Label(id)
	if !ok {
		return Journey{}, fmt.Errorf("%w: dangling label %d", ErrReconstruction, id)
	}
	visited := make(map[int]struct{})
	legsBeforeReversed := make([]Leg, 0)
	rides := 0
	cur := last
	for cur.Kind != LEG_ORIGIN && cur.Kind != LEG_ACCESS {
		if _, ok := visited[id]; ok {
			return Journey{}, fmt.Errorf("%w: cycle through label %d", ErrReconstruction, id)
		}
		visited[id] = struct{}{}
		prev, ok := s.Label(cur.Prev)
		if !ok {
			return Journey{}, fmt.Errorf("%w: label %d has dangling predecessor %d", ErrReconstruction, id, cur.Prev)
		}
		switch cur.Kind {
		case LEG_RIDE:
			if tt.PatternStop(cur.Route, cur.BoardIndex) != prev.Stop || tt.PatternStop(cur.Route, cur.AlightIndex) != cur.Stop {
				return Journey{}, fmt.Errorf("%w: ride of label %d does not match its pattern", ErrReconstruction, id)
			}
			_, departure := tt.StopTime(cur.Route, cur.Trip, cur.BoardIndex)
			legsBeforeReversed = append(legsBeforeReversed, Leg{
				Kind:        LEG_RIDE,
				From:        prev.Stop,
				To:          cur.Stop,
				Start:       departure,
				End:         cur.Arrival,
				Route:       cur.Route,
				Trip:        cur.Trip,
				BoardIndex:  cur.BoardIndex,
				AlightIndex: cur.AlightIndex,
			})
			rides++
		case LEG_TRANSFER:
			legsBeforeReversed = append(legsBeforeReversed, Leg{
				Kind:     LEG_TRANSFER,
				From:     prev.Stop,
				To:       cur.Stop,
				Start:    prev.Arrival,
				End:      cur.Arrival,
				Route:    NO_INDEX,
				Trip:     NO_INDEX,
				Mode:     cur.Mode,
				Duration: cur.Duration,
			})
		default:
			return Journey{}, fmt.Errorf("%w: label %d has unknown kind %d", ErrReconstruction, id, cur.Kind)
		}
		id, cur = cur.Prev, prev
	}
	if rides != last.Boardings {
		return Journey{}, fmt.Errorf("%w: %d rides but %d boardings recorded", ErrReconstruction, rides, last.Boardings)
	}
	departure := cur.Arrival
	if cur.Kind == LEG_ACCESS {
		departure = cur.Arrival - cur.Duration
		legsBeforeReversed = append(legsBeforeReversed, Leg{
			Kind:     LEG_ACCESS,
			From:     NO_INDEX,
			To:       cur.Stop,
			Start:    departure,
			End:      cur.Arrival,
			Route:    NO_INDEX,
			Trip:     NO_INDEX,
			Mode:     cur.Mode,
			Duration: cur.Duration,
		})
	}
	j := Journey{
		Legs:      lo.Reverse(legsBeforeReversed),
		Departure: departure,
		Arrival:   last.Arrival,
		Changes:   last.Changes,
	}
	if err := checkContinuity(j); err != nil {
		return Journey{}, err
	}
	return j, nil
}

func checkContinuity(j Journey) error {
	t := j.Departure
	for i, leg := range j.Legs {
		if i > 0 && j.Legs[i-1].To != leg.From {
			return fmt.Errorf("%w: leg %d starts at stop %d, previous leg ends at %d", ErrReconstruction, i, leg.From, j.Legs[i-1].To)
		}
		if leg.Start < t || leg.End < leg.Start {
			return fmt.Errorf("%w: leg %d overlaps its predecessor", ErrReconstruction, i)
		}
		t = leg.End
	}
	return nil
}

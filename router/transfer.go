package router

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

// TransferRelation holds the directed walk and bike connections between
// stops. Edges are not assumed symmetric.
type TransferRelation struct {
	tt       *Timetable
	edges    [][]algo.Transfer
	numEdges int
}

func NewTransferRelation(tt *Timetable, in map[string][]TransferInput) (*TransferRelation, error) {
	tr := &TransferRelation{
		tt:    tt,
		edges: make([][]algo.Transfer, tt.NumStops()),
	}
	fromIDs := lo.Keys(in)
	slices.Sort(fromIDs)
	for _, fromID := range fromIDs {
		from, ok := tt.StopIndex(fromID)
		if !ok {
			return nil, fmt.Errorf("%w: transfer from unknown stop %s", ErrDataIntegrity, fromID)
		}
		// (to, mode) -> 最短时间
		shortest := make(map[algo.Transfer]int32)
		for _, e := range in[fromID] {
			to, ok := tt.StopIndex(e.To)
			if !ok {
				return nil, fmt.Errorf("%w: transfer %s -> %s references unknown stop", ErrDataIntegrity, fromID, e.To)
			}
			if to == from {
				return nil, fmt.Errorf("%w: transfer %s -> %s is a self loop", ErrDataIntegrity, fromID, e.To)
			}
			if e.Duration <= 0 {
				return nil, fmt.Errorf("%w: transfer %s -> %s has non-positive duration %d", ErrDataIntegrity, fromID, e.To, e.Duration)
			}
			mode := algo.MODE_WALK
			if e.Mode != "" {
				if mode, ok = algo.ParseMode(e.Mode); !ok {
					return nil, fmt.Errorf("%w: transfer %s -> %s has unknown mode %q", ErrDataIntegrity, fromID, e.To, e.Mode)
				}
			}
			key := algo.Transfer{To: to, Mode: mode}
			if d, ok := shortest[key]; !ok || e.Duration < d {
				shortest[key] = e.Duration
			}
		}
		edges := make([]algo.Transfer, 0, len(shortest))
		for key, d := range shortest {
			key.Duration = d
			edges = append(edges, key)
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Mode < edges[j].Mode
		})
		tr.edges[from] = edges
		tr.numEdges += len(edges)
	}
	return tr, nil
}

// Transfers enumerates the connections leaving stop. The sequence can be
// ranged over any number of times; bike edges are skipped unless requested.
func (tr *TransferRelation) Transfers(stop int, includeBike bool) iter.Seq[algo.Transfer] {
	return func(yield func(algo.Transfer) bool) {
		for _, e := range tr.edges[stop] {
			if e.Mode == algo.MODE_BIKE && !includeBike {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (tr *TransferRelation) From(stopID string, includeBike bool) ([]TransferInput, error) {
	stop, ok := tr.tt.StopIndex(stopID)
	if !ok {
		return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}
	out := make([]TransferInput, 0)
	for e := range tr.Transfers(stop, includeBike) {
		out = append(out, TransferInput{
			To:       tr.tt.StopID(e.To),
			Duration: e.Duration,
			Mode:     e.Mode.String(),
		})
	}
	return out, nil
}

func (tr *TransferRelation) NumEdges() int {
	return tr.numEdges
}

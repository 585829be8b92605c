package router

import (
	"fmt"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "router")

// 查询默认参数
type Options struct {
	MaxRounds         int
	BoardSlack        int32 // s
	Parallelism       int
	TargetPruning     bool
	CountTransferLegs bool
}

func DefaultOptions() Options {
	return Options{MaxRounds: algo.DEFAULT_MAX_ROUNDS}
}

// Router answers queries against the current network. The network can be
// replaced at any time with Swap; queries already running keep the network
// they started with.
type Router struct {
	mu   *xsync.RBMutex
	net  *Network
	opts Options
}

func New(net *Network, opts Options) *Router {
	return &Router{
		mu:   xsync.NewRBMutex(),
		net:  net,
		opts: opts,
	}
}

func (r *Router) network() *Network {
	t := r.mu.RLock()
	defer r.mu.RUnlock(t)
	return r.net
}

// Swap installs a freshly built network and returns the previous one.
func (r *Router) Swap(net *Network) *Network {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.net
	r.net = net
	return old
}

// Route returns the Pareto set of itineraries over (arrival, transfers),
// ordered by arrival. An unreachable destination yields an empty result.
func (r *Router) Route(q Query) ([]Itinerary, error) {
	net := r.network()
	origin, ok := net.tt.StopIndex(q.Origin)
	if !ok {
		return nil, fmt.Errorf("%w: origin stop %s", ErrNotFound, q.Origin)
	}
	dest, ok := net.tt.StopIndex(q.Destination)
	if !ok {
		return nil, fmt.Errorf("%w: destination stop %s", ErrNotFound, q.Destination)
	}
	if q.Departure < 0 {
		return nil, fmt.Errorf("%w: negative departure %d", ErrInvalidQuery, q.Departure)
	}
	if q.Selection < algo.SELECT_ALL || q.Selection > algo.SELECT_FEWEST_CHANGES {
		return nil, fmt.Errorf("%w: unknown selection %d", ErrInvalidQuery, q.Selection)
	}
	if q.MaxResults < 0 {
		return nil, fmt.Errorf("%w: negative max results %d", ErrInvalidQuery, q.MaxResults)
	}
	maxRounds := q.MaxRounds
	if maxRounds < 0 {
		maxRounds = r.opts.MaxRounds
	}
	store := net.raptor.Run(origin, q.Departure, algo.Options{
		MaxRounds:         maxRounds,
		IncludeBike:       q.IncludeBike,
		BoardSlack:        r.opts.BoardSlack,
		Parallelism:       r.opts.Parallelism,
		TargetPruning:     r.opts.TargetPruning,
		Target:            dest,
		CountTransferLegs: r.opts.CountTransferLegs,
	})
	journeys, err := algo.Reconstruct(store, net.tt, dest, q.Selection)
	if err != nil {
		log.Errorf("%s -> %s at %s: %v", q.Origin, q.Destination, FormatClock(q.Departure), err)
		return nil, err
	}
	if q.MaxResults > 0 && len(journeys) > q.MaxResults {
		journeys = journeys[:q.MaxResults]
	}
	return lo.Map(journeys, net.itinerary), nil
}

// Departures lists the next boarding of every route serving the stop.
func (r *Router) Departures(stopID string, t int32) ([]Boarding, error) {
	return r.network().tt.EarliestTrips(stopID, t)
}

func (r *Router) Transfers(stopID string, includeBike bool) ([]TransferInput, error) {
	return r.network().tr.From(stopID, includeBike)
}

// getter

func (r *Router) HasStop(id string) bool {
	_, ok := r.network().tt.StopIndex(id)
	return ok
}

func (r *Router) StopIDs() []string {
	return r.network().tt.StopIDs()
}

func (r *Router) Stats() Stats {
	return r.network().Stats()
}

// close
func (r *Router) Close() {}

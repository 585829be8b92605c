package router

import (
	"git.fiblab.net/sim/raptor/router/algo"
)

// Network is the immutable, query-independent part of the router: the
// timetable, the transfer relation built from explicit and generated
// connections, the optional street graph, and the spatial indexes used to
// connect coordinates to stops and bike stations.
type Network struct {
	tt      *Timetable
	tr      *TransferRelation
	streets *StreetGraph
	raptor  *algo.Raptor

	stops *gridIndex
	bikes *bikeNetwork
	opts  ProximityOptions
}

// BuildNetwork validates the input and builds a network. Any malformed part
// aborts the build with an error wrapping ErrDataIntegrity.
func BuildNetwork(in *NetworkInput, opts ProximityOptions) (*Network, error) {
	tt, err := NewTimetable(&in.Timetable)
	if err != nil {
		return nil, err
	}
	var streets *StreetGraph
	if in.Streets != nil {
		if streets, err = BuildStreetGraph(in.Streets); err != nil {
			return nil, err
		}
	}
	bikes, err := newBikeNetwork(in.BikeStations)
	if err != nil {
		return nil, err
	}
	stops := newGridIndex(stopPoints(tt))
	generated := buildProximityTransfers(tt, stops, bikes, newDistanceMeasurer(streets), opts)
	tr, err := NewTransferRelation(tt, mergeTransfers(mergeTransfers(nil, in.Transfers), generated))
	if err != nil {
		return nil, err
	}
	n := &Network{
		tt:      tt,
		tr:      tr,
		streets: streets,
		raptor:  algo.NewRaptor(tt, tr),
		stops:   stops,
		bikes:   bikes,
		opts:    opts,
	}
	st := n.Stats()
	log.Infof("network built: %d stops, %d trips in %d patterns, %d transfers, %d street nodes, %d bike stations",
		st.Stops, st.Trips, st.Patterns, st.Transfers, st.StreetNodes, st.BikeStations)
	return n, nil
}

type Stats struct {
	Stops        int `json:"stops"`
	Patterns     int `json:"patterns"`
	Trips        int `json:"trips"`
	Transfers    int `json:"transfers"`
	StreetNodes  int `json:"street_nodes"`
	// 有车可借的单车站点
	BikeStations int `json:"bike_stations"`
}

func (n *Network) Stats() Stats {
	st := Stats{
		Stops:        n.tt.NumStops(),
		Patterns:     n.tt.NumPatterns(),
		Trips:        n.tt.NumTrips(),
		Transfers:    n.tr.NumEdges(),
		BikeStations: n.bikes.size(),
	}
	if n.streets != nil {
		st.StreetNodes = n.streets.NumNodes()
	}
	return st
}

func (n *Network) Timetable() *Timetable {
	return n.tt
}

func (n *Network) Transfers() *TransferRelation {
	return n.tr
}

func (n *Network) itinerary(j algo.Journey, _ int) Itinerary {
	legs := make([]Leg, len(j.Legs))
	for i, l := range j.Legs {
		legs[i] = Leg{
			From:  PLACE_ORIGIN,
			To:    PLACE_DESTINATION,
			Start: l.Start,
			End:   l.End,
		}
		if l.From != algo.NO_INDEX {
			legs[i].From = n.tt.StopID(l.From)
		}
		if l.To != algo.NO_INDEX {
			legs[i].To = n.tt.StopID(l.To)
		}
		switch l.Kind {
		case algo.LEG_RIDE:
			legs[i].Kind = LEG_KIND_RIDE
			legs[i].RouteID = n.tt.RouteID(l.Route)
			legs[i].TripID = n.tt.TripID(l.Route, l.Trip)
		case algo.LEG_TRANSFER:
			legs[i].Kind = LEG_KIND_TRANSFER
			legs[i].Mode = l.Mode.String()
		case algo.LEG_ACCESS:
			legs[i].Kind = LEG_KIND_ACCESS
			legs[i].Mode = l.Mode.String()
		case algo.LEG_EGRESS:
			legs[i].Kind = LEG_KIND_EGRESS
			legs[i].Mode = l.Mode.String()
		}
	}
	return Itinerary{
		Legs:      legs,
		Departure: j.Departure,
		Arrival:   j.Arrival,
		Transfers: j.Changes,
	}
}

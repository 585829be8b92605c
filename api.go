package main

import (
	"errors"
	"fmt"

	"git.fiblab.net/sim/raptor/router"
	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

const (
	SERVICE_NAME = "raptor.v1.RoutingService"

	GET_ROUTE_PROCEDURE      = "/" + SERVICE_NAME + "/GetRoute"
	GET_DEPARTURES_PROCEDURE = "/" + SERVICE_NAME + "/GetDepartures"
	GET_TRANSFERS_PROCEDURE  = "/" + SERVICE_NAME + "/GetTransfers"
)

var SELECTIONS = map[string]algo.Selection{
	"":               algo.SELECT_ALL,
	"all":            algo.SELECT_ALL,
	"earliest":       algo.SELECT_EARLIEST,
	"fewest_changes": algo.SELECT_FEWEST_CHANGES,
}

// 起终点可以是车站id，也可以是坐标；坐标须同时给出且不能与车站id混用
type GetRouteRequest struct {
	Origin           string           `json:"origin,omitempty"`
	Destination      string           `json:"destination,omitempty"`
	OriginPoint      *router.Position `json:"origin_point,omitempty"`
	DestinationPoint *router.Position `json:"destination_point,omitempty"`
	Departure        router.Clock     `json:"departure"`
	// 为空时使用服务默认值
	MaxRounds   *int   `json:"max_rounds,omitempty"`
	IncludeBike bool   `json:"include_bike,omitempty"`
	Selection   string `json:"selection,omitempty"`
	// 最多返回的方案数，0表示不限
	MaxResults int `json:"max_results,omitempty"`
}

func (r *GetRouteRequest) byPoint() bool {
	return r.OriginPoint != nil || r.DestinationPoint != nil
}

func (r *GetRouteRequest) query() (router.Query, error) {
	sel, ok := SELECTIONS[r.Selection]
	if !ok {
		return router.Query{}, fmt.Errorf("unknown selection: %q", r.Selection)
	}
	q := router.Query{
		Origin:      r.Origin,
		Destination: r.Destination,
		Departure:   int32(r.Departure),
		MaxRounds:   -1,
		IncludeBike: r.IncludeBike,
		Selection:   sel,
		MaxResults:  r.MaxResults,
	}
	if r.MaxRounds != nil {
		if *r.MaxRounds < 0 {
			return q, fmt.Errorf("negative max_rounds: %d", *r.MaxRounds)
		}
		q.MaxRounds = *r.MaxRounds
	}
	if r.MaxResults < 0 {
		return q, fmt.Errorf("negative max_results: %d", r.MaxResults)
	}
	return q, nil
}

func (r *GetRouteRequest) pointQuery() (router.PointQuery, error) {
	if r.OriginPoint == nil || r.DestinationPoint == nil {
		return router.PointQuery{}, errors.New("origin_point and destination_point must be given together")
	}
	if r.Origin != "" || r.Destination != "" {
		return router.PointQuery{}, errors.New("stop ids and points cannot be mixed")
	}
	q, err := r.query()
	if err != nil {
		return router.PointQuery{}, err
	}
	return router.PointQuery{
		Origin:      *r.OriginPoint,
		Destination: *r.DestinationPoint,
		Departure:   q.Departure,
		MaxRounds:   q.MaxRounds,
		IncludeBike: q.IncludeBike,
		Selection:   q.Selection,
		MaxResults:  q.MaxResults,
	}, nil
}

type Leg struct {
	Kind    string       `json:"kind"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Start   router.Clock `json:"start"`
	End     router.Clock `json:"end"`
	RouteID string       `json:"route_id,omitempty"`
	TripID  string       `json:"trip_id,omitempty"`
	Mode    string       `json:"mode,omitempty"`

	// 骑行段借车和还车的单车站点
	Stations []string `json:"stations,omitempty"`
}

type Itinerary struct {
	Kind      string       `json:"kind"`
	Departure router.Clock `json:"departure"`
	Arrival   router.Clock `json:"arrival"`
	Duration  int32        `json:"duration"` // s
	Transfers int          `json:"transfers"`
	Legs      []Leg        `json:"legs"`
}

type GetRouteResponse struct {
	RequestID   string      `json:"request_id"`
	Itineraries []Itinerary `json:"itineraries"`
}

func newItinerary(it router.Itinerary, _ int) Itinerary {
	return Itinerary{
		Kind:      it.Kind(),
		Departure: router.Clock(it.Departure),
		Arrival:   router.Clock(it.Arrival),
		Duration:  it.Duration(),
		Transfers: it.Transfers,
		Legs: lo.Map(it.Legs, func(l router.Leg, _ int) Leg {
			return Leg{
				Kind:     l.Kind,
				From:     l.From,
				To:       l.To,
				Start:    router.Clock(l.Start),
				End:      router.Clock(l.End),
				RouteID:  l.RouteID,
				TripID:   l.TripID,
				Mode:     l.Mode,
				Stations: l.Stations,
			}
		}),
	}
}

type GetDeparturesRequest struct {
	StopID string       `json:"stop_id"`
	Time   router.Clock `json:"time"`
}

type Departure struct {
	RouteID   string       `json:"route_id"`
	TripID    string       `json:"trip_id"`
	Departure router.Clock `json:"departure"`
}

type GetDeparturesResponse struct {
	Departures []Departure `json:"departures"`
}

type GetTransfersRequest struct {
	StopID      string `json:"stop_id"`
	IncludeBike bool   `json:"include_bike,omitempty"`
}

type GetTransfersResponse struct {
	Transfers []router.TransferInput `json:"transfers"`
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/raptor/loader"
	"git.fiblab.net/sim/raptor/router"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// 读取并构建网络，失败时不影响正在运行的服务
func loadNetwork(ctx context.Context, cfg *Config) (*router.Network, error) {
	src, err := cfg.Source()
	if err != nil {
		return nil, err
	}
	in, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load network from %s: %w", cfg.Network, err)
	}
	start := time.Now()
	net, err := router.BuildNetwork(in, cfg.ProximityOptions())
	if err != nil {
		return nil, err
	}
	log.Infof("network %s built in %v", cfg.Network, time.Since(start))
	return net, nil
}

type RoutingServer struct {
	router *router.Router

	// 接口开启true或关闭false
	ok bool
	// 条件变量
	cond *sync.Cond
}

func NewRoutingServer(r *router.Router) *RoutingServer {
	return &RoutingServer{
		router: r,
		ok:     true, cond: sync.NewCond(&sync.Mutex{})}
}

// connect服务端路由
func (s *RoutingServer) Handler() http.Handler {
	mux := http.NewServeMux()
	codec := connect.WithCodec(jsonCodec{})
	mux.Handle(GET_ROUTE_PROCEDURE, connect.NewUnaryHandler(GET_ROUTE_PROCEDURE, s.GetRoute, codec))
	mux.Handle(GET_DEPARTURES_PROCEDURE, connect.NewUnaryHandler(GET_DEPARTURES_PROCEDURE, s.GetDepartures, codec))
	mux.Handle(GET_TRANSFERS_PROCEDURE, connect.NewUnaryHandler(GET_TRANSFERS_PROCEDURE, s.GetTransfers, codec))
	return mux
}

// 暂停-恢复机制
func (s *RoutingServer) wait() {
	s.cond.L.Lock()
	for !s.ok {
		// 暂停中
		s.cond.Wait()
	}
	s.cond.L.Unlock()
}

func (s *RoutingServer) GetRoute(
	ctx context.Context,
	req *connect.Request[GetRouteRequest],
) (*connect.Response[GetRouteResponse], error) {
	s.wait()
	in := req.Msg
	id := uuid.NewString()
	entry := log.WithField("request", id)
	start := time.Now()
	var its []router.Itinerary
	if in.byPoint() {
		q, err := in.pointQuery()
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		entry.Debugf("search route from (%v, %v) to (%v, %v) at %s",
			q.Origin.Lat, q.Origin.Lon, q.Destination.Lat, q.Destination.Lon, in.Departure)
		if its, err = s.router.RouteBetween(q); err != nil {
			return nil, connectError(err)
		}
	} else {
		q, err := in.query()
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		entry.Debugf("search route from %s to %s at %s", q.Origin, q.Destination, in.Departure)
		if its, err = s.router.Route(q); err != nil {
			return nil, connectError(err)
		}
	}
	entry.Debugf("found %d itineraries in %v", len(its), time.Since(start))
	// 无法找到通路时Itineraries为空
	return connect.NewResponse(&GetRouteResponse{
		RequestID:   id,
		Itineraries: lo.Map(its, newItinerary),
	}), nil
}

func (s *RoutingServer) GetDepartures(
	ctx context.Context,
	req *connect.Request[GetDeparturesRequest],
) (*connect.Response[GetDeparturesResponse], error) {
	s.wait()
	in := req.Msg
	if in.Time < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("negative time: %d", in.Time))
	}
	boardings, err := s.router.Departures(in.StopID, int32(in.Time))
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetDeparturesResponse{
		Departures: lo.Map(boardings, func(b router.Boarding, _ int) Departure {
			return Departure{RouteID: b.RouteID, TripID: b.TripID, Departure: router.Clock(b.Departure)}
		}),
	}), nil
}

func (s *RoutingServer) GetTransfers(
	ctx context.Context,
	req *connect.Request[GetTransfersRequest],
) (*connect.Response[GetTransfersResponse], error) {
	s.wait()
	edges, err := s.router.Transfers(req.Msg.StopID, req.Msg.IncludeBike)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetTransfersResponse{Transfers: edges}), nil
}

func connectError(err error) error {
	switch {
	case errors.Is(err, router.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, router.ErrInvalidQuery):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// Reload rebuilds the network from cfg and swaps it in. On failure the
// server keeps answering with the previous network.
func (s *RoutingServer) Reload(ctx context.Context, cfg *Config) error {
	net, err := loadNetwork(ctx, cfg)
	if err != nil {
		return err
	}
	s.Suspend()
	defer s.Resume()
	s.router.Swap(net)
	log.Infof("network reloaded: %d stops", len(s.router.StopIDs()))
	return nil
}

// 暂停导航服务
func (s *RoutingServer) Suspend() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = false
}

// 恢复导航服务
func (s *RoutingServer) Resume() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = true
	s.cond.Broadcast()
}

// 关闭导航服务
func (s *RoutingServer) Close() {
	s.router.Close()
}

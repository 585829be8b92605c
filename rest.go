package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/raptor/router"
	"github.com/go-chi/cors"
	"github.com/julienschmidt/httprouter"
)

// REST接口，与connect接口共用处理逻辑
func (s *RoutingServer) RestHandler() http.Handler {
	r := httprouter.New()
	r.GET("/healthz", s.restHealth)
	r.GET("/v1/route", s.restRoute)
	r.GET("/v1/stops/:id/departures", s.restDepartures)
	r.GET("/v1/stops/:id/transfers", s.restTransfers)
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})(r)
}

type restError struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, err error) {
	code := connect.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case connect.CodeInvalidArgument:
		status = http.StatusBadRequest
	case connect.CodeNotFound:
		status = http.StatusNotFound
	}
	text := err.Error()
	var ce *connect.Error
	if errors.As(err, &ce) {
		text = ce.Message()
	}
	sendJSON(w, status, restError{Code: code.String(), Text: text})
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// 时间参数支持HH:MM[:SS]或秒数
func parseClockParam(v url.Values, key string) (router.Clock, error) {
	s := v.Get(key)
	if s == "" {
		return 0, invalidArgument("missing %s", key)
	}
	if t, err := router.ParseClock(s); err == nil {
		return router.Clock(t), nil
	}
	t, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, invalidArgument("invalid %s: %q", key, s)
	}
	return router.Clock(t), nil
}

func parseBoolParam(v url.Values, key string) (bool, error) {
	s := v.Get(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, invalidArgument("invalid %s: %q", key, s)
	}
	return b, nil
}

func parseIntParam(v url.Values, key string) (*int, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, invalidArgument("invalid %s: %q", key, s)
	}
	return &n, nil
}

// 坐标参数{prefix}_lat和{prefix}_lon，都为空时返回nil
func parsePointParam(v url.Values, prefix string) (*router.Position, error) {
	latStr, lonStr := v.Get(prefix+"_lat"), v.Get(prefix+"_lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, invalidArgument("invalid %s_lat: %q", prefix, latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, invalidArgument("invalid %s_lon: %q", prefix, lonStr)
	}
	return &router.Position{Lat: lat, Lon: lon}, nil
}

func (s *RoutingServer) restHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sendJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"network": s.router.Stats(),
	})
}

func (s *RoutingServer) restRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := r.URL.Query()
	req := &GetRouteRequest{
		Origin:      v.Get("from"),
		Destination: v.Get("to"),
		Selection:   v.Get("select"),
	}
	var err error
	if req.Departure, err = parseClockParam(v, "departure"); err != nil {
		sendError(w, err)
		return
	}
	if req.IncludeBike, err = parseBoolParam(v, "bike"); err != nil {
		sendError(w, err)
		return
	}
	if req.MaxRounds, err = parseIntParam(v, "max_rounds"); err != nil {
		sendError(w, err)
		return
	}
	maxResults, err := parseIntParam(v, "max_results")
	if err != nil {
		sendError(w, err)
		return
	}
	if maxResults != nil {
		req.MaxResults = *maxResults
	}
	if req.OriginPoint, err = parsePointParam(v, "from"); err != nil {
		sendError(w, err)
		return
	}
	if req.DestinationPoint, err = parsePointParam(v, "to"); err != nil {
		sendError(w, err)
		return
	}
	res, err := s.GetRoute(r.Context(), connect.NewRequest(req))
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, res.Msg)
}

func (s *RoutingServer) restDepartures(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	t, err := parseClockParam(r.URL.Query(), "time")
	if err != nil {
		sendError(w, err)
		return
	}
	res, err := s.GetDepartures(r.Context(), connect.NewRequest(&GetDeparturesRequest{
		StopID: ps.ByName("id"),
		Time:   t,
	}))
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, res.Msg)
}

func (s *RoutingServer) restTransfers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bike, err := parseBoolParam(r.URL.Query(), "bike")
	if err != nil {
		sendError(w, err)
		return
	}
	res, err := s.GetTransfers(r.Context(), connect.NewRequest(&GetTransfersRequest{
		StopID:      ps.ByName("id"),
		IncludeBike: bike,
	}))
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, res.Msg)
}

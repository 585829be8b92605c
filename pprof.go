package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// 访问/debug/pprof/进入pprof实时分析页面，/debug/network查看当前网络规模
func (s *RoutingServer) debugHandler() http.Handler {
	r := httprouter.New()
	r.GET("/debug/pprof/*name", func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		switch ps.ByName("name") {
		case "/cmdline":
			pprof.Cmdline(w, req)
		case "/profile":
			pprof.Profile(w, req)
		case "/symbol":
			pprof.Symbol(w, req)
		case "/trace":
			pprof.Trace(w, req)
		default:
			// 包括heap、goroutine等命名profile
			pprof.Index(w, req)
		}
	})
	r.GET("/debug/network", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		sendJSON(w, http.StatusOK, s.router.Stats())
	})
	return r
}

func startHTTPDebugger(addr string, s *RoutingServer) {
	server := &http.Server{Addr: addr, Handler: s.debugHandler()}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("debug server stopped: %v", err)
		}
	}()
}

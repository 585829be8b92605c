package main

import (
	"context"
	"flag"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/raptor/router"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 1000, "the random routing count for benchmark")
	benchmarkSeed  = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU   = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
	benchmarkBike  = flag.Bool("benchmark.bike", false, "include bike transfers in benchmark requests")
)

// 出发时间在6点至22点之间随机
const (
	BENCHMARK_START_TIME = 6 * 3600
	BENCHMARK_END_TIME   = 22 * 3600
)

type benchmarkResult struct {
	Count   int
	Success int32
	Failed  int32
	Cost    time.Duration
}

func randomRequests(stops []string, count int, seed int64, bike bool) []*GetRouteRequest {
	e := rand.New(rand.NewSource(seed))
	reqs := make([]*GetRouteRequest, count)
	for i := range reqs {
		reqs[i] = &GetRouteRequest{
			Origin:      stops[e.Intn(len(stops))],
			Destination: stops[e.Intn(len(stops))],
			Departure:   router.Clock(BENCHMARK_START_TIME + e.Int31n(BENCHMARK_END_TIME-BENCHMARK_START_TIME)),
			IncludeBike: bike,
		}
	}
	return reqs
}

// 随机生成count个查询，起终点为随机车站
func benchmarkRoutes(server *RoutingServer, count int, seed int64, cpu int, bike bool) benchmarkResult {
	stops := server.router.StopIDs()
	res := benchmarkResult{Count: count}
	if len(stops) == 0 || count <= 0 {
		return res
	}
	reqs := randomRequests(stops, count, seed, bike)

	start := time.Now()
	var success, failed atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(max(cpu, 1))
	for _, req := range reqs {
		g.Go(func() error {
			out, err := server.GetRoute(context.Background(), connect.NewRequest(req))
			if err != nil {
				log.Error("benchmark failed, err:", err)
				failed.Add(1)
				return nil
			}
			if len(out.Msg.Itineraries) > 0 {
				success.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Cost = time.Since(start)
	res.Success = success.Load()
	res.Failed = failed.Load()
	return res
}

func runBenchmark(server *RoutingServer) {
	log.Logger.SetLevel(logrus.WarnLevel)
	if *benchmarkCPU > 1 {
		// 设置cpu数量
		runtime.GOMAXPROCS(*benchmarkCPU)
	}
	res := benchmarkRoutes(server, *benchmarkCount, *benchmarkSeed, *benchmarkCPU, *benchmarkBike)
	avg := time.Duration(0)
	if res.Count > 0 {
		avg = res.Cost * time.Duration(max(*benchmarkCPU, 1)) / time.Duration(res.Count)
	}
	log.Error(
		"benchmark finished", "\n",
		"count:", res.Count, "\n",
		"time:", res.Cost, "\n",
		"avg:", avg, "\n",
		"success:", res.Success, "\n",
		"failed:", res.Failed, "\n",
	)
}

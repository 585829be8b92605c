package router

import (
	"fmt"
	"math"
	"slices"

	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/samber/lo"
)

// ProximityOptions controls how walk and bike connections are generated
// from stop positions.
type ProximityOptions struct {
	Walk              bool
	MaxWalkDistance   float64 // m
	WalkTransferSpeed float64 // m/s
	MinWalkTime       int32   // s
	MaxWalkTime       int32   // s

	Bike                  bool
	WalkSpeed             float64 // m/s，到达/离开单车站点
	BikeSpeed             float64 // m/s
	MaxBikeTime           int32   // s
	BikeRentalTime        int32   // s
	MaxDockAccessDistance float64 // m

	// 坐标查询时起终点与车站之间的最长步行时间，也是纯步行方案的上限
	MaxAccessWalkTime int32 // s
}

func DefaultProximityOptions() ProximityOptions {
	return ProximityOptions{
		Walk:                  true,
		MaxWalkDistance:       MAX_WALK_TRANSFER_DISTANCE,
		WalkTransferSpeed:     WALK_TRANSFER_SPEED,
		MinWalkTime:           MIN_WALK_TRANSFER_TIME,
		MaxWalkTime:           MAX_WALK_TRANSFER_TIME,
		Bike:                  true,
		WalkSpeed:             WALK_SPEED,
		BikeSpeed:             BIKE_SPEED,
		MaxBikeTime:           MAX_BIKE_TIME,
		BikeRentalTime:        BIKE_RENTAL_TIME,
		MaxDockAccessDistance: MAX_DOCK_ACCESS_DISTANCE,
		MaxAccessWalkTime:     MAX_ACCESS_WALK_TIME,
	}
}

// 道路网：点属性为节点id，边属性为输入中的边下标
type StreetGraph = algo.SearchGraph[string, int]

func BuildStreetGraph(in *StreetInput) (*StreetGraph, error) {
	g := algo.NewSearchGraph[string, int](algo.HaversineHeuristics{})
	ids := make(map[string]int, len(in.Nodes))
	for _, n := range in.Nodes {
		if _, ok := ids[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicated street node %s", ErrDataIntegrity, n.ID)
		}
		ids[n.ID] = g.InitNode(algo.Point{Lat: n.Lat, Lon: n.Lon}, n.ID)
	}
	for i, e := range in.Edges {
		from, okFrom := ids[e.From]
		to, okTo := ids[e.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("%w: street edge %s -> %s references unknown node", ErrDataIntegrity, e.From, e.To)
		}
		length := e.Length
		if length < 0 {
			return nil, fmt.Errorf("%w: street edge %s -> %s has negative length", ErrDataIntegrity, e.From, e.To)
		}
		if length == 0 {
			length = algo.Haversine(
				algo.Point{Lat: in.Nodes[from].Lat, Lon: in.Nodes[from].Lon},
				algo.Point{Lat: in.Nodes[to].Lat, Lon: in.Nodes[to].Lon},
			)
		}
		g.InitEdge(from, to, length, i)
		if !e.OneWay {
			g.InitEdge(to, from, length, i)
		}
	}
	return g, nil
}

// 计算两点间距离：有道路网时为 接入距离+网络最短路+离开距离，否则为球面距离
type distanceMeasurer struct {
	streets *StreetGraph
	nearest map[algo.Point]streetAccess
}

type streetAccess struct {
	node     int
	distance float64
}

func newDistanceMeasurer(streets *StreetGraph) *distanceMeasurer {
	if streets != nil && streets.NumNodes() == 0 {
		streets = nil
	}
	return &distanceMeasurer{streets: streets, nearest: make(map[algo.Point]streetAccess)}
}

func (m *distanceMeasurer) access(p algo.Point) streetAccess {
	if a, ok := m.nearest[p]; ok {
		return a
	}
	node, d := m.streets.Nearest(p)
	a := streetAccess{node: node, distance: d}
	m.nearest[p] = a
	return a
}

func (m *distanceMeasurer) distance(a, b algo.Point) (float64, bool) {
	if m.streets == nil {
		return algo.Haversine(a, b), true
	}
	accessA, accessB := m.access(a), m.access(b)
	_, length := m.streets.ShortestPath(accessA.node, accessB.node)
	if math.IsInf(length, 0) {
		return 0, false
	}
	return accessA.distance + length + accessB.distance, true
}

// 按GRID_SIZE划分的空间网格索引
type gridIndex struct {
	cells  map[[2]int][]int
	points []algo.Point
}

func cellOf(p algo.Point) [2]int {
	return [2]int{int(math.Floor(p.Lat / GRID_SIZE)), int(math.Floor(p.Lon / GRID_SIZE))}
}

func newGridIndex(points []algo.Point) *gridIndex {
	g := &gridIndex{cells: make(map[[2]int][]int), points: points}
	for i, p := range points {
		c := cellOf(p)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

// 球面距离不超过radius的点，按下标升序
func (g *gridIndex) within(p algo.Point, radius float64) []int {
	dLat := int(math.Ceil(radius / (GRID_SIZE * METERS_PER_DEGREE)))
	cos := max(math.Cos(p.Lat*math.Pi/180), 0.01)
	dLon := int(math.Ceil(radius / (GRID_SIZE * METERS_PER_DEGREE * cos)))
	center := cellOf(p)
	out := make([]int, 0)
	for i := center[0] - dLat; i <= center[0]+dLat; i++ {
		for j := center[1] - dLon; j <= center[1]+dLon; j++ {
			for _, id := range g.cells[[2]int{i, j}] {
				if algo.Haversine(p, g.points[id]) <= radius {
					out = append(out, id)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

func stopPoints(tt *Timetable) []algo.Point {
	return lo.Times(tt.NumStops(), func(i int) algo.Point { return tt.Position(i).point() })
}

// 步行换乘：距离在MaxWalkDistance内的车站两两相连，时间按距离折算后截断到[MinWalkTime, MaxWalkTime]
func buildWalkTransfers(tt *Timetable, grid *gridIndex, m *distanceMeasurer, opts ProximityOptions) map[string][]TransferInput {
	out := make(map[string][]TransferInput)
	for i := range tt.NumStops() {
		p := grid.points[i]
		for _, j := range grid.within(p, opts.MaxWalkDistance) {
			if j == i {
				continue
			}
			d, ok := m.distance(p, grid.points[j])
			if !ok || d > opts.MaxWalkDistance {
				continue
			}
			duration := max(lo.Clamp(int32(d/opts.WalkTransferSpeed), opts.MinWalkTime, opts.MaxWalkTime), 1)
			out[tt.StopID(i)] = append(out[tt.StopID(i)], TransferInput{
				To:       tt.StopID(j),
				Duration: duration,
				Mode:     algo.MODE_WALK.String(),
			})
		}
	}
	return out
}

package algo

import (
	"container/heap"
	"math"

	"github.com/samber/lo"
)

type node[T any] struct {
	p    Point
	attr T
}

type edge[T any] struct {
	v    float64
	attr T
}

// SearchGraph is a static weighted directed graph searched with A*. It backs
// the street network used to measure walking and cycling distances between
// stops.
type SearchGraph[NT any, ET any] struct {
	// 邻接表，in node -> out node -> edge
	// 构建完成后只读，不需要考虑并发问题
	edges []map[int]edge[ET]
	// 点的位置
	nodes []node[NT]
	// A Star距离预估函数
	h IHeuristics
}

type IHeuristics interface {
	HeuristicEuclidean(Point, Point) float64
}

func NewSearchGraph[NT any, ET any](h IHeuristics) *SearchGraph[NT, ET] {
	return &SearchGraph[NT, ET]{
		edges: make([]map[int]edge[ET], 0),
		nodes: make([]node[NT], 0),
		h:     h,
	}
}

func (g *SearchGraph[NT, ET]) InitNode(p Point, attr NT) int {
	g.nodes = append(g.nodes, node[NT]{p: p, attr: attr})
	g.edges = append(g.edges, make(map[int]edge[ET]))
	return len(g.nodes) - 1
}

func (g *SearchGraph[NT, ET]) InitEdge(from, to int, length float64, attr ET) {
	if from >= len(g.edges) || to >= len(g.nodes) {
		log.Panicf("edge (%d,%d) out of range, %d nodes", from, to, len(g.nodes))
	}
	g.edges[from][to] = edge[ET]{
		v:    length,
		attr: attr,
	}
}

func (g *SearchGraph[NT, ET]) NumNodes() int {
	return len(g.nodes)
}

func (g *SearchGraph[NT, ET]) GetEdgeLengthAndAttr(from, to int) (float64, ET) {
	edge := g.edges[from][to]
	return edge.v, edge.attr
}

// Nearest returns the node closest to p and its distance.
func (g *SearchGraph[NT, ET]) Nearest(p Point) (int, float64) {
	best, bestD := NO_INDEX, math.Inf(0)
	for i, n := range g.nodes {
		if d := g.h.HeuristicEuclidean(p, n.p); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

type PathItem[NT any, ET any] struct {
	NodeAttr NT
	EdgeAttr ET
}

func (g *SearchGraph[NT, ET]) reconstructPath(cameFrom map[int]int, curNode int) ([]PathItem[NT, ET], float64) {
	pathBeforeReversed := []PathItem[NT, ET]{{NodeAttr: g.nodes[curNode].attr}}
	cost := 0.0
	for {
		from, ok := cameFrom[curNode]
		if !ok {
			break
		}
		thisCost, attr := g.GetEdgeLengthAndAttr(from, curNode)
		cost += thisCost
		curNode = from
		pathBeforeReversed = append(pathBeforeReversed, PathItem[NT, ET]{
			NodeAttr: g.nodes[curNode].attr,
			EdgeAttr: attr,
		})
	}
	return lo.Reverse(pathBeforeReversed), cost
}

// A Star算法求最短路，不可达时返回nil和+Inf
func (g *SearchGraph[NT, ET]) ShortestPath(start, end int) ([]PathItem[NT, ET], float64) {
	if start == end {
		return []PathItem[NT, ET]{{NodeAttr: g.nodes[start].attr}}, 0
	}
	openSet := make(PriorityQueue, 1)
	openSetMap := make(map[int]*Item, 1) // openSet value -> openSet item
	cameFrom := make(map[int]int, 0)
	gScore := make(map[int]float64, 0)
	gScore[start] = .0
	fScore := g.h.HeuristicEuclidean(g.nodes[start].p, g.nodes[end].p)
	openSet[0] = &Item{Value: start, Priority: fScore, Index: 0}
	openSetMap[start] = openSet[0]
	heap.Init(&openSet)
	closed := make(map[int]bool)
	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		if cur == end {
			return g.reconstructPath(cameFrom, cur)
		}
		closed[cur] = true
		for neighbor, edge := range g.edges[cur] {
			if closed[neighbor] {
				continue
			}
			gScoreTentative := gScore[cur] + edge.v
			gScoreNeighbor, ok := gScore[neighbor]
			if !ok {
				gScoreNeighbor = math.Inf(0)
			}
			if gScoreTentative < gScoreNeighbor {
				cameFrom[neighbor] = cur
				gScore[neighbor] = gScoreTentative
				fScore := gScoreTentative + g.h.HeuristicEuclidean(g.nodes[neighbor].p, g.nodes[end].p)
				if item, inOpen := openSetMap[neighbor]; inOpen && item.Index >= 0 {
					// 已经在堆中的节点，修改其优先级
					item.Priority = fScore
					heap.Fix(&openSet, item.Index)
				} else {
					// 新访问的节点
					item := &Item{Value: neighbor, Priority: fScore}
					heap.Push(&openSet, item)
					openSetMap[neighbor] = item
				}
			}
		}
	}
	return nil, math.Inf(0)
}

package algo

import "iter"

// 线路在车站处的位置
type RouteStop struct {
	Route int // 线路下标
	Index int // 车站在线路停靠序列中的下标
}

// Timetable is the implicit time-expanded graph seen by the scanner.
// Trips of a route are ordered so that a lower trip index never arrives
// later at any stop of the pattern.
type Timetable interface {
	NumStops() int
	// 经过该车站的所有线路
	RoutesAt(stop int) []RouteStop
	// 线路停靠车站数
	PatternLen(route int) int
	// 线路第index个停靠的车站
	PatternStop(route, index int) int
	// 线路在第index个车站处t时刻及之后最早出发的班次
	EarliestTrip(route, index int, t int32) (trip int, ok bool)
	// 班次在第index个车站的到达和出发时间
	StopTime(route, trip, index int) (arrival, departure int32)
}

// 非计划连接（步行/共享单车）
type Transfer struct {
	To       int
	Duration int32
	Mode     Mode
}

type TransferRelation interface {
	// 车站出发可到达的所有非计划连接，无序
	Transfers(stop int, includeBike bool) iter.Seq[Transfer]
}

// 起终点坐标与车站之间的接驳
type Access struct {
	Stop     int
	Duration int32
	Mode     Mode
}

type Label struct {
	Stop      int
	Arrival   int32
	Boardings int // 上车次数
	Changes   int // 换乘次数（比较维度）
	Round     int
	Kind      LegKind
	Prev      int // 前驱label id，起点为NO_INDEX

	// LEG_RIDE
	Route       int
	Trip        int
	BoardIndex  int
	AlightIndex int

	// LEG_TRANSFER, LEG_ACCESS
	Mode     Mode
	Duration int32
}

// Dominates reports whether l is at least as good as o on both criteria and
// strictly better on one.
func (l *Label) Dominates(o *Label) bool {
	if l.Arrival > o.Arrival || l.Changes > o.Changes {
		return false
	}
	return l.Arrival < o.Arrival || l.Changes < o.Changes
}

type Leg struct {
	Kind  LegKind
	From  int
	To    int
	Start int32
	End   int32

	// LEG_RIDE
	Route       int
	Trip        int
	BoardIndex  int
	AlightIndex int

	// LEG_TRANSFER, LEG_ACCESS, LEG_EGRESS
	Mode     Mode
	Duration int32
}

type Journey struct {
	Legs      []Leg
	Departure int32
	Arrival   int32
	Changes   int
}

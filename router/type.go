package router

import (
	"git.fiblab.net/sim/raptor/router/algo"
)

// 车站位置
type Position struct {
	Lat  float64 `json:"lat" yaml:"lat" bson:"lat"`
	Lon  float64 `json:"lon" yaml:"lon" bson:"lon"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
}

func (p Position) point() algo.Point {
	return algo.Point{Lat: p.Lat, Lon: p.Lon}
}

type StopTimeInput struct {
	StopID    string `json:"stop_id" yaml:"stop_id" bson:"stop_id"`
	Arrival   Clock  `json:"arrival" yaml:"arrival" bson:"arrival"`
	Departure Clock  `json:"departure" yaml:"departure" bson:"departure"`
}

type RouteInput struct {
	Name  string   `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Trips []string `json:"trips" yaml:"trips" bson:"trips"`
}

// TimetableInput is the fully formed schedule handed to the builder: stop
// positions, the ordered stop times of every trip, and the trips composing
// every route.
type TimetableInput struct {
	Stops  map[string]Position        `json:"stops" yaml:"stops" bson:"stops"`
	Trips  map[string][]StopTimeInput `json:"trips" yaml:"trips" bson:"trips"`
	Routes map[string]RouteInput      `json:"routes" yaml:"routes" bson:"routes"`
}

// 非计划连接，Mode为walk或bike
type TransferInput struct {
	To       string `json:"to" yaml:"to" bson:"to"`
	Duration int32  `json:"duration" yaml:"duration" bson:"duration"` // s
	Mode     string `json:"mode" yaml:"mode" bson:"mode"`
}

// 共享单车站点，Bikes为快照时刻的可用车辆数
type BikeStationInput struct {
	Position `yaml:",inline" bson:",inline"`

	Capacity int `json:"capacity" yaml:"capacity" bson:"capacity"`
	Bikes    int `json:"bikes" yaml:"bikes" bson:"bikes"`
}

type StreetNodeInput struct {
	ID  string  `json:"id" yaml:"id" bson:"id"`
	Lat float64 `json:"lat" yaml:"lat" bson:"lat"`
	Lon float64 `json:"lon" yaml:"lon" bson:"lon"`
}

type StreetEdgeInput struct {
	From   string  `json:"from" yaml:"from" bson:"from"`
	To     string  `json:"to" yaml:"to" bson:"to"`
	Length float64 `json:"length,omitempty" yaml:"length,omitempty" bson:"length,omitempty"` // m，为0时按两端点球面距离
	OneWay bool    `json:"one_way,omitempty" yaml:"one_way,omitempty" bson:"one_way,omitempty"`
}

// 步行/骑行道路网，用于计算车站间的网络距离
type StreetInput struct {
	Nodes []StreetNodeInput `json:"nodes" yaml:"nodes" bson:"nodes"`
	Edges []StreetEdgeInput `json:"edges" yaml:"edges" bson:"edges"`
}

type NetworkInput struct {
	Timetable    TimetableInput              `json:"timetable" yaml:"timetable" bson:"timetable"`
	Transfers    map[string][]TransferInput  `json:"transfers,omitempty" yaml:"transfers,omitempty" bson:"transfers,omitempty"`
	BikeStations map[string]BikeStationInput `json:"bike_stations,omitempty" yaml:"bike_stations,omitempty" bson:"bike_stations,omitempty"`
	Streets      *StreetInput                `json:"streets,omitempty" yaml:"streets,omitempty" bson:"streets,omitempty"`
}

type Query struct {
	Origin      string
	Destination string
	Departure   int32 // 当日0点起的秒数
	// 最大轮数，负数表示使用默认值
	MaxRounds   int
	IncludeBike bool
	Selection   algo.Selection
	// 最多返回的方案数，0表示不限
	MaxResults int
}

// PointQuery asks for itineraries between two coordinates. Stops near each
// point are reached on foot (or by bike when requested), and direct walk and
// bike itineraries compete with transit ones.
type PointQuery struct {
	Origin      Position
	Destination Position
	Departure   int32
	// 最大轮数，负数表示使用默认值
	MaxRounds   int
	IncludeBike bool
	Selection   algo.Selection
	// 最多返回的方案数，0表示不限
	MaxResults int
}

const (
	LEG_KIND_RIDE     = "ride"
	LEG_KIND_TRANSFER = "transfer"
	// 坐标查询中起点到车站、车站到终点以及起终点直达的出行段
	LEG_KIND_ACCESS = "access"
	LEG_KIND_EGRESS = "egress"
	LEG_KIND_DIRECT = "direct"

	// 坐标查询中起终点在出行段中的名称
	PLACE_ORIGIN      = "origin"
	PLACE_DESTINATION = "destination"

	ITINERARY_NONE    = "none"
	ITINERARY_WALK    = "walk"
	ITINERARY_BIKE    = "bike"
	ITINERARY_TRANSIT = "transit"
	ITINERARY_MIXED   = "mixed"
)

// 不含几何信息的出行段
type Leg struct {
	Kind  string `json:"kind"`
	From  string `json:"from"`
	To    string `json:"to"`
	Start int32  `json:"start"`
	End   int32  `json:"end"`

	RouteID string `json:"route_id,omitempty"`
	TripID  string `json:"trip_id,omitempty"`

	Mode string `json:"mode,omitempty"`

	// 坐标查询中骑行段借车和还车的单车站点
	Stations []string `json:"stations,omitempty"`
}

type Itinerary struct {
	Legs      []Leg `json:"legs"`
	Departure int32 `json:"departure"`
	Arrival   int32 `json:"arrival"`
	Transfers int   `json:"transfers"`
}

func (it *Itinerary) Duration() int32 {
	return it.Arrival - it.Departure
}

// Kind classifies the itinerary by the modes it uses.
func (it *Itinerary) Kind() string {
	rides, walks, bikes := 0, 0, 0
	for _, leg := range it.Legs {
		switch {
		case leg.Kind == LEG_KIND_RIDE:
			rides++
		case leg.Mode == algo.MODE_BIKE.String():
			bikes++
		default:
			walks++
		}
	}
	switch {
	case rides > 0 && walks+bikes > 0:
		return ITINERARY_MIXED
	case rides > 0:
		return ITINERARY_TRANSIT
	case bikes > 0:
		return ITINERARY_BIKE
	case walks > 0:
		return ITINERARY_WALK
	default:
		return ITINERARY_NONE
	}
}

// 某条线路在车站的最早可上车班次
type Boarding struct {
	RouteID   string `json:"route_id"`
	TripID    string `json:"trip_id"`
	Index     int    `json:"index"` // 车站在班次停靠序列中的下标
	Departure int32  `json:"departure"`
}

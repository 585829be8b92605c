package loader

import (
	"context"
	"fmt"
	"slices"
	"time"

	"git.fiblab.net/sim/raptor/router"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// 集合中的文档类型
const (
	CLASS_STOP         = "stop"
	CLASS_TRIP         = "trip"
	CLASS_ROUTE        = "route"
	CLASS_TRANSFER     = "transfer"
	CLASS_BIKE_STATION = "bike_station"
	CLASS_STREET_NODE  = "street_node"
	CLASS_STREET_EDGE  = "street_edge"
)

const MONGO_TIMEOUT = 10 * time.Second

// 集合中的一条文档：{class: ..., data: {...}}
type Document struct {
	Class string   `bson:"class"`
	Data  bson.Raw `bson:"data"`
}

type stopDoc struct {
	ID              string `bson:"id"`
	router.Position `bson:",inline"`
}

type tripDoc struct {
	ID        string                 `bson:"id"`
	RouteID   string                 `bson:"route_id"`
	StopTimes []router.StopTimeInput `bson:"stop_times"`
}

type routeDoc struct {
	ID   string `bson:"id"`
	Name string `bson:"name,omitempty"`
}

type transferDoc struct {
	From                 string `bson:"from"`
	router.TransferInput `bson:",inline"`
}

type bikeStationDoc struct {
	ID                      string `bson:"id"`
	router.BikeStationInput `bson:",inline"`
}

func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, MONGO_TIMEOUT)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// LoadMongo reads every document of the collection and assembles the network.
func LoadMongo(ctx context.Context, coll *mongo.Collection) (*router.NetworkInput, error) {
	log.Infof("get network from %s.%s", coll.Database().Name(), coll.Name())
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	docs := make([]Document, 0)
	for cur.Next(ctx) {
		var doc Document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return FromDocuments(docs)
}

// SaveMongo replaces the collection content with the documents of the network.
func SaveMongo(ctx context.Context, coll *mongo.Collection, in *router.NetworkInput) error {
	docs, err := ToDocuments(in)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err = coll.InsertMany(ctx, lo.Map(docs, func(d Document, _ int) any { return d }))
	if err != nil {
		return err
	}
	log.Infof("saved %d documents to %s.%s", len(docs), coll.Database().Name(), coll.Name())
	return nil
}

func FromDocuments(docs []Document) (*router.NetworkInput, error) {
	in := &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops:  make(map[string]router.Position),
			Trips:  make(map[string][]router.StopTimeInput),
			Routes: make(map[string]router.RouteInput),
		},
		Transfers:    make(map[string][]router.TransferInput),
		BikeStations: make(map[string]router.BikeStationInput),
	}
	var streets router.StreetInput
	// 班次按出现顺序挂到线路上
	tripRoutes := make([]lo.Tuple2[string, string], 0)
	for i, doc := range docs {
		var err error
		switch doc.Class {
		case CLASS_STOP:
			var d stopDoc
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				in.Timetable.Stops[d.ID] = d.Position
			}
		case CLASS_TRIP:
			var d tripDoc
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				if _, ok := in.Timetable.Trips[d.ID]; ok {
					return nil, fmt.Errorf("%w: duplicated trip %s", router.ErrDataIntegrity, d.ID)
				}
				in.Timetable.Trips[d.ID] = d.StopTimes
				tripRoutes = append(tripRoutes, lo.T2(d.ID, d.RouteID))
			}
		case CLASS_ROUTE:
			var d routeDoc
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				r := in.Timetable.Routes[d.ID]
				r.Name = d.Name
				in.Timetable.Routes[d.ID] = r
			}
		case CLASS_TRANSFER:
			var d transferDoc
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				in.Transfers[d.From] = append(in.Transfers[d.From], d.TransferInput)
			}
		case CLASS_BIKE_STATION:
			var d bikeStationDoc
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				in.BikeStations[d.ID] = d.BikeStationInput
			}
		case CLASS_STREET_NODE:
			var d router.StreetNodeInput
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				streets.Nodes = append(streets.Nodes, d)
			}
		case CLASS_STREET_EDGE:
			var d router.StreetEdgeInput
			if err = bson.Unmarshal(doc.Data, &d); err == nil {
				streets.Edges = append(streets.Edges, d)
			}
		default:
			log.Warnf("skip document %d with unknown class %q", i, doc.Class)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s document %d: %w", doc.Class, i, err)
		}
	}
	for _, tr := range tripRoutes {
		r := in.Timetable.Routes[tr.B]
		r.Trips = append(r.Trips, tr.A)
		in.Timetable.Routes[tr.B] = r
	}
	if len(streets.Nodes) > 0 || len(streets.Edges) > 0 {
		in.Streets = &streets
	}
	return in, nil
}

// ToDocuments flattens a network into class-tagged documents in a stable order.
func ToDocuments(in *router.NetworkInput) ([]Document, error) {
	docs := make([]Document, 0)
	add := func(class string, v any) error {
		raw, err := bson.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", class, err)
		}
		docs = append(docs, Document{Class: class, Data: raw})
		return nil
	}
	for _, id := range sortedKeys(in.Timetable.Stops) {
		if err := add(CLASS_STOP, stopDoc{ID: id, Position: in.Timetable.Stops[id]}); err != nil {
			return nil, err
		}
	}
	for _, id := range sortedKeys(in.Timetable.Routes) {
		r := in.Timetable.Routes[id]
		if err := add(CLASS_ROUTE, routeDoc{ID: id, Name: r.Name}); err != nil {
			return nil, err
		}
		for _, trip := range r.Trips {
			if err := add(CLASS_TRIP, tripDoc{ID: trip, RouteID: id, StopTimes: in.Timetable.Trips[trip]}); err != nil {
				return nil, err
			}
		}
	}
	for _, from := range sortedKeys(in.Transfers) {
		for _, e := range in.Transfers[from] {
			if err := add(CLASS_TRANSFER, transferDoc{From: from, TransferInput: e}); err != nil {
				return nil, err
			}
		}
	}
	for _, id := range sortedKeys(in.BikeStations) {
		if err := add(CLASS_BIKE_STATION, bikeStationDoc{ID: id, BikeStationInput: in.BikeStations[id]}); err != nil {
			return nil, err
		}
	}
	if in.Streets != nil {
		for _, n := range in.Streets.Nodes {
			if err := add(CLASS_STREET_NODE, n); err != nil {
				return nil, err
			}
		}
		for _, e := range in.Streets.Edges {
			if err := add(CLASS_STREET_EDGE, e); err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

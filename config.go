package main

import (
	"fmt"
	"os"
	"time"

	"git.fiblab.net/sim/raptor/loader"
	"git.fiblab.net/sim/raptor/router"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// 网络数据 [format: {fspath} or {db}.{col}]
	Network  string `yaml:"network" validate:"required"`
	MongoURI string `yaml:"mongo_uri"`
	// 为空表示不使用缓存
	Cache  string `yaml:"cache"`
	Listen string `yaml:"listen" validate:"required,hostname_port"`
	Rest   string `yaml:"rest" validate:"omitempty,hostname_port"`
	Pprof  string `yaml:"pprof" validate:"omitempty,hostname_port"`

	GTFS      GTFSConfig      `yaml:"gtfs"`
	Routing   RoutingConfig   `yaml:"routing"`
	Proximity ProximityConfig `yaml:"proximity"`
}

type GTFSConfig struct {
	ServiceDate       string `yaml:"service_date" validate:"omitempty,datetime=2006-01-02"`
	MaxFrequencyTrips int    `yaml:"max_frequency_trips" validate:"gte=0"`
}

type RoutingConfig struct {
	MaxRounds         int   `yaml:"max_rounds" validate:"gte=0,lte=32"`
	BoardSlack        int32 `yaml:"board_slack" validate:"gte=0,lte=3600"` // s
	Parallelism       int   `yaml:"parallelism" validate:"gte=0"`
	TargetPruning     bool  `yaml:"target_pruning"`
	CountTransferLegs bool  `yaml:"count_transfer_legs"`
}

type ProximityConfig struct {
	Walk              bool    `yaml:"walk"`
	MaxWalkDistance   float64 `yaml:"max_walk_distance" validate:"gt=0"`   // m
	WalkTransferSpeed float64 `yaml:"walk_transfer_speed" validate:"gt=0"` // m/s
	MinWalkTime       int32   `yaml:"min_walk_time" validate:"gte=0"`      // s
	MaxWalkTime       int32   `yaml:"max_walk_time" validate:"gtefield=MinWalkTime"`

	Bike                  bool    `yaml:"bike"`
	WalkSpeed             float64 `yaml:"walk_speed" validate:"gt=0"` // m/s
	BikeSpeed             float64 `yaml:"bike_speed" validate:"gt=0"` // m/s
	MaxBikeTime           int32   `yaml:"max_bike_time" validate:"gt=0"`     // s
	BikeRentalTime        int32   `yaml:"bike_rental_time" validate:"gte=0"` // s
	MaxDockAccessDistance float64 `yaml:"max_dock_access_distance" validate:"gt=0"`

	// 坐标查询时起终点与车站之间的最长步行时间（s）
	MaxAccessWalkTime int32 `yaml:"max_access_walk_time" validate:"gt=0"`
}

func DefaultConfig() Config {
	opts := router.DefaultProximityOptions()
	return Config{
		Listen: "localhost:52101",
		Routing: RoutingConfig{
			MaxRounds: router.DefaultOptions().MaxRounds,
		},
		Proximity: ProximityConfig{
			Walk:                  opts.Walk,
			MaxWalkDistance:       opts.MaxWalkDistance,
			WalkTransferSpeed:     opts.WalkTransferSpeed,
			MinWalkTime:           opts.MinWalkTime,
			MaxWalkTime:           opts.MaxWalkTime,
			Bike:                  opts.Bike,
			WalkSpeed:             opts.WalkSpeed,
			BikeSpeed:             opts.BikeSpeed,
			MaxBikeTime:           opts.MaxBikeTime,
			BikeRentalTime:        opts.BikeRentalTime,
			MaxDockAccessDistance: opts.MaxDockAccessDistance,
			MaxAccessWalkTime:     opts.MaxAccessWalkTime,
		},
	}
}

// LoadConfig reads a YAML config over the defaults. An empty path returns the
// defaults unvalidated so that flags can complete them.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func (c *Config) RouterOptions() router.Options {
	return router.Options{
		MaxRounds:         c.Routing.MaxRounds,
		BoardSlack:        c.Routing.BoardSlack,
		Parallelism:       c.Routing.Parallelism,
		TargetPruning:     c.Routing.TargetPruning,
		CountTransferLegs: c.Routing.CountTransferLegs,
	}
}

func (c *Config) ProximityOptions() router.ProximityOptions {
	p := c.Proximity
	return router.ProximityOptions{
		Walk:                  p.Walk,
		MaxWalkDistance:       p.MaxWalkDistance,
		WalkTransferSpeed:     p.WalkTransferSpeed,
		MinWalkTime:           p.MinWalkTime,
		MaxWalkTime:           p.MaxWalkTime,
		Bike:                  p.Bike,
		WalkSpeed:             p.WalkSpeed,
		BikeSpeed:             p.BikeSpeed,
		MaxBikeTime:           p.MaxBikeTime,
		BikeRentalTime:        p.BikeRentalTime,
		MaxDockAccessDistance: p.MaxDockAccessDistance,
		MaxAccessWalkTime:     p.MaxAccessWalkTime,
	}
}

func (c *Config) Source() (loader.Source, error) {
	p, err := loader.NewPath(c.Network)
	if err != nil {
		return loader.Source{}, err
	}
	src := loader.Source{
		Path:     p,
		MongoURI: c.MongoURI,
		CacheDir: c.Cache,
		GTFS:     loader.GTFSOptions{MaxFrequencyTrips: c.GTFS.MaxFrequencyTrips},
	}
	if c.GTFS.ServiceDate != "" {
		if src.GTFS.ServiceDate, err = time.Parse(time.DateOnly, c.GTFS.ServiceDate); err != nil {
			return src, err
		}
	}
	return src, nil
}

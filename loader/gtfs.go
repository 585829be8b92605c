package loader

import (
	"fmt"
	"os"
	"slices"
	"time"

	"git.fiblab.net/sim/raptor/router"
	"git.fiblab.net/sim/raptor/router/algo"
	"github.com/jamespfennell/gtfs"
	"github.com/samber/lo"
)

type GTFSOptions struct {
	// 非零时只保留当天运营的班次
	ServiceDate time.Time
	// 每个频率班次最多展开的班次数，0表示不限制
	MaxFrequencyTrips int
}

// LoadGTFS reads a GTFS static zip from disk.
func LoadGTFS(path string, opts GTFSOptions) (*router.NetworkInput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGTFS(b, opts)
}

func ParseGTFS(b []byte, opts GTFSOptions) (*router.NetworkInput, error) {
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS: %w", err)
	}
	for _, w := range static.Warnings {
		log.Debugf("GTFS warning: %v", w)
	}
	return FromGTFS(static, opts)
}

// FromGTFS converts a parsed feed into a network input. Stops without
// coordinates (and without a located parent) are dropped together with the
// trips visiting them. Trips whose times are missing or run backwards are
// dropped too, so one broken trip does not fail the whole feed.
// Frequency-based trips are expanded into concrete trips.
func FromGTFS(static *gtfs.Static, opts GTFSOptions) (*router.NetworkInput, error) {
	in := &router.NetworkInput{
		Timetable: router.TimetableInput{
			Stops:  make(map[string]router.Position),
			Trips:  make(map[string][]router.StopTimeInput),
			Routes: make(map[string]router.RouteInput),
		},
		Transfers: make(map[string][]router.TransferInput),
	}
	for i := range static.Stops {
		s := &static.Stops[i]
		lat, lon, ok := stopCoordinates(s)
		if !ok {
			continue
		}
		in.Timetable.Stops[s.Id] = router.Position{Lat: lat, Lon: lon, Name: s.Name}
	}

	var (
		droppedByService  int
		droppedByLocation int
		droppedByTime     int
	)
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		// 缺少时刻的停靠在解析时已被跳过
		if len(trip.StopTimes) < 2 {
			droppedByTime++
			continue
		}
		if !opts.ServiceDate.IsZero() && !serviceActive(trip.Service, opts.ServiceDate) {
			droppedByService++
			continue
		}
		stopTimes, ok := convertStopTimes(trip, in.Timetable.Stops)
		if !ok {
			droppedByLocation++
			continue
		}
		if !monotonic(stopTimes) {
			droppedByTime++
			continue
		}
		route, ok := in.Timetable.Routes[trip.Route.Id]
		if !ok {
			route.Name = lo.Ternary(trip.Route.ShortName != "", trip.Route.ShortName, trip.Route.LongName)
		}
		if len(trip.Frequencies) == 0 {
			in.Timetable.Trips[trip.ID] = stopTimes
			route.Trips = append(route.Trips, trip.ID)
		} else {
			copies := expandFrequencies(stopTimes, trip.Frequencies, opts.MaxFrequencyTrips)
			if len(copies) == 0 {
				droppedByTime++
				continue
			}
			for k, expanded := range copies {
				id := fmt.Sprintf("%s#%d", trip.ID, k)
				in.Timetable.Trips[id] = expanded
				route.Trips = append(route.Trips, id)
			}
		}
		in.Timetable.Routes[trip.Route.Id] = route
	}
	if droppedByService > 0 || droppedByLocation > 0 || droppedByTime > 0 {
		log.Infof("GTFS: dropped %d trips not running on service date, %d trips visiting unlocated stops, %d trips with invalid times",
			droppedByService, droppedByLocation, droppedByTime)
	}

	for _, tr := range static.Transfers {
		if tr.From == nil || tr.To == nil || tr.From.Id == tr.To.Id {
			continue
		}
		if tr.MinTransferTime == nil || *tr.MinTransferTime <= 0 {
			continue
		}
		if _, ok := in.Timetable.Stops[tr.From.Id]; !ok {
			continue
		}
		if _, ok := in.Timetable.Stops[tr.To.Id]; !ok {
			continue
		}
		in.Transfers[tr.From.Id] = append(in.Transfers[tr.From.Id], router.TransferInput{
			To:       tr.To.Id,
			Duration: *tr.MinTransferTime,
			Mode:     algo.MODE_WALK.String(),
		})
	}
	log.Infof("GTFS: %d stops, %d routes, %d trips, %d transfer sources",
		len(in.Timetable.Stops), len(in.Timetable.Routes), len(in.Timetable.Trips), len(in.Transfers))
	return in, nil
}

func stopCoordinates(s *gtfs.Stop) (float64, float64, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Latitude != nil && cur.Longitude != nil {
			return *cur.Latitude, *cur.Longitude, true
		}
	}
	return 0, 0, false
}

func convertStopTimes(trip *gtfs.ScheduledTrip, stops map[string]router.Position) ([]router.StopTimeInput, bool) {
	sts := slices.Clone(trip.StopTimes)
	slices.SortFunc(sts, func(a, b gtfs.ScheduledStopTime) int { return a.StopSequence - b.StopSequence })
	out := make([]router.StopTimeInput, 0, len(sts))
	for _, st := range sts {
		if st.Stop == nil {
			return nil, false
		}
		if _, ok := stops[st.Stop.Id]; !ok {
			return nil, false
		}
		arrival := router.Clock(st.ArrivalTime / time.Second)
		departure := router.Clock(st.DepartureTime / time.Second)
		out = append(out, router.StopTimeInput{
			StopID:    st.Stop.Id,
			Arrival:   arrival,
			Departure: max(arrival, departure),
		})
	}
	return out, true
}

// 时刻非负且不倒流：到达不早于上一站出发
func monotonic(sts []router.StopTimeInput) bool {
	for i, st := range sts {
		if st.Arrival < 0 || st.Departure < st.Arrival {
			return false
		}
		if i > 0 && st.Arrival < sts[i-1].Departure {
			return false
		}
	}
	return true
}

// 以第一站出发时间为基准平移整个班次，平移后时刻为负的班次丢弃
func expandFrequencies(template []router.StopTimeInput, freqs []gtfs.Frequency, limit int) [][]router.StopTimeInput {
	base := template[0].Departure
	var out [][]router.StopTimeInput
	for _, f := range freqs {
		headway := router.Clock(f.Headway / time.Second)
		if headway <= 0 {
			continue
		}
		end := router.Clock(f.EndTime / time.Second)
		for start := router.Clock(f.StartTime / time.Second); start < end; start += headway {
			if limit > 0 && len(out) >= limit {
				return out
			}
			shift := start - base
			if template[0].Arrival+shift < 0 {
				continue
			}
			out = append(out, lo.Map(template, func(st router.StopTimeInput, _ int) router.StopTimeInput {
				st.Arrival += shift
				st.Departure += shift
				return st
			}))
		}
	}
	return out
}

func serviceActive(s *gtfs.Service, date time.Time) bool {
	if s == nil {
		return true
	}
	sameDay := func(d time.Time) bool {
		y1, m1, d1 := d.Date()
		y2, m2, d2 := date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	if slices.ContainsFunc(s.RemovedDates, sameDay) {
		return false
	}
	if slices.ContainsFunc(s.AddedDates, sameDay) {
		return true
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if !s.StartDate.IsZero() && day.Before(time.Date(s.StartDate.Year(), s.StartDate.Month(), s.StartDate.Day(), 0, 0, 0, 0, time.UTC)) {
		return false
	}
	if !s.EndDate.IsZero() && day.After(time.Date(s.EndDate.Year(), s.EndDate.Month(), s.EndDate.Day(), 0, 0, 0, 0, time.UTC)) {
		return false
	}
	switch date.Weekday() {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	default:
		return s.Sunday
	}
}

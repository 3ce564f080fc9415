package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"carpool/internal/domain"
	"carpool/internal/geo"
)

// The query engine filters, orders and partitions ride sets. Every screen
// consumes this one implementation; it runs lock-free against whatever
// snapshot the caller loaded.

// Filter keys accepted by FilterByStatus.
const (
	FilterAll        = "all"
	FilterScheduled  = "scheduled"
	FilterInProgress = "in-progress"
	FilterCompleted  = "completed"
	FilterCancelled  = "cancelled"
)

// Sort keys accepted by SortRides.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByDistance SortKey = "distance"
	SortByEarnings SortKey = "earnings"
)

// FilterByStatus returns the rides matching the given status key. "all"
// passes everything through; "scheduled" also matches rides whose status was
// never set, which older rows treat as scheduled by convention.
func FilterByStatus(rides []*domain.Ride, key string) []*domain.Ride {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || key == FilterAll {
		return rides
	}

	var want domain.RideStatus
	switch key {
	case FilterScheduled:
		want = domain.RideStatusScheduled
	case FilterInProgress, "in_progress":
		want = domain.RideStatusInProgress
	case FilterCompleted:
		want = domain.RideStatusCompleted
	case FilterCancelled:
		want = domain.RideStatusCancelled
	default:
		return nil
	}

	var out []*domain.Ride
	for _, r := range rides {
		if domain.NormalizeRideStatus(r.Status) == want {
			out = append(out, r)
		}
	}
	return out
}

// SortRides orders a copy of the ride set by the given key.
//
//   - date: ascending by departure time.
//   - distance: ascending by haversine distance from currentLocation to the
//     ride's origin; rides without coordinates, or every ride when no
//     location is supplied, fall back to their precomputed route distance.
//   - earnings: descending by the ride's gross earnings (seats sold times
//     price per seat, from the denormalized availability).
func SortRides(rides []*domain.Ride, key SortKey, currentLocation *domain.Coordinates) []*domain.Ride {
	out := make([]*domain.Ride, len(rides))
	copy(out, rides)

	switch key {
	case SortByDistance:
		sort.SliceStable(out, func(i, j int) bool {
			return sortDistance(out[i], currentLocation) < sortDistance(out[j], currentLocation)
		})
	case SortByEarnings:
		sort.SliceStable(out, func(i, j int) bool {
			return grossEarnings(out[i]) > grossEarnings(out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DepartureTime.Before(out[j].DepartureTime)
		})
	}

	return out
}

func sortDistance(r *domain.Ride, current *domain.Coordinates) float64 {
	if current != nil && r.Origin != nil {
		return geo.DistanceMiles(current.Lat, current.Lng, r.Origin.Lat, r.Origin.Lng)
	}
	if r.RouteMiles != nil {
		return *r.RouteMiles
	}
	return math.MaxFloat64
}

// grossEarnings ranks rides for sorting. It reads the denormalized
// AvailableSeats hint on purpose; exact seat counts would need the booking
// list and ordering does not warrant that.
func grossEarnings(r *domain.Ride) float64 {
	seats := r.TotalSeats - r.AvailableSeats
	if seats < 0 {
		seats = 0
	}
	return r.PricePerSeat * float64(seats)
}

// RideGroups partitions a ride set by departure date.
type RideGroups struct {
	Today    []*domain.Ride
	Upcoming []*domain.Ride
	Past     []*domain.Ride
}

// SeparateByDate partitions rides into today, upcoming and past relative to
// the reference time, comparing dates only.
func SeparateByDate(rides []*domain.Ride, now time.Time) RideGroups {
	var groups RideGroups
	today := truncateToDay(now, now.Location())

	for _, r := range rides {
		day := truncateToDay(r.DepartureTime, now.Location())
		switch {
		case day.Equal(today):
			groups.Today = append(groups.Today, r)
		case day.After(today):
			groups.Upcoming = append(groups.Upcoming, r)
		default:
			groups.Past = append(groups.Past, r)
		}
	}

	return groups
}

func truncateToDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ActiveRide returns the single ride in progress, if any. A driver has at
// most one.
func ActiveRide(rides []*domain.Ride) *domain.Ride {
	for _, r := range rides {
		if r.Status == domain.RideStatusInProgress {
			return r
		}
	}
	return nil
}

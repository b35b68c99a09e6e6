// Package tracking maintains each vehicle's last-known position and liveness
// and derives navigation hints toward the next pending stop. State here is
// ephemeral on purpose: the durable store keeps only the last-known sample,
// and a lost sample is simply re-reported on the next tick.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
	"waste_tracker/internal/store"
)

// Hint errors. These are conditions, not failures; controllers map them to
// descriptive responses rather than error statuses.
var (
	ErrNoActiveRoute    = errors.New("vehicle has no active route")
	ErrNoRemainingStops = errors.New("all stops on the route are done")
	ErrNoPosition       = errors.New("no position reported yet")
)

const shardCount = 16

// sample is the retained state per vehicle: only the latest accepted report.
type sample struct {
	lat, lon   float64
	observedAt time.Time
	online     bool
}

type shard struct {
	mu      sync.Mutex
	samples map[uint]sample
}

// Tracker ingests position reports and answers navigation queries. The
// in-memory map is sharded by vehicle id so many concurrent drivers never
// contend on one lock.
type Tracker struct {
	store        store.Store
	shards       [shardCount]*shard
	staleAfter   time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStaleAfter sets the liveness window: a vehicle whose newest sample is
// older than d reads as offline.
func WithStaleAfter(d time.Duration) Option {
	return func(t *Tracker) { t.staleAfter = d }
}

// WithWriteTimeout bounds the durable last-known-position write per sample.
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.writeTimeout = d }
}

func withClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:        s,
		staleAfter:   90 * time.Second,
		writeTimeout: 3 * time.Second,
		now:          time.Now,
	}
	for i := range t.shards {
		t.shards[i] = &shard{samples: make(map[uint]sample)}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) shardFor(vehicleID uint) *shard {
	return t.shards[vehicleID%shardCount]
}

// ReportPosition records a position sample for a vehicle. Samples older than
// the retained one are dropped silently (accepted but ignored): last writer
// wins only when causally later. The durable last-known write runs under a
// short timeout and a timed-out sample is dropped rather than retried —
// stale movement data is worse than missing data.
func (t *Tracker) ReportPosition(ctx context.Context, vehicleID uint, lat, lon float64, observedAt time.Time) (bool, error) {
	if !ValidCoordinate(lat, lon) {
		return false, apperr.BadCoordinate("lat=%.6f lon=%.6f out of range", lat, lon)
	}

	sh := t.shardFor(vehicleID)
	sh.mu.Lock()
	if prev, ok := sh.samples[vehicleID]; ok && !observedAt.After(prev.observedAt) {
		sh.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"vehicle_id": vehicleID,
			"observed":   observedAt,
			"retained":   prev.observedAt,
		}).Debug("dropping out-of-order position sample")
		return false, nil
	}
	sh.samples[vehicleID] = sample{lat: lat, lon: lon, observedAt: observedAt, online: true}
	sh.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	if err := t.store.UpdateVehiclePosition(wctx, vehicleID, lat, lon, observedAt); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// The vehicle does not exist; drop the sample stored above so
			// Online and LastKnown never answer for a phantom vehicle.
			sh.mu.Lock()
			delete(sh.samples, vehicleID)
			sh.mu.Unlock()
			return false, err
		}
		// Accepted in memory; the durable copy catches up on the next tick.
		logrus.WithError(err).WithField("vehicle_id", vehicleID).
			Warn("dropping durable position write")
	}
	return true, nil
}

// MarkOffline transitions a vehicle to offline, keeping the final known
// position for "last seen". Best-effort and idempotent: the end-of-shift
// beacon that triggers it is not guaranteed to arrive at all.
func (t *Tracker) MarkOffline(ctx context.Context, vehicleID uint) error {
	sh := t.shardFor(vehicleID)
	sh.mu.Lock()
	if s, ok := sh.samples[vehicleID]; ok {
		s.online = false
		sh.samples[vehicleID] = s
	}
	sh.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	if err := t.store.SetVehicleOnline(wctx, vehicleID, false, t.now()); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		logrus.WithError(err).WithField("vehicle_id", vehicleID).
			Warn("dropping durable offline write")
	}
	return nil
}

// Online reports the vehicle's liveness. A vehicle with an explicit offline
// mark, or whose newest sample is older than the staleness window, reads as
// offline: the going-offline beacon is best-effort, so recency is the
// reliable signal.
func (t *Tracker) Online(vehicleID uint) bool {
	sh := t.shardFor(vehicleID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.samples[vehicleID]
	if !ok || !s.online {
		return false
	}
	return t.now().Sub(s.observedAt) <= t.staleAfter
}

// LastKnown returns the retained sample, if any.
func (t *Tracker) LastKnown(vehicleID uint) (lat, lon float64, observedAt time.Time, ok bool) {
	sh := t.shardFor(vehicleID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, found := sh.samples[vehicleID]
	if !found {
		return 0, 0, time.Time{}, false
	}
	return s.lat, s.lon, s.observedAt, true
}

// Hint is the navigation answer for a driver's in-progress round.
type Hint struct {
	StopID         uint    `json:"stop_id"`
	StopName       string  `json:"stop_name"`
	DistanceMeters float64 `json:"distance_meters"`
	BearingDegrees float64 `json:"bearing_degrees"`
}

// NextStopHint computes distance and initial bearing from the vehicle's
// current position to the first not-yet-cleaned stop on its assigned route.
// Position comes from the in-memory sample, falling back to the durable
// last-known position after a restart.
func (t *Tracker) NextStopHint(ctx context.Context, vehicleID uint) (*Hint, error) {
	lat, lon, _, ok := t.LastKnown(vehicleID)

	vehicle, err := t.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if vehicle.Latitude == nil || vehicle.Longitude == nil {
			return nil, ErrNoPosition
		}
		lat, lon = *vehicle.Latitude, *vehicle.Longitude
	}
	if vehicle.CurrentRouteID == nil {
		return nil, ErrNoActiveRoute
	}

	route, err := t.store.GetRoute(ctx, *vehicle.CurrentRouteID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrNoActiveRoute
		}
		return nil, err
	}
	if !route.Active {
		return nil, ErrNoActiveRoute
	}

	for _, stop := range route.Dustbins {
		if stop.Status == models.BinClean {
			continue
		}
		return &Hint{
			StopID:         stop.ID,
			StopName:       stop.Name,
			DistanceMeters: Distance(lat, lon, stop.Latitude, stop.Longitude),
			BearingDegrees: Bearing(lat, lon, stop.Latitude, stop.Longitude),
		}, nil
	}
	return nil, ErrNoRemainingStops
}

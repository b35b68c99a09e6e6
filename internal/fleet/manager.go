// Package fleet is the assignment consistency manager. It is the only code
// allowed to mutate the cross-entity link fields (Route.AssignedVehicleID,
// Staff.AssignedVehicleID, Vehicle.CurrentRouteID, Vehicle.CurrentDriverID,
// Dustbin.RouteID); controllers delegate every link mutation here so both
// sides of each link always move together.
package fleet

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
	"waste_tracker/internal/store"
)

// Manager applies link mutations as single transactional units with bounded
// retry on transient store contention.
type Manager struct {
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// inTx runs fn as one atomic unit, retrying a bounded number of times when
// the store reports transient contention. Anything else surfaces as-is.
func (m *Manager) inTx(ctx context.Context, op string, fn func(tx store.Store) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = m.store.InTx(ctx, fn)
		if !apperr.Is(err, apperr.KindUnavailable) {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warn("transient store contention, retrying")
		if attempt < maxAttempts {
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return apperr.Unavailable("canceled while retrying", ctx.Err())
			}
		}
	}
	return err
}

// routeInOffice loads a route and hides it from callers of other offices.
func routeInOffice(ctx context.Context, tx store.Store, officeID, routeID uint) (*models.Route, error) {
	r, err := tx.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if r.OfficeID != officeID {
		return nil, apperr.NotFound("route %d not found", routeID)
	}
	return r, nil
}

func vehicleInOffice(ctx context.Context, tx store.Store, officeID, vehicleID uint) (*models.Vehicle, error) {
	v, err := tx.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.OfficeID != officeID {
		return nil, apperr.NotFound("vehicle %d not found", vehicleID)
	}
	return v, nil
}

func staffInOffice(ctx context.Context, tx store.Store, officeID, staffID uint) (*models.Staff, error) {
	s, err := tx.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if s.OfficeID != officeID {
		return nil, apperr.NotFound("staff %d not found", staffID)
	}
	return s, nil
}

// AssignVehicleToRoute links a vehicle to an active route. If the vehicle is
// already serving a different active route the call fails with a conflict;
// the caller must unassign it there first. Assigning the same pair again is
// a no-op.
func (m *Manager) AssignVehicleToRoute(ctx context.Context, officeID, routeID, vehicleID uint) (*models.Route, *models.Vehicle, error) {
	var (
		route   *models.Route
		vehicle *models.Vehicle
	)
	err := m.inTx(ctx, "assign_vehicle_to_route", func(tx store.Store) error {
		var err error
		route, err = routeInOffice(ctx, tx, officeID, routeID)
		if err != nil {
			return err
		}
		if !route.Active {
			return apperr.Invalid("route %d is inactive", routeID)
		}
		vehicle, err = tx.GetVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.OfficeID != route.OfficeID {
			return apperr.Invalid("vehicle %d belongs to a different office", vehicleID)
		}

		if route.AssignedVehicleID != nil && *route.AssignedVehicleID == vehicleID {
			return nil // already linked
		}

		other, err := tx.FindActiveRouteByVehicle(ctx, vehicleID)
		switch {
		case err == nil && other.ID != routeID:
			return apperr.Conflict("vehicle %d is already assigned to route %d", vehicleID, other.ID)
		case err != nil && !apperr.Is(err, apperr.KindNotFound):
			return err
		}

		// The route may still point at a previous vehicle; release it so the
		// link stays one-to-one.
		if route.AssignedVehicleID != nil {
			prev, err := tx.GetVehicle(ctx, *route.AssignedVehicleID)
			if err == nil {
				prev.CurrentRouteID = nil
				if err := tx.SaveVehicle(ctx, prev); err != nil {
					return err
				}
			} else if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}

		route.AssignedVehicleID = &vehicle.ID
		vehicle.CurrentRouteID = &route.ID
		if err := tx.SaveRoute(ctx, route); err != nil {
			return err
		}
		return tx.SaveVehicle(ctx, vehicle)
	})
	if err != nil {
		return nil, nil, err
	}
	return route, vehicle, nil
}

// UnassignVehicleFromRoute clears both sides of the route-vehicle link.
// Idempotent: an already-unassigned route is a successful no-op.
func (m *Manager) UnassignVehicleFromRoute(ctx context.Context, officeID, routeID uint) (*models.Route, error) {
	var route *models.Route
	err := m.inTx(ctx, "unassign_vehicle_from_route", func(tx store.Store) error {
		var err error
		route, err = routeInOffice(ctx, tx, officeID, routeID)
		if err != nil {
			return err
		}
		if route.AssignedVehicleID == nil {
			return nil
		}
		vehicle, err := tx.GetVehicle(ctx, *route.AssignedVehicleID)
		if err == nil {
			vehicle.CurrentRouteID = nil
			if err := tx.SaveVehicle(ctx, vehicle); err != nil {
				return err
			}
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		route.AssignedVehicleID = nil
		return tx.SaveRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// AssignVehicleToStaff links a vehicle to a driver. Unlike route assignment,
// a vehicle that already has a driver is stolen: the previous holder's link
// is cleared and that staff record is returned so the caller can surface a
// warning.
func (m *Manager) AssignVehicleToStaff(ctx context.Context, officeID, staffID, vehicleID uint) (st *models.Staff, v *models.Vehicle, displaced *models.Staff, err error) {
	err = m.inTx(ctx, "assign_vehicle_to_staff", func(tx store.Store) error {
		displaced = nil
		var err error
		st, err = staffInOffice(ctx, tx, officeID, staffID)
		if err != nil {
			return err
		}
		if st.Role != models.RoleDriver {
			return apperr.Invalid("staff %d is a %s, only drivers take vehicles", staffID, st.Role)
		}
		v, err = tx.GetVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if v.OfficeID != st.OfficeID {
			return apperr.Invalid("vehicle %d belongs to a different office", vehicleID)
		}

		if st.AssignedVehicleID != nil && *st.AssignedVehicleID == vehicleID {
			return nil // already linked
		}

		// Steal from the current holder, if any.
		prev, err := tx.FindStaffByVehicle(ctx, vehicleID)
		if err == nil && prev.ID != staffID {
			prev.AssignedVehicleID = nil
			if err := tx.SaveStaff(ctx, prev); err != nil {
				return err
			}
			displaced = prev
		} else if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		// Release this staff's old vehicle, if any, in both directions.
		if st.AssignedVehicleID != nil {
			old, err := tx.GetVehicle(ctx, *st.AssignedVehicleID)
			if err == nil {
				old.CurrentDriverID = nil
				if err := tx.SaveVehicle(ctx, old); err != nil {
					return err
				}
			} else if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}

		st.AssignedVehicleID = &v.ID
		v.CurrentDriverID = &st.ID
		if err := tx.SaveStaff(ctx, st); err != nil {
			return err
		}
		return tx.SaveVehicle(ctx, v)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return st, v, displaced, nil
}

// UnassignVehicleFromStaff clears both sides of the staff-vehicle link.
// Idempotent.
func (m *Manager) UnassignVehicleFromStaff(ctx context.Context, officeID, staffID uint) (*models.Staff, error) {
	var st *models.Staff
	err := m.inTx(ctx, "unassign_vehicle_from_staff", func(tx store.Store) error {
		var err error
		st, err = staffInOffice(ctx, tx, officeID, staffID)
		if err != nil {
			return err
		}
		if st.AssignedVehicleID == nil {
			return nil
		}
		vehicle, err := tx.GetVehicle(ctx, *st.AssignedVehicleID)
		if err == nil {
			vehicle.CurrentDriverID = nil
			if err := tx.SaveVehicle(ctx, vehicle); err != nil {
				return err
			}
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		st.AssignedVehicleID = nil
		return tx.SaveStaff(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteOfficeCascade removes an office and everything it owns in one unit.
// Readers never see a partially cascaded office.
func (m *Manager) DeleteOfficeCascade(ctx context.Context, officeID uint) error {
	return m.inTx(ctx, "delete_office_cascade", func(tx store.Store) error {
		if _, err := tx.GetOffice(ctx, officeID); err != nil {
			return err
		}
		if err := tx.DeleteDustbinsByOffice(ctx, officeID); err != nil {
			return err
		}
		if err := tx.DeleteVehiclesByOffice(ctx, officeID); err != nil {
			return err
		}
		if err := tx.DeleteRoutesByOffice(ctx, officeID); err != nil {
			return err
		}
		if err := tx.DeleteStaffByOffice(ctx, officeID); err != nil {
			return err
		}
		return tx.DeleteOffice(ctx, officeID)
	})
}

// DeleteVehicle removes a vehicle after clearing every staff and route link
// that points at it.
func (m *Manager) DeleteVehicle(ctx context.Context, officeID, vehicleID uint) error {
	return m.inTx(ctx, "delete_vehicle", func(tx store.Store) error {
		v, err := vehicleInOffice(ctx, tx, officeID, vehicleID)
		if err != nil {
			return err
		}
		st, err := tx.FindStaffByVehicle(ctx, vehicleID)
		if err == nil {
			st.AssignedVehicleID = nil
			if err := tx.SaveStaff(ctx, st); err != nil {
				return err
			}
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		// Inactive routes may still hold the reference, so sweep them all.
		routes, err := tx.ListRoutesByOffice(ctx, officeID)
		if err != nil {
			return err
		}
		for i := range routes {
			r := &routes[i]
			if r.AssignedVehicleID != nil && *r.AssignedVehicleID == vehicleID {
				r.AssignedVehicleID = nil
				if err := tx.SaveRoute(ctx, r); err != nil {
					return err
				}
			}
		}
		return tx.DeleteVehicle(ctx, v.ID)
	})
}

// DeleteRoute removes a route, releasing the linked vehicle and detaching
// the route's stops without deleting the dustbins themselves.
func (m *Manager) DeleteRoute(ctx context.Context, officeID, routeID uint) error {
	return m.inTx(ctx, "delete_route", func(tx store.Store) error {
		r, err := routeInOffice(ctx, tx, officeID, routeID)
		if err != nil {
			return err
		}
		if r.AssignedVehicleID != nil {
			v, err := tx.GetVehicle(ctx, *r.AssignedVehicleID)
			if err == nil {
				v.CurrentRouteID = nil
				if err := tx.SaveVehicle(ctx, v); err != nil {
					return err
				}
			} else if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}
		bins, err := tx.ListDustbinsByRoute(ctx, routeID)
		if err != nil {
			return err
		}
		for i := range bins {
			b := &bins[i]
			b.RouteID = nil
			b.Seq = 0
			if err := tx.SaveDustbin(ctx, b); err != nil {
				return err
			}
		}
		return tx.DeleteRoute(ctx, r.ID)
	})
}

// DeleteStaff removes a staff member, releasing any vehicle that named them
// as its current driver.
func (m *Manager) DeleteStaff(ctx context.Context, officeID, staffID uint) error {
	return m.inTx(ctx, "delete_staff", func(tx store.Store) error {
		st, err := staffInOffice(ctx, tx, officeID, staffID)
		if err != nil {
			return err
		}
		if st.AssignedVehicleID != nil {
			v, err := tx.GetVehicle(ctx, *st.AssignedVehicleID)
			if err == nil {
				v.CurrentDriverID = nil
				if err := tx.SaveVehicle(ctx, v); err != nil {
					return err
				}
			} else if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}
		return tx.DeleteStaff(ctx, st.ID)
	})
}

// AttachDustbinToRoute places a dustbin on a route at the given position in
// the visit order. Both must belong to the caller's office.
func (m *Manager) AttachDustbinToRoute(ctx context.Context, officeID, routeID, dustbinID uint, seq int) (*models.Dustbin, error) {
	var bin *models.Dustbin
	err := m.inTx(ctx, "attach_dustbin_to_route", func(tx store.Store) error {
		r, err := routeInOffice(ctx, tx, officeID, routeID)
		if err != nil {
			return err
		}
		bin, err = tx.GetDustbin(ctx, dustbinID)
		if err != nil {
			return err
		}
		if bin.OfficeID != r.OfficeID {
			return apperr.NotFound("dustbin %d not found", dustbinID)
		}
		if seq <= 0 {
			// Append at the end of the visit order.
			bins, err := tx.ListDustbinsByRoute(ctx, routeID)
			if err != nil {
				return err
			}
			seq = 1
			if n := len(bins); n > 0 {
				seq = bins[n-1].Seq + 1
			}
		}
		bin.RouteID = &r.ID
		bin.Seq = seq
		return tx.SaveDustbin(ctx, bin)
	})
	if err != nil {
		return nil, err
	}
	return bin, nil
}

// DetachDustbinFromRoute removes a dustbin from its route. Idempotent.
func (m *Manager) DetachDustbinFromRoute(ctx context.Context, officeID, dustbinID uint) (*models.Dustbin, error) {
	var bin *models.Dustbin
	err := m.inTx(ctx, "detach_dustbin_from_route", func(tx store.Store) error {
		var err error
		bin, err = tx.GetDustbin(ctx, dustbinID)
		if err != nil {
			return err
		}
		if bin.OfficeID != officeID {
			return apperr.NotFound("dustbin %d not found", dustbinID)
		}
		if bin.RouteID == nil {
			return nil
		}
		bin.RouteID = nil
		bin.Seq = 0
		return tx.SaveDustbin(ctx, bin)
	})
	if err != nil {
		return nil, err
	}
	return bin, nil
}

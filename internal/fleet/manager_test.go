package fleet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
	"waste_tracker/internal/store"
)

type env struct {
	db      *store.Memory
	manager *Manager
	office  *models.Office
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := store.NewMemory()
	office := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 12",
		AdminName: "A Sharma", AdminEmail: "ward12@example.com",
		Username: "ward12@example.com", Password: "x", Status: models.OfficeActive,
	}
	require.NoError(t, db.CreateOffice(context.Background(), office))
	return &env{db: db, manager: NewManager(db), office: office}
}

func (e *env) vehicle(t *testing.T, number string) *models.Vehicle {
	t.Helper()
	v := &models.Vehicle{
		OfficeID: e.office.ID, VehicleNumber: number,
		Type: "compactor", Status: models.VehicleActive,
	}
	require.NoError(t, e.db.CreateVehicle(context.Background(), v))
	return v
}

func (e *env) route(t *testing.T, name string, active bool) *models.Route {
	t.Helper()
	r := &models.Route{OfficeID: e.office.ID, Name: name, Active: active}
	require.NoError(t, e.db.CreateRoute(context.Background(), r))
	return r
}

func (e *env) staff(t *testing.T, name, role, phone string) *models.Staff {
	t.Helper()
	s := &models.Staff{
		OfficeID: e.office.ID, Name: name, Role: role,
		Phone: phone, Username: phone, Password: "x", Active: true,
	}
	require.NoError(t, e.db.CreateStaff(context.Background(), s))
	return s
}

func (e *env) dustbin(t *testing.T, name string, routeID *uint, seq int) *models.Dustbin {
	t.Helper()
	b := &models.Dustbin{
		OfficeID: e.office.ID, RouteID: routeID, Seq: seq, Name: name,
		Latitude: 23.26, Longitude: 77.41, Status: models.BinClean, Active: true,
	}
	require.NoError(t, e.db.CreateDustbin(context.Background(), b))
	return b
}

func TestAssignVehicleToRouteLinksBothSides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)

	route, vehicle, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.NoError(t, err)
	require.NotNil(t, route.AssignedVehicleID)
	require.Equal(t, v.ID, *route.AssignedVehicleID)
	require.NotNil(t, vehicle.CurrentRouteID)
	require.Equal(t, r.ID, *vehicle.CurrentRouteID)

	// Same pair again is a quiet no-op.
	_, _, err = e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.NoError(t, err)
}

func TestAssignVehicleToRouteConflictsOnSecondActiveRoute(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r1 := e.route(t, "Morning Round", true)
	r2 := e.route(t, "Evening Round", true)

	_, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r1.ID, v.ID)
	require.NoError(t, err)

	_, _, err = e.manager.AssignVehicleToRoute(ctx, e.office.ID, r2.ID, v.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// After unassigning from the first route the second accepts it.
	_, err = e.manager.UnassignVehicleFromRoute(ctx, e.office.ID, r1.ID)
	require.NoError(t, err)
	route, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r2.ID, v.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, *route.AssignedVehicleID)
}

func TestAssignVehicleToRouteRejectsInactiveRoute(t *testing.T) {
	e := newEnv(t)
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Retired Round", false)

	_, _, err := e.manager.AssignVehicleToRoute(context.Background(), e.office.ID, r.ID, v.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestAssignVehicleToRouteReleasesPreviousVehicle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v1 := e.vehicle(t, "MP04-AB-1234")
	v2 := e.vehicle(t, "MP04-CD-5678")
	r := e.route(t, "Morning Round", true)

	_, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v1.ID)
	require.NoError(t, err)
	_, _, err = e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v2.ID)
	require.NoError(t, err)

	old, err := e.db.GetVehicle(ctx, v1.ID)
	require.NoError(t, err)
	require.Nil(t, old.CurrentRouteID)
}

func TestAssignVehicleToRouteOtherOffice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 13",
		AdminName: "B Verma", AdminEmail: "ward13@example.com",
		Username: "ward13@example.com", Password: "x", Status: models.OfficeActive,
	}
	require.NoError(t, e.db.CreateOffice(ctx, other))
	foreign := &models.Vehicle{
		OfficeID: other.ID, VehicleNumber: "MP04-ZZ-0001",
		Type: "compactor", Status: models.VehicleActive,
	}
	require.NoError(t, e.db.CreateVehicle(ctx, foreign))
	r := e.route(t, "Morning Round", true)

	_, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, foreign.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	// A route addressed through the wrong office is simply not found.
	_, _, err = e.manager.AssignVehicleToRoute(ctx, other.ID, r.ID, foreign.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUnassignVehicleFromRouteIsIdempotent(t *testing.T) {
	e := newEnv(t)
	r := e.route(t, "Morning Round", true)

	route, err := e.manager.UnassignVehicleFromRoute(context.Background(), e.office.ID, r.ID)
	require.NoError(t, err)
	require.Nil(t, route.AssignedVehicleID)
}

func TestAssignVehicleToStaffStealsFromPreviousDriver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	s1 := e.staff(t, "Ramesh", models.RoleDriver, "9876543210")
	s2 := e.staff(t, "Suresh", models.RoleDriver, "9876500000")

	_, _, displaced, err := e.manager.AssignVehicleToStaff(ctx, e.office.ID, s1.ID, v.ID)
	require.NoError(t, err)
	require.Nil(t, displaced)

	st, vehicle, displaced, err := e.manager.AssignVehicleToStaff(ctx, e.office.ID, s2.ID, v.ID)
	require.NoError(t, err)
	require.NotNil(t, displaced)
	require.Equal(t, s1.ID, displaced.ID)
	require.Equal(t, v.ID, *st.AssignedVehicleID)
	require.Equal(t, s2.ID, *vehicle.CurrentDriverID)

	prev, err := e.db.GetStaff(ctx, s1.ID)
	require.NoError(t, err)
	require.Nil(t, prev.AssignedVehicleID)
}

func TestAssignVehicleToStaffRejectsNonDriver(t *testing.T) {
	e := newEnv(t)
	v := e.vehicle(t, "MP04-AB-1234")
	helper := e.staff(t, "Mukesh", models.RoleHelper, "9876511111")

	_, _, _, err := e.manager.AssignVehicleToStaff(context.Background(), e.office.ID, helper.ID, v.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestAssignVehicleToStaffReleasesOldVehicle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v1 := e.vehicle(t, "MP04-AB-1234")
	v2 := e.vehicle(t, "MP04-CD-5678")
	s := e.staff(t, "Ramesh", models.RoleDriver, "9876543210")

	_, _, _, err := e.manager.AssignVehicleToStaff(ctx, e.office.ID, s.ID, v1.ID)
	require.NoError(t, err)
	_, _, _, err = e.manager.AssignVehicleToStaff(ctx, e.office.ID, s.ID, v2.ID)
	require.NoError(t, err)

	old, err := e.db.GetVehicle(ctx, v1.ID)
	require.NoError(t, err)
	require.Nil(t, old.CurrentDriverID)
}

func TestDeleteVehicleClearsAllLinks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)
	s := e.staff(t, "Ramesh", models.RoleDriver, "9876543210")

	_, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.NoError(t, err)
	_, _, _, err = e.manager.AssignVehicleToStaff(ctx, e.office.ID, s.ID, v.ID)
	require.NoError(t, err)

	require.NoError(t, e.manager.DeleteVehicle(ctx, e.office.ID, v.ID))

	_, err = e.db.GetVehicle(ctx, v.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	route, err := e.db.GetRoute(ctx, r.ID)
	require.NoError(t, err)
	require.Nil(t, route.AssignedVehicleID)
	staff, err := e.db.GetStaff(ctx, s.ID)
	require.NoError(t, err)
	require.Nil(t, staff.AssignedVehicleID)
}

func TestDeleteRouteDetachesStopsAndReleasesVehicle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)
	b1 := e.dustbin(t, "Market Corner", &r.ID, 1)
	b2 := e.dustbin(t, "Temple Road", &r.ID, 2)

	_, _, err := e.manager.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.NoError(t, err)

	require.NoError(t, e.manager.DeleteRoute(ctx, e.office.ID, r.ID))

	_, err = e.db.GetRoute(ctx, r.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	vehicle, err := e.db.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Nil(t, vehicle.CurrentRouteID)
	for _, id := range []uint{b1.ID, b2.ID} {
		bin, err := e.db.GetDustbin(ctx, id)
		require.NoError(t, err)
		require.Nil(t, bin.RouteID)
		require.Zero(t, bin.Seq)
	}
}

func TestDeleteStaffReleasesVehicle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	s := e.staff(t, "Ramesh", models.RoleDriver, "9876543210")

	_, _, _, err := e.manager.AssignVehicleToStaff(ctx, e.office.ID, s.ID, v.ID)
	require.NoError(t, err)

	require.NoError(t, e.manager.DeleteStaff(ctx, e.office.ID, s.ID))

	vehicle, err := e.db.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Nil(t, vehicle.CurrentDriverID)
}

func TestDeleteOfficeCascade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)
	s := e.staff(t, "Ramesh", models.RoleDriver, "9876543210")
	b := e.dustbin(t, "Market Corner", &r.ID, 1)

	require.NoError(t, e.manager.DeleteOfficeCascade(ctx, e.office.ID))

	_, err := e.db.GetOffice(ctx, e.office.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = e.db.GetVehicle(ctx, v.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = e.db.GetRoute(ctx, r.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = e.db.GetStaff(ctx, s.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = e.db.GetDustbin(ctx, b.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteOfficeCascadeUnknownOffice(t *testing.T) {
	e := newEnv(t)
	err := e.manager.DeleteOfficeCascade(context.Background(), 9999)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAttachDustbinAppendsWhenSeqOmitted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.route(t, "Morning Round", true)
	e.dustbin(t, "Market Corner", &r.ID, 1)
	e.dustbin(t, "Temple Road", &r.ID, 2)
	loose := e.dustbin(t, "Bus Depot", nil, 0)

	bin, err := e.manager.AttachDustbinToRoute(ctx, e.office.ID, r.ID, loose.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, bin.RouteID)
	require.Equal(t, r.ID, *bin.RouteID)
	require.Equal(t, 3, bin.Seq)
}

func TestDetachDustbinIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.route(t, "Morning Round", true)
	b := e.dustbin(t, "Market Corner", &r.ID, 1)

	bin, err := e.manager.DetachDustbinFromRoute(ctx, e.office.ID, b.ID)
	require.NoError(t, err)
	require.Nil(t, bin.RouteID)

	bin, err = e.manager.DetachDustbinFromRoute(ctx, e.office.ID, b.ID)
	require.NoError(t, err)
	require.Nil(t, bin.RouteID)
}

// flakyStore fails the first n transactions with a transient error.
type flakyStore struct {
	*store.Memory
	failures int
}

func (f *flakyStore) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if f.failures > 0 {
		f.failures--
		return apperr.Unavailable("simulated contention", nil)
	}
	return f.Memory.InTx(ctx, fn)
}

func TestManagerRetriesTransientFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)

	flaky := &flakyStore{Memory: e.db, failures: 2}
	m := NewManager(flaky)

	route, _, err := m.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, *route.AssignedVehicleID)
}

func TestManagerGivesUpAfterBoundedRetries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r := e.route(t, "Morning Round", true)

	flaky := &flakyStore{Memory: e.db, failures: 10}
	m := NewManager(flaky)

	_, _, err := m.AssignVehicleToRoute(ctx, e.office.ID, r.ID, v.ID)
	require.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestConcurrentRouteAssignmentOnlyOneWins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.vehicle(t, "MP04-AB-1234")
	r1 := e.route(t, "Morning Round", true)
	r2 := e.route(t, "Evening Round", true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, rid := range []uint{r1.ID, r2.ID} {
		wg.Add(1)
		go func(i int, rid uint) {
			defer wg.Done()
			_, _, errs[i] = e.manager.AssignVehicleToRoute(ctx, e.office.ID, rid, v.ID)
		}(i, rid)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, conflict)

	vehicle, err := e.db.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, vehicle.CurrentRouteID)
}

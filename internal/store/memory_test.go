package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
)

func seedOffice(t *testing.T, m *Memory) *models.Office {
	t.Helper()
	o := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 12",
		AdminName: "A Sharma", AdminEmail: "ward12@example.com",
		Username: "ward12@example.com", Password: "x", Status: models.OfficeActive,
	}
	require.NoError(t, m.CreateOffice(context.Background(), o))
	return o
}

func TestMemoryTxRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	boom := errors.New("boom")
	err := m.InTx(ctx, func(tx Store) error {
		v := &models.Vehicle{OfficeID: office.ID, VehicleNumber: "MP04-AB-1234", Type: "compactor", Status: models.VehicleActive}
		if err := tx.CreateVehicle(ctx, v); err != nil {
			return err
		}
		r := &models.Route{OfficeID: office.ID, Name: "Morning Round", Active: true}
		if err := tx.CreateRoute(ctx, r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	vehicles, err := m.ListVehiclesByOffice(ctx, office.ID)
	require.NoError(t, err)
	require.Empty(t, vehicles)
	routes, err := m.ListRoutesByOffice(ctx, office.ID)
	require.NoError(t, err)
	require.Empty(t, routes)
}

func TestMemoryTxCommits(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	err := m.InTx(ctx, func(tx Store) error {
		v := &models.Vehicle{OfficeID: office.ID, VehicleNumber: "MP04-AB-1234", Type: "compactor", Status: models.VehicleActive}
		return tx.CreateVehicle(ctx, v)
	})
	require.NoError(t, err)

	vehicles, err := m.ListVehiclesByOffice(ctx, office.ID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
}

func TestMemoryUniqueOfficeUsername(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedOffice(t, m)

	dup := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 13",
		AdminName: "B Verma", AdminEmail: "ward12@example.com",
		Username: "ward12@example.com", Password: "x", Status: models.OfficeActive,
	}
	err := m.CreateOffice(ctx, dup)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestMemoryUniqueVehicleNumberPerOffice(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	v := &models.Vehicle{OfficeID: office.ID, VehicleNumber: "MP04-AB-1234", Type: "compactor", Status: models.VehicleActive}
	require.NoError(t, m.CreateVehicle(ctx, v))

	dup := &models.Vehicle{OfficeID: office.ID, VehicleNumber: "MP04-AB-1234", Type: "tipper", Status: models.VehicleActive}
	err := m.CreateVehicle(ctx, dup)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Same number under a different office is fine.
	other := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 13",
		AdminName: "B Verma", AdminEmail: "ward13@example.com",
		Username: "ward13@example.com", Password: "x", Status: models.OfficeActive,
	}
	require.NoError(t, m.CreateOffice(ctx, other))
	elsewhere := &models.Vehicle{OfficeID: other.ID, VehicleNumber: "MP04-AB-1234", Type: "compactor", Status: models.VehicleActive}
	require.NoError(t, m.CreateVehicle(ctx, elsewhere))
}

func TestMemoryUniqueStaffPhone(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	s := &models.Staff{OfficeID: office.ID, Name: "Ramesh", Role: models.RoleDriver, Phone: "9876543210", Username: "9876543210", Password: "x", Active: true}
	require.NoError(t, m.CreateStaff(ctx, s))

	dup := &models.Staff{OfficeID: office.ID, Name: "Suresh", Role: models.RoleDriver, Phone: "9876543210", Username: "9876543210", Password: "x", Active: true}
	err := m.CreateStaff(ctx, dup)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestMemoryGetRouteLoadsStopsInVisitOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	r := &models.Route{OfficeID: office.ID, Name: "Morning Round", Active: true}
	require.NoError(t, m.CreateRoute(ctx, r))

	for _, stop := range []struct {
		name string
		seq  int
	}{{"Bus Depot", 3}, {"Market Corner", 1}, {"Temple Road", 2}} {
		b := &models.Dustbin{
			OfficeID: office.ID, RouteID: &r.ID, Seq: stop.seq, Name: stop.name,
			Latitude: 23.26, Longitude: 77.41, Status: models.BinClean, Active: true,
		}
		require.NoError(t, m.CreateDustbin(ctx, b))
	}

	got, err := m.GetRoute(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.Dustbins, 3)
	require.Equal(t, "Market Corner", got.Dustbins[0].Name)
	require.Equal(t, "Temple Road", got.Dustbins[1].Name)
	require.Equal(t, "Bus Depot", got.Dustbins[2].Name)
}

func TestMemoryUpdateVehiclePosition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	v := &models.Vehicle{OfficeID: office.ID, VehicleNumber: "MP04-AB-1234", Type: "compactor", Status: models.VehicleActive}
	require.NoError(t, m.CreateVehicle(ctx, v))

	at := time.Now()
	require.NoError(t, m.UpdateVehiclePosition(ctx, v.ID, 23.2599, 77.4126, at))

	got, err := m.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Latitude)
	require.Equal(t, 23.2599, *got.Latitude)
	require.True(t, got.IsOnline)
	require.NotNil(t, got.LocationUpdatedAt)

	err = m.UpdateVehiclePosition(ctx, 9999, 23.26, 77.41, at)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	office := seedOffice(t, m)

	got, err := m.GetOffice(ctx, office.ID)
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := m.GetOffice(ctx, office.ID)
	require.NoError(t, err)
	require.Equal(t, "Ward 12", again.Name)
}

// Package store is the entity store boundary. The fleet manager and the
// tracker only see this interface; the gorm implementation backs production
// and the in-memory implementation backs tests and local development.
package store

import (
	"context"
	"time"

	"waste_tracker/internal/models"
)

// Store is the durable record set for offices, staff, vehicles, routes and
// dustbins. Lookup methods scoped "ByOffice" never return entities of other
// offices; Get methods are unscoped and callers check ownership.
type Store interface {
	// InTx runs fn against a transactional view of the store. Everything fn
	// writes becomes visible atomically on nil return and not at all
	// otherwise. Rows read inside fn are locked against concurrent writers
	// until the unit finishes.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateOffice(ctx context.Context, o *models.Office) error
	GetOffice(ctx context.Context, id uint) (*models.Office, error)
	GetOfficeByUsername(ctx context.Context, username string) (*models.Office, error)
	ListOffices(ctx context.Context) ([]models.Office, error)
	SaveOffice(ctx context.Context, o *models.Office) error
	DeleteOffice(ctx context.Context, id uint) error

	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error)
	ListVehiclesByOffice(ctx context.Context, officeID uint) ([]models.Vehicle, error)
	SaveVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id uint) error
	DeleteVehiclesByOffice(ctx context.Context, officeID uint) error
	// UpdateVehiclePosition writes the last-known position in one statement;
	// the tracker calls it on every accepted sample.
	UpdateVehiclePosition(ctx context.Context, id uint, lat, lon float64, at time.Time) error
	SetVehicleOnline(ctx context.Context, id uint, online bool, seen time.Time) error

	CreateStaff(ctx context.Context, s *models.Staff) error
	GetStaff(ctx context.Context, id uint) (*models.Staff, error)
	GetStaffByUsername(ctx context.Context, username string) (*models.Staff, error)
	ListStaffByOffice(ctx context.Context, officeID uint) ([]models.Staff, error)
	// FindStaffByVehicle returns the staff whose AssignedVehicleID is the
	// given vehicle, or NotFound.
	FindStaffByVehicle(ctx context.Context, vehicleID uint) (*models.Staff, error)
	SaveStaff(ctx context.Context, s *models.Staff) error
	DeleteStaff(ctx context.Context, id uint) error
	DeleteStaffByOffice(ctx context.Context, officeID uint) error

	CreateRoute(ctx context.Context, r *models.Route) error
	// GetRoute loads the route with its stops in visit order.
	GetRoute(ctx context.Context, id uint) (*models.Route, error)
	ListRoutesByOffice(ctx context.Context, officeID uint) ([]models.Route, error)
	// FindActiveRouteByVehicle returns the active route whose
	// AssignedVehicleID is the given vehicle, or NotFound.
	FindActiveRouteByVehicle(ctx context.Context, vehicleID uint) (*models.Route, error)
	SaveRoute(ctx context.Context, r *models.Route) error
	DeleteRoute(ctx context.Context, id uint) error
	DeleteRoutesByOffice(ctx context.Context, officeID uint) error

	CreateDustbin(ctx context.Context, d *models.Dustbin) error
	GetDustbin(ctx context.Context, id uint) (*models.Dustbin, error)
	ListDustbinsByOffice(ctx context.Context, officeID uint) ([]models.Dustbin, error)
	// ListDustbinsByRoute returns the route's stops ordered by Seq.
	ListDustbinsByRoute(ctx context.Context, routeID uint) ([]models.Dustbin, error)
	SaveDustbin(ctx context.Context, d *models.Dustbin) error
	DeleteDustbin(ctx context.Context, id uint) error
	DeleteDustbinsByOffice(ctx context.Context, officeID uint) error

	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, a *models.Admin) error
}

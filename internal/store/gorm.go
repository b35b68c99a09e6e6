package store

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
)

// sqlStater is implemented by pgx/pgconn errors; lib/pq carries the code on
// the struct instead. Both are checked so either postgres driver works.
type sqlStater interface{ SQLState() string }

// NewGorm wraps a gorm handle in the Store interface.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// InTx runs fn inside a database transaction. Reads inside the transaction
// take row locks (SELECT ... FOR UPDATE) so concurrent link mutations on the
// same rows serialize instead of interleaving.
func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s) // already transactional; join the outer unit
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	})
	return translate(err)
}

// scope applies context and, inside a transaction, pessimistic row locking.
func (s *gormStore) scope(ctx context.Context) *gorm.DB {
	db := s.db.WithContext(ctx)
	if s.inTx {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// translate maps driver errors onto the apperr taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "record not found", err)
	}
	code := ""
	if pqErr, ok := err.(*pq.Error); ok {
		code = string(pqErr.Code)
	} else {
		var st sqlStater
		if errors.As(err, &st) {
			code = st.SQLState()
		}
	}
	switch code {
	case "23505": // unique violation
		return apperr.Wrap(apperr.KindConflict, "duplicate value", err)
	case "40001", "40P01": // serialization failure, deadlock
		return apperr.Unavailable("store contention", err)
	}
	return apperr.Unavailable("store error", err)
}

// --- offices ---

func (s *gormStore) CreateOffice(ctx context.Context, o *models.Office) error {
	return translate(s.db.WithContext(ctx).Create(o).Error)
}

func (s *gormStore) GetOffice(ctx context.Context, id uint) (*models.Office, error) {
	var o models.Office
	if err := s.scope(ctx).First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *gormStore) GetOfficeByUsername(ctx context.Context, username string) (*models.Office, error) {
	var o models.Office
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *gormStore) ListOffices(ctx context.Context) ([]models.Office, error) {
	var offices []models.Office
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&offices).Error; err != nil {
		return nil, translate(err)
	}
	return offices, nil
}

func (s *gormStore) SaveOffice(ctx context.Context, o *models.Office) error {
	return translate(s.db.WithContext(ctx).Save(o).Error)
}

func (s *gormStore) DeleteOffice(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Office{}, id).Error)
}

// --- vehicles ---

func (s *gormStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *gormStore) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.scope(ctx).First(&v, id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *gormStore) ListVehiclesByOffice(ctx context.Context, officeID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := s.db.WithContext(ctx).Where("office_id = ?", officeID).Order("created_at desc").Find(&vehicles).Error; err != nil {
		return nil, translate(err)
	}
	return vehicles, nil
}

func (s *gormStore) SaveVehicle(ctx context.Context, v *models.Vehicle) error {
	return translate(s.db.WithContext(ctx).Save(v).Error)
}

func (s *gormStore) DeleteVehicle(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Vehicle{}, id).Error)
}

func (s *gormStore) DeleteVehiclesByOffice(ctx context.Context, officeID uint) error {
	return translate(s.db.WithContext(ctx).Where("office_id = ?", officeID).Delete(&models.Vehicle{}).Error)
}

func (s *gormStore) UpdateVehiclePosition(ctx context.Context, id uint, lat, lon float64, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).Updates(map[string]any{
		"latitude":            lat,
		"longitude":           lon,
		"location_updated_at": at,
		"is_online":           true,
		"last_seen":           at,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("vehicle %d not found", id)
	}
	return nil
}

func (s *gormStore) SetVehicleOnline(ctx context.Context, id uint, online bool, seen time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).Updates(map[string]any{
		"is_online": online,
		"last_seen": seen,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("vehicle %d not found", id)
	}
	return nil
}

// --- staff ---

func (s *gormStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	return translate(s.db.WithContext(ctx).Create(st).Error)
}

func (s *gormStore) GetStaff(ctx context.Context, id uint) (*models.Staff, error) {
	var st models.Staff
	if err := s.scope(ctx).First(&st, id).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *gormStore) GetStaffByUsername(ctx context.Context, username string) (*models.Staff, error) {
	var st models.Staff
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *gormStore) ListStaffByOffice(ctx context.Context, officeID uint) ([]models.Staff, error) {
	var staff []models.Staff
	if err := s.db.WithContext(ctx).Where("office_id = ?", officeID).Order("created_at desc").Find(&staff).Error; err != nil {
		return nil, translate(err)
	}
	return staff, nil
}

func (s *gormStore) FindStaffByVehicle(ctx context.Context, vehicleID uint) (*models.Staff, error) {
	var st models.Staff
	if err := s.scope(ctx).Where("assigned_vehicle_id = ?", vehicleID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *gormStore) SaveStaff(ctx context.Context, st *models.Staff) error {
	return translate(s.db.WithContext(ctx).Save(st).Error)
}

func (s *gormStore) DeleteStaff(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Staff{}, id).Error)
}

func (s *gormStore) DeleteStaffByOffice(ctx context.Context, officeID uint) error {
	return translate(s.db.WithContext(ctx).Where("office_id = ?", officeID).Delete(&models.Staff{}).Error)
}

// --- routes ---

func (s *gormStore) CreateRoute(ctx context.Context, r *models.Route) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *gormStore) GetRoute(ctx context.Context, id uint) (*models.Route, error) {
	var r models.Route
	err := s.scope(ctx).
		Preload("Dustbins", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&r, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *gormStore) ListRoutesByOffice(ctx context.Context, officeID uint) ([]models.Route, error) {
	var routes []models.Route
	err := s.db.WithContext(ctx).
		Preload("Dustbins", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("office_id = ?", officeID).Order("created_at desc").Find(&routes).Error
	if err != nil {
		return nil, translate(err)
	}
	return routes, nil
}

func (s *gormStore) FindActiveRouteByVehicle(ctx context.Context, vehicleID uint) (*models.Route, error) {
	var r models.Route
	if err := s.scope(ctx).Where("assigned_vehicle_id = ? AND active = ?", vehicleID, true).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *gormStore) SaveRoute(ctx context.Context, r *models.Route) error {
	return translate(s.db.WithContext(ctx).Omit("Dustbins").Save(r).Error)
}

func (s *gormStore) DeleteRoute(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Route{}, id).Error)
}

func (s *gormStore) DeleteRoutesByOffice(ctx context.Context, officeID uint) error {
	return translate(s.db.WithContext(ctx).Where("office_id = ?", officeID).Delete(&models.Route{}).Error)
}

// --- dustbins ---

func (s *gormStore) CreateDustbin(ctx context.Context, d *models.Dustbin) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

func (s *gormStore) GetDustbin(ctx context.Context, id uint) (*models.Dustbin, error) {
	var d models.Dustbin
	if err := s.scope(ctx).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *gormStore) ListDustbinsByOffice(ctx context.Context, officeID uint) ([]models.Dustbin, error) {
	var bins []models.Dustbin
	if err := s.db.WithContext(ctx).Where("office_id = ?", officeID).Order("created_at desc").Find(&bins).Error; err != nil {
		return nil, translate(err)
	}
	return bins, nil
}

func (s *gormStore) ListDustbinsByRoute(ctx context.Context, routeID uint) ([]models.Dustbin, error) {
	var bins []models.Dustbin
	if err := s.db.WithContext(ctx).Where("route_id = ?", routeID).Order("seq ASC").Find(&bins).Error; err != nil {
		return nil, translate(err)
	}
	return bins, nil
}

func (s *gormStore) SaveDustbin(ctx context.Context, d *models.Dustbin) error {
	return translate(s.db.WithContext(ctx).Save(d).Error)
}

func (s *gormStore) DeleteDustbin(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Dustbin{}, id).Error)
}

func (s *gormStore) DeleteDustbinsByOffice(ctx context.Context, officeID uint) error {
	return translate(s.db.WithContext(ctx).Where("office_id = ?", officeID).Delete(&models.Dustbin{}).Error)
}

// --- admins ---

func (s *gormStore) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *gormStore) CreateAdmin(ctx context.Context, a *models.Admin) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

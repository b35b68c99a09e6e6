package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/models"
)

// Memory is an in-process Store used by the test suites and as a database-free
// development backend. A single mutex serializes every transactional unit,
// which trivially satisfies the per-entity atomicity contract; InTx keeps a
// snapshot and restores it on error so failed units leave nothing behind.
type Memory struct {
	mu sync.Mutex
	d  *memData
}

type memData struct {
	seq      uint
	offices  map[uint]models.Office
	vehicles map[uint]models.Vehicle
	staff    map[uint]models.Staff
	routes   map[uint]models.Route
	dustbins map[uint]models.Dustbin
	admins   map[uint]models.Admin
}

func NewMemory() *Memory {
	return &Memory{d: &memData{
		offices:  make(map[uint]models.Office),
		vehicles: make(map[uint]models.Vehicle),
		staff:    make(map[uint]models.Staff),
		routes:   make(map[uint]models.Route),
		dustbins: make(map[uint]models.Dustbin),
		admins:   make(map[uint]models.Admin),
	}}
}

func (m *Memory) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.d.clone()
	if err := fn(&memTx{d: m.d}); err != nil {
		*m.d = *snap
		return err
	}
	return nil
}

// memTx is the view handed to InTx callbacks; it reuses the same data under
// the already-held lock.
type memTx struct{ d *memData }

func (t *memTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:      d.seq,
		offices:  make(map[uint]models.Office, len(d.offices)),
		vehicles: make(map[uint]models.Vehicle, len(d.vehicles)),
		staff:    make(map[uint]models.Staff, len(d.staff)),
		routes:   make(map[uint]models.Route, len(d.routes)),
		dustbins: make(map[uint]models.Dustbin, len(d.dustbins)),
		admins:   make(map[uint]models.Admin, len(d.admins)),
	}
	for k, v := range d.offices {
		c.offices[k] = v
	}
	for k, v := range d.vehicles {
		c.vehicles[k] = copyVehicle(v)
	}
	for k, v := range d.staff {
		c.staff[k] = copyStaff(v)
	}
	for k, v := range d.routes {
		c.routes[k] = copyRoute(v)
	}
	for k, v := range d.dustbins {
		c.dustbins[k] = copyDustbin(v)
	}
	for k, v := range d.admins {
		c.admins[k] = v
	}
	return c
}

// Entities hold pointer fields; every boundary crossing copies them so a
// caller can never alias store-internal state.

func uintPtr(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func floatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func timePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyVehicle(v models.Vehicle) models.Vehicle {
	v.CurrentRouteID = uintPtr(v.CurrentRouteID)
	v.CurrentDriverID = uintPtr(v.CurrentDriverID)
	v.Latitude = floatPtr(v.Latitude)
	v.Longitude = floatPtr(v.Longitude)
	v.LocationUpdatedAt = timePtr(v.LocationUpdatedAt)
	v.LastSeen = timePtr(v.LastSeen)
	return v
}

func copyStaff(s models.Staff) models.Staff {
	s.AssignedVehicleID = uintPtr(s.AssignedVehicleID)
	return s
}

func copyRoute(r models.Route) models.Route {
	r.AssignedVehicleID = uintPtr(r.AssignedVehicleID)
	r.Dustbins = nil
	return r
}

func copyDustbin(d models.Dustbin) models.Dustbin {
	d.RouteID = uintPtr(d.RouteID)
	d.LastCleanedAt = timePtr(d.LastCleanedAt)
	return d
}

func (d *memData) nextID() uint {
	d.seq++
	return d.seq
}

// --- offices ---

func (d *memData) createOffice(o *models.Office) error {
	for _, e := range d.offices {
		if e.Username == o.Username || e.AdminEmail == o.AdminEmail {
			return apperr.Conflict("office username or email already registered")
		}
	}
	o.ID = d.nextID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Staff, cp.Vehicles, cp.Routes, cp.Dustbins = nil, nil, nil, nil
	d.offices[o.ID] = cp
	return nil
}

func (d *memData) getOffice(id uint) (*models.Office, error) {
	o, ok := d.offices[id]
	if !ok {
		return nil, apperr.NotFound("office %d not found", id)
	}
	return &o, nil
}

func (d *memData) saveOffice(o *models.Office) error {
	if _, ok := d.offices[o.ID]; !ok {
		return apperr.NotFound("office %d not found", o.ID)
	}
	o.UpdatedAt = time.Now()
	cp := *o
	cp.Staff, cp.Vehicles, cp.Routes, cp.Dustbins = nil, nil, nil, nil
	d.offices[o.ID] = cp
	return nil
}

// --- vehicles ---

func (d *memData) createVehicle(v *models.Vehicle) error {
	for _, e := range d.vehicles {
		if e.OfficeID == v.OfficeID && e.VehicleNumber == v.VehicleNumber {
			return apperr.Conflict("vehicle number %s already registered", v.VehicleNumber)
		}
	}
	v.ID = d.nextID()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	d.vehicles[v.ID] = copyVehicle(*v)
	return nil
}

func (d *memData) getVehicle(id uint) (*models.Vehicle, error) {
	v, ok := d.vehicles[id]
	if !ok {
		return nil, apperr.NotFound("vehicle %d not found", id)
	}
	v = copyVehicle(v)
	return &v, nil
}

func (d *memData) saveVehicle(v *models.Vehicle) error {
	if _, ok := d.vehicles[v.ID]; !ok {
		return apperr.NotFound("vehicle %d not found", v.ID)
	}
	for _, e := range d.vehicles {
		if e.ID != v.ID && e.OfficeID == v.OfficeID && e.VehicleNumber == v.VehicleNumber {
			return apperr.Conflict("vehicle number %s already registered", v.VehicleNumber)
		}
	}
	v.UpdatedAt = time.Now()
	d.vehicles[v.ID] = copyVehicle(*v)
	return nil
}

// --- staff ---

func (d *memData) createStaff(s *models.Staff) error {
	for _, e := range d.staff {
		if e.Phone == s.Phone {
			return apperr.Conflict("phone %s already registered", s.Phone)
		}
	}
	s.ID = d.nextID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	d.staff[s.ID] = copyStaff(*s)
	return nil
}

func (d *memData) getStaff(id uint) (*models.Staff, error) {
	s, ok := d.staff[id]
	if !ok {
		return nil, apperr.NotFound("staff %d not found", id)
	}
	s = copyStaff(s)
	return &s, nil
}

func (d *memData) saveStaff(s *models.Staff) error {
	if _, ok := d.staff[s.ID]; !ok {
		return apperr.NotFound("staff %d not found", s.ID)
	}
	for _, e := range d.staff {
		if e.ID != s.ID && e.Phone == s.Phone {
			return apperr.Conflict("phone %s already registered", s.Phone)
		}
	}
	s.UpdatedAt = time.Now()
	d.staff[s.ID] = copyStaff(*s)
	return nil
}

// --- routes ---

func (d *memData) createRoute(r *models.Route) error {
	r.ID = d.nextID()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	d.routes[r.ID] = copyRoute(*r)
	return nil
}

func (d *memData) getRoute(id uint) (*models.Route, error) {
	r, ok := d.routes[id]
	if !ok {
		return nil, apperr.NotFound("route %d not found", id)
	}
	r = copyRoute(r)
	r.Dustbins = d.dustbinsOf(id)
	return &r, nil
}

func (d *memData) saveRoute(r *models.Route) error {
	if _, ok := d.routes[r.ID]; !ok {
		return apperr.NotFound("route %d not found", r.ID)
	}
	r.UpdatedAt = time.Now()
	d.routes[r.ID] = copyRoute(*r)
	return nil
}

func (d *memData) dustbinsOf(routeID uint) []models.Dustbin {
	var bins []models.Dustbin
	for _, b := range d.dustbins {
		if b.RouteID != nil && *b.RouteID == routeID {
			bins = append(bins, copyDustbin(b))
		}
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Seq < bins[j].Seq })
	return bins
}

// --- dustbins ---

func (d *memData) getDustbin(id uint) (*models.Dustbin, error) {
	b, ok := d.dustbins[id]
	if !ok {
		return nil, apperr.NotFound("dustbin %d not found", id)
	}
	b = copyDustbin(b)
	return &b, nil
}

// ---- Store interface: Memory locks, memTx does not ----

func (m *Memory) run(fn func(d *memData) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.d)
}

func (m *Memory) CreateOffice(ctx context.Context, o *models.Office) error {
	return m.run(func(d *memData) error { return d.createOffice(o) })
}
func (t *memTx) CreateOffice(ctx context.Context, o *models.Office) error {
	return t.d.createOffice(o)
}

func (m *Memory) GetOffice(ctx context.Context, id uint) (o *models.Office, err error) {
	m.run(func(d *memData) error { o, err = d.getOffice(id); return nil })
	return
}
func (t *memTx) GetOffice(ctx context.Context, id uint) (*models.Office, error) {
	return t.d.getOffice(id)
}

func (m *Memory) GetOfficeByUsername(ctx context.Context, username string) (o *models.Office, err error) {
	m.run(func(d *memData) error { o, err = d.officeByUsername(username); return nil })
	return
}
func (t *memTx) GetOfficeByUsername(ctx context.Context, username string) (*models.Office, error) {
	return t.d.officeByUsername(username)
}

func (d *memData) officeByUsername(username string) (*models.Office, error) {
	for _, o := range d.offices {
		if o.Username == username {
			o := o
			return &o, nil
		}
	}
	return nil, apperr.NotFound("office %q not found", username)
}

func (m *Memory) ListOffices(ctx context.Context) (out []models.Office, err error) {
	m.run(func(d *memData) error { out = d.listOffices(); return nil })
	return
}
func (t *memTx) ListOffices(ctx context.Context) ([]models.Office, error) {
	return t.d.listOffices(), nil
}

func (d *memData) listOffices() []models.Office {
	out := make([]models.Office, 0, len(d.offices))
	for _, o := range d.offices {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) SaveOffice(ctx context.Context, o *models.Office) error {
	return m.run(func(d *memData) error { return d.saveOffice(o) })
}
func (t *memTx) SaveOffice(ctx context.Context, o *models.Office) error {
	return t.d.saveOffice(o)
}

func (m *Memory) DeleteOffice(ctx context.Context, id uint) error {
	return m.run(func(d *memData) error { delete(d.offices, id); return nil })
}
func (t *memTx) DeleteOffice(ctx context.Context, id uint) error {
	delete(t.d.offices, id)
	return nil
}

func (m *Memory) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return m.run(func(d *memData) error { return d.createVehicle(v) })
}
func (t *memTx) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return t.d.createVehicle(v)
}

func (m *Memory) GetVehicle(ctx context.Context, id uint) (v *models.Vehicle, err error) {
	m.run(func(d *memData) error { v, err = d.getVehicle(id); return nil })
	return
}
func (t *memTx) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	return t.d.getVehicle(id)
}

func (m *Memory) ListVehiclesByOffice(ctx context.Context, officeID uint) (out []models.Vehicle, err error) {
	m.run(func(d *memData) error { out = d.vehiclesByOffice(officeID); return nil })
	return
}
func (t *memTx) ListVehiclesByOffice(ctx context.Context, officeID uint) ([]models.Vehicle, error) {
	return t.d.vehiclesByOffice(officeID), nil
}

func (d *memData) vehiclesByOffice(officeID uint) []models.Vehicle {
	var out []models.Vehicle
	for _, v := range d.vehicles {
		if v.OfficeID == officeID {
			out = append(out, copyVehicle(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) SaveVehicle(ctx context.Context, v *models.Vehicle) error {
	return m.run(func(d *memData) error { return d.saveVehicle(v) })
}
func (t *memTx) SaveVehicle(ctx context.Context, v *models.Vehicle) error {
	return t.d.saveVehicle(v)
}

func (m *Memory) DeleteVehicle(ctx context.Context, id uint) error {
	return m.run(func(d *memData) error { delete(d.vehicles, id); return nil })
}
func (t *memTx) DeleteVehicle(ctx context.Context, id uint) error {
	delete(t.d.vehicles, id)
	return nil
}

func (m *Memory) DeleteVehiclesByOffice(ctx context.Context, officeID uint) error {
	return m.run(func(d *memData) error { d.deleteVehiclesByOffice(officeID); return nil })
}
func (t *memTx) DeleteVehiclesByOffice(ctx context.Context, officeID uint) error {
	t.d.deleteVehiclesByOffice(officeID)
	return nil
}

func (d *memData) deleteVehiclesByOffice(officeID uint) {
	for id, v := range d.vehicles {
		if v.OfficeID == officeID {
			delete(d.vehicles, id)
		}
	}
}

func (m *Memory) UpdateVehiclePosition(ctx context.Context, id uint, lat, lon float64, at time.Time) error {
	return m.run(func(d *memData) error { return d.updateVehiclePosition(id, lat, lon, at) })
}
func (t *memTx) UpdateVehiclePosition(ctx context.Context, id uint, lat, lon float64, at time.Time) error {
	return t.d.updateVehiclePosition(id, lat, lon, at)
}

func (d *memData) updateVehiclePosition(id uint, lat, lon float64, at time.Time) error {
	v, ok := d.vehicles[id]
	if !ok {
		return apperr.NotFound("vehicle %d not found", id)
	}
	v.Latitude = &lat
	v.Longitude = &lon
	at2 := at
	v.LocationUpdatedAt = &at2
	v.IsOnline = true
	seen := at
	v.LastSeen = &seen
	v.UpdatedAt = time.Now()
	d.vehicles[id] = v
	return nil
}

func (m *Memory) SetVehicleOnline(ctx context.Context, id uint, online bool, seen time.Time) error {
	return m.run(func(d *memData) error { return d.setVehicleOnline(id, online, seen) })
}
func (t *memTx) SetVehicleOnline(ctx context.Context, id uint, online bool, seen time.Time) error {
	return t.d.setVehicleOnline(id, online, seen)
}

func (d *memData) setVehicleOnline(id uint, online bool, seen time.Time) error {
	v, ok := d.vehicles[id]
	if !ok {
		return apperr.NotFound("vehicle %d not found", id)
	}
	v.IsOnline = online
	s := seen
	v.LastSeen = &s
	v.UpdatedAt = time.Now()
	d.vehicles[id] = v
	return nil
}

func (m *Memory) CreateStaff(ctx context.Context, s *models.Staff) error {
	return m.run(func(d *memData) error { return d.createStaff(s) })
}
func (t *memTx) CreateStaff(ctx context.Context, s *models.Staff) error {
	return t.d.createStaff(s)
}

func (m *Memory) GetStaff(ctx context.Context, id uint) (s *models.Staff, err error) {
	m.run(func(d *memData) error { s, err = d.getStaff(id); return nil })
	return
}
func (t *memTx) GetStaff(ctx context.Context, id uint) (*models.Staff, error) {
	return t.d.getStaff(id)
}

func (m *Memory) GetStaffByUsername(ctx context.Context, username string) (s *models.Staff, err error) {
	m.run(func(d *memData) error { s, err = d.staffByUsername(username); return nil })
	return
}
func (t *memTx) GetStaffByUsername(ctx context.Context, username string) (*models.Staff, error) {
	return t.d.staffByUsername(username)
}

func (d *memData) staffByUsername(username string) (*models.Staff, error) {
	for _, s := range d.staff {
		if s.Username == username {
			s := copyStaff(s)
			return &s, nil
		}
	}
	return nil, apperr.NotFound("staff %q not found", username)
}

func (m *Memory) ListStaffByOffice(ctx context.Context, officeID uint) (out []models.Staff, err error) {
	m.run(func(d *memData) error { out = d.staffByOffice(officeID); return nil })
	return
}
func (t *memTx) ListStaffByOffice(ctx context.Context, officeID uint) ([]models.Staff, error) {
	return t.d.staffByOffice(officeID), nil
}

func (d *memData) staffByOffice(officeID uint) []models.Staff {
	var out []models.Staff
	for _, s := range d.staff {
		if s.OfficeID == officeID {
			out = append(out, copyStaff(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) FindStaffByVehicle(ctx context.Context, vehicleID uint) (s *models.Staff, err error) {
	m.run(func(d *memData) error { s, err = d.staffByVehicle(vehicleID); return nil })
	return
}
func (t *memTx) FindStaffByVehicle(ctx context.Context, vehicleID uint) (*models.Staff, error) {
	return t.d.staffByVehicle(vehicleID)
}

func (d *memData) staffByVehicle(vehicleID uint) (*models.Staff, error) {
	for _, s := range d.staff {
		if s.AssignedVehicleID != nil && *s.AssignedVehicleID == vehicleID {
			s := copyStaff(s)
			return &s, nil
		}
	}
	return nil, apperr.NotFound("no staff assigned to vehicle %d", vehicleID)
}

func (m *Memory) SaveStaff(ctx context.Context, s *models.Staff) error {
	return m.run(func(d *memData) error { return d.saveStaff(s) })
}
func (t *memTx) SaveStaff(ctx context.Context, s *models.Staff) error {
	return t.d.saveStaff(s)
}

func (m *Memory) DeleteStaff(ctx context.Context, id uint) error {
	return m.run(func(d *memData) error { delete(d.staff, id); return nil })
}
func (t *memTx) DeleteStaff(ctx context.Context, id uint) error {
	delete(t.d.staff, id)
	return nil
}

func (m *Memory) DeleteStaffByOffice(ctx context.Context, officeID uint) error {
	return m.run(func(d *memData) error { d.deleteStaffByOffice(officeID); return nil })
}
func (t *memTx) DeleteStaffByOffice(ctx context.Context, officeID uint) error {
	t.d.deleteStaffByOffice(officeID)
	return nil
}

func (d *memData) deleteStaffByOffice(officeID uint) {
	for id, s := range d.staff {
		if s.OfficeID == officeID {
			delete(d.staff, id)
		}
	}
}

func (m *Memory) CreateRoute(ctx context.Context, r *models.Route) error {
	return m.run(func(d *memData) error { return d.createRoute(r) })
}
func (t *memTx) CreateRoute(ctx context.Context, r *models.Route) error {
	return t.d.createRoute(r)
}

func (m *Memory) GetRoute(ctx context.Context, id uint) (r *models.Route, err error) {
	m.run(func(d *memData) error { r, err = d.getRoute(id); return nil })
	return
}
func (t *memTx) GetRoute(ctx context.Context, id uint) (*models.Route, error) {
	return t.d.getRoute(id)
}

func (m *Memory) ListRoutesByOffice(ctx context.Context, officeID uint) (out []models.Route, err error) {
	m.run(func(d *memData) error { out = d.routesByOffice(officeID); return nil })
	return
}
func (t *memTx) ListRoutesByOffice(ctx context.Context, officeID uint) ([]models.Route, error) {
	return t.d.routesByOffice(officeID), nil
}

func (d *memData) routesByOffice(officeID uint) []models.Route {
	var out []models.Route
	for _, r := range d.routes {
		if r.OfficeID == officeID {
			cp := copyRoute(r)
			cp.Dustbins = d.dustbinsOf(r.ID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) FindActiveRouteByVehicle(ctx context.Context, vehicleID uint) (r *models.Route, err error) {
	m.run(func(d *memData) error { r, err = d.activeRouteByVehicle(vehicleID); return nil })
	return
}
func (t *memTx) FindActiveRouteByVehicle(ctx context.Context, vehicleID uint) (*models.Route, error) {
	return t.d.activeRouteByVehicle(vehicleID)
}

func (d *memData) activeRouteByVehicle(vehicleID uint) (*models.Route, error) {
	for _, r := range d.routes {
		if r.Active && r.AssignedVehicleID != nil && *r.AssignedVehicleID == vehicleID {
			cp := copyRoute(r)
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no active route assigned to vehicle %d", vehicleID)
}

func (m *Memory) SaveRoute(ctx context.Context, r *models.Route) error {
	return m.run(func(d *memData) error { return d.saveRoute(r) })
}
func (t *memTx) SaveRoute(ctx context.Context, r *models.Route) error {
	return t.d.saveRoute(r)
}

func (m *Memory) DeleteRoute(ctx context.Context, id uint) error {
	return m.run(func(d *memData) error { delete(d.routes, id); return nil })
}
func (t *memTx) DeleteRoute(ctx context.Context, id uint) error {
	delete(t.d.routes, id)
	return nil
}

func (m *Memory) DeleteRoutesByOffice(ctx context.Context, officeID uint) error {
	return m.run(func(d *memData) error { d.deleteRoutesByOffice(officeID); return nil })
}
func (t *memTx) DeleteRoutesByOffice(ctx context.Context, officeID uint) error {
	t.d.deleteRoutesByOffice(officeID)
	return nil
}

func (d *memData) deleteRoutesByOffice(officeID uint) {
	for id, r := range d.routes {
		if r.OfficeID == officeID {
			delete(d.routes, id)
		}
	}
}

func (m *Memory) CreateDustbin(ctx context.Context, b *models.Dustbin) error {
	return m.run(func(d *memData) error { return d.createDustbin(b) })
}
func (t *memTx) CreateDustbin(ctx context.Context, b *models.Dustbin) error {
	return t.d.createDustbin(b)
}

func (d *memData) createDustbin(b *models.Dustbin) error {
	b.ID = d.nextID()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	d.dustbins[b.ID] = copyDustbin(*b)
	return nil
}

func (m *Memory) GetDustbin(ctx context.Context, id uint) (b *models.Dustbin, err error) {
	m.run(func(d *memData) error { b, err = d.getDustbin(id); return nil })
	return
}
func (t *memTx) GetDustbin(ctx context.Context, id uint) (*models.Dustbin, error) {
	return t.d.getDustbin(id)
}

func (m *Memory) ListDustbinsByOffice(ctx context.Context, officeID uint) (out []models.Dustbin, err error) {
	m.run(func(d *memData) error { out = d.dustbinsByOffice(officeID); return nil })
	return
}
func (t *memTx) ListDustbinsByOffice(ctx context.Context, officeID uint) ([]models.Dustbin, error) {
	return t.d.dustbinsByOffice(officeID), nil
}

func (d *memData) dustbinsByOffice(officeID uint) []models.Dustbin {
	var out []models.Dustbin
	for _, b := range d.dustbins {
		if b.OfficeID == officeID {
			out = append(out, copyDustbin(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ListDustbinsByRoute(ctx context.Context, routeID uint) (out []models.Dustbin, err error) {
	m.run(func(d *memData) error { out = d.dustbinsOf(routeID); return nil })
	return
}
func (t *memTx) ListDustbinsByRoute(ctx context.Context, routeID uint) ([]models.Dustbin, error) {
	return t.d.dustbinsOf(routeID), nil
}

func (m *Memory) SaveDustbin(ctx context.Context, b *models.Dustbin) error {
	return m.run(func(d *memData) error { return d.saveDustbin(b) })
}
func (t *memTx) SaveDustbin(ctx context.Context, b *models.Dustbin) error {
	return t.d.saveDustbin(b)
}

func (d *memData) saveDustbin(b *models.Dustbin) error {
	if _, ok := d.dustbins[b.ID]; !ok {
		return apperr.NotFound("dustbin %d not found", b.ID)
	}
	b.UpdatedAt = time.Now()
	d.dustbins[b.ID] = copyDustbin(*b)
	return nil
}

func (m *Memory) DeleteDustbin(ctx context.Context, id uint) error {
	return m.run(func(d *memData) error { delete(d.dustbins, id); return nil })
}
func (t *memTx) DeleteDustbin(ctx context.Context, id uint) error {
	delete(t.d.dustbins, id)
	return nil
}

func (m *Memory) DeleteDustbinsByOffice(ctx context.Context, officeID uint) error {
	return m.run(func(d *memData) error { d.deleteDustbinsByOffice(officeID); return nil })
}
func (t *memTx) DeleteDustbinsByOffice(ctx context.Context, officeID uint) error {
	t.d.deleteDustbinsByOffice(officeID)
	return nil
}

func (d *memData) deleteDustbinsByOffice(officeID uint) {
	for id, b := range d.dustbins {
		if b.OfficeID == officeID {
			delete(d.dustbins, id)
		}
	}
}

func (m *Memory) GetAdminByUsername(ctx context.Context, username string) (a *models.Admin, err error) {
	m.run(func(d *memData) error { a, err = d.adminByUsername(username); return nil })
	return
}
func (t *memTx) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return t.d.adminByUsername(username)
}

func (d *memData) adminByUsername(username string) (*models.Admin, error) {
	for _, a := range d.admins {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, apperr.NotFound("admin %q not found", username)
}

func (m *Memory) CreateAdmin(ctx context.Context, a *models.Admin) error {
	return m.run(func(d *memData) error { return d.createAdmin(a) })
}
func (t *memTx) CreateAdmin(ctx context.Context, a *models.Admin) error {
	return t.d.createAdmin(a)
}

func (d *memData) createAdmin(a *models.Admin) error {
	for _, e := range d.admins {
		if e.Username == a.Username || e.Email == a.Email {
			return apperr.Conflict("admin username or email already registered")
		}
	}
	a.ID = d.nextID()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	d.admins[a.ID] = *a
	return nil
}

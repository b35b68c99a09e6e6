package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"waste_tracker/internal/controllers"
	"waste_tracker/internal/fleet"
	"waste_tracker/internal/models"
	"waste_tracker/internal/store"
	"waste_tracker/internal/tracking"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := store.NewMemory()
	controllers.Wire(db, fleet.NewManager(db), tracking.New(db))

	r := gin.New()
	r.POST("/auth/admin/login", controllers.LoginAdmin)
	r.POST("/auth/office/login", controllers.LoginOffice)
	r.POST("/auth/staff/login", controllers.LoginStaff)
	return r, db
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginOffice(t *testing.T) {
	r, db := newAuthRouter(t)
	office := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 12",
		AdminName: "A Sharma", AdminEmail: "ward12@example.com",
		Username: "ward12@example.com", Password: hash(t, "secret"),
		Status: models.OfficeActive,
	}
	require.NoError(t, db.CreateOffice(context.Background(), office))

	w := postJSON(t, r, "/auth/office/login", gin.H{"username": "ward12@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	w = postJSON(t, r, "/auth/office/login", gin.H{"username": "ward12@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, r, "/auth/office/login", gin.H{"username": "nobody@example.com", "password": "secret"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginStaffProvisionedCredentials(t *testing.T) {
	r, db := newAuthRouter(t)
	ctx := context.Background()
	office := &models.Office{
		StateName: "Madhya Pradesh", CityName: "Bhopal", Name: "Ward 12",
		AdminName: "A Sharma", AdminEmail: "ward12@example.com",
		Username: "ward12@example.com", Password: hash(t, "x"),
		Status: models.OfficeActive,
	}
	require.NoError(t, db.CreateOffice(ctx, office))

	// Username is the phone, password its last five digits.
	staff := &models.Staff{
		OfficeID: office.ID, Name: "Ramesh", Role: models.RoleDriver,
		Phone: "9876543210", Username: "9876543210",
		Password: hash(t, "43210"), Active: true,
	}
	require.NoError(t, db.CreateStaff(ctx, staff))

	w := postJSON(t, r, "/auth/staff/login", gin.H{"username": "9876543210", "password": "43210"})
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivated staff cannot log in.
	staff.Active = false
	require.NoError(t, db.SaveStaff(ctx, staff))
	w = postJSON(t, r, "/auth/staff/login", gin.H{"username": "9876543210", "password": "43210"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginAdmin(t *testing.T) {
	r, db := newAuthRouter(t)
	admin := &models.Admin{
		Name: "Platform Admin", Email: "root@example.com",
		Username: "root", Password: hash(t, "toor"),
	}
	require.NoError(t, db.CreateAdmin(context.Background(), admin))

	w := postJSON(t, r, "/auth/admin/login", gin.H{"username": "root", "password": "toor"})
	require.Equal(t, http.StatusOK, w.Code)
}

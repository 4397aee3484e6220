package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/models"
)

func TestUserAdminCRUD(t *testing.T) {
	srv := newTestServer(t)

	body := jsonBody(t, map[string]string{"username": "carol", "password": "pw", "role": models.RoleSupply})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/users", body), "root", models.RoleAdmin)
	rec := httptest.NewRecorder()
	srv.handleUsers(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Listing never echoes passwords.
	req = asRole(httptest.NewRequest(http.MethodGet, "/api/users", nil), "root", models.RoleAdmin)
	rec = httptest.NewRecorder()
	srv.handleUsers(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pw")
	assert.Contains(t, rec.Body.String(), "carol")

	// Role change without a password keeps the stored password.
	body = jsonBody(t, map[string]string{"role": models.RoleTechnical})
	req = asRole(httptest.NewRequest(http.MethodPut, "/api/users/carol", body), "root", models.RoleAdmin)
	rec = httptest.NewRecorder()
	srv.handleUserByName(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := srv.app.Storage.Users().Get(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnical, got.Role)
	assert.Equal(t, "pw", got.Password)

	req = asRole(httptest.NewRequest(http.MethodDelete, "/api/users/carol", nil), "root", models.RoleAdmin)
	rec = httptest.NewRecorder()
	srv.handleUserByName(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err = srv.app.Storage.Users().Get(context.Background(), "carol")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserEndpointsRequireAdmin(t *testing.T) {
	srv := newTestServer(t)

	req := asRole(httptest.NewRequest(http.MethodGet, "/api/users", nil), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.handleUsers(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

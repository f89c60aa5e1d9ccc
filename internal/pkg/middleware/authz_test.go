package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"semestock/internal/domain"
	"semestock/internal/pkg/middleware"
)

// TestCan testa a tabela de capacidades por (role, action).
func TestCan(t *testing.T) {
	// Admin tem todas as capacidades, incluindo resolver retiradas.
	assert.True(t, middleware.Can(domain.RoleAdmin, middleware.ActionChamberManage))
	assert.True(t, middleware.Can(domain.RoleAdmin, middleware.ActionWithdrawalResolve))

	// Operator movimenta estoque e solicita retirada, mas não resolve
	// retiradas nem administra câmaras.
	assert.True(t, middleware.Can(domain.RoleOperator, middleware.ActionProductMove))
	assert.True(t, middleware.Can(domain.RoleOperator, middleware.ActionWithdrawalRequest))
	assert.False(t, middleware.Can(domain.RoleOperator, middleware.ActionWithdrawalResolve))
	assert.False(t, middleware.Can(domain.RoleOperator, middleware.ActionChamberManage))

	// Viewer apenas lê.
	assert.True(t, middleware.Can(domain.RoleViewer, middleware.ActionProductRead))
	assert.False(t, middleware.Can(domain.RoleViewer, middleware.ActionProductCreate))

	// Pares desconhecidos negam por padrão.
	assert.False(t, middleware.Can(domain.UserRole("auditor"), middleware.ActionProductRead))
	assert.False(t, middleware.Can(domain.RoleAdmin, middleware.Action("product:purge")))
}

func requestWithClaims(claims middleware.UserClaims) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	ctx := context.WithValue(r.Context(), middleware.UserClaimsKey, claims)
	return r.WithContext(ctx)
}

// TestRequireCapability_Allowed testa a passagem de uma role com a capacidade exigida.
func TestRequireCapability_Allowed(t *testing.T) {
	called := false
	handler := middleware.RequireCapability(middleware.ActionProductRead)(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithClaims(middleware.UserClaims{UserID: "u1", Role: domain.RoleViewer}))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestRequireCapability_Forbidden testa a negação (403) de uma role sem a capacidade.
func TestRequireCapability_Forbidden(t *testing.T) {
	called := false
	handler := middleware.RequireCapability(middleware.ActionChamberManage)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithClaims(middleware.UserClaims{UserID: "u1", Role: domain.RoleOperator}))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestRequireCapability_NoClaims testa a negação (401) quando as claims não
// foram anexadas pelo AuthMiddleware.
func TestRequireCapability_NoClaims(t *testing.T) {
	called := false
	handler := middleware.RequireCapability(middleware.ActionProductRead)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/v1/products", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

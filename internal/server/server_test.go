package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"flatup/internal/auth"
	"flatup/internal/config"
	"flatup/internal/payment"
	"flatup/internal/subscription"
	"flatup/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rdb, _ := redismock.NewClientMock()

	cfg := &config.Config{Env: "test", Port: "0", JWTSecret: "test-secret"}
	h := Handlers{
		User:         user.NewHandler(user.NewService(nil, nil, cfg.JWTSecret)),
		Payment:      payment.NewHandler(payment.NewOrderService(nil, "rzp_test")),
		Subscription: subscription.NewHandler(nil, nil),
	}
	return New(cfg, sqlx.NewDb(db, "sqlmock"), rdb, h)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, err := auth.IssueAccessToken(auth.Identity{UserID: 1, Email: "o@example.com", Role: auth.RoleOwner}, "test-secret")
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"plans are public", http.MethodGet, "/plans", "", http.StatusOK},
		{"verify needs auth", http.MethodPost, "/payment/verify", "", http.StatusUnauthorized},
		{"create order needs auth", http.MethodPost, "/payment/create-order", "", http.StatusUnauthorized},
		{"status needs auth", http.MethodGet, "/subscription", "", http.StatusUnauthorized},
		{"history needs auth", http.MethodGet, "/subscriptions", "", http.StatusUnauthorized},
		{"me needs auth", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"admin needs superadmin", http.MethodGet, "/admin/subscriptions", ownerToken, http.StatusForbidden},
		{"stats needs superadmin", http.MethodGet, "/admin/subscriptions/stats", ownerToken, http.StatusForbidden},
		{"reconcile needs superadmin", http.MethodPost, "/admin/subscriptions/reconcile", ownerToken, http.StatusForbidden},
		{"no cancel route", http.MethodPost, "/admin/subscriptions/cancel", ownerToken, http.StatusNotFound},
		{"docs redirect", http.MethodGet, "/docs", "", http.StatusFound},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			srv.Router().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

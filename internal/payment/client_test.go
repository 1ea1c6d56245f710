package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayClient_CreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(80000), req.Amount)
		assert.Equal(t, "INR", req.Currency)
		assert.Equal(t, "sub_1_1", req.Receipt)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_XYZ","entity":"order","amount":80000,"currency":"INR","receipt":"sub_1_1","status":"created"}`))
	}))
	defer server.Close()

	client := NewRazorpayClient("rzp_key", "rzp_secret", server.URL+"/v1/", time.Second)

	order, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 80000, Currency: "INR", Receipt: "sub_1_1"})

	require.NoError(t, err)
	assert.Equal(t, "order_XYZ", order.ID)
	assert.Equal(t, int64(80000), order.Amount)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, "rzp_key", client.KeyID())
}

func TestRazorpayClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"receipt too long"}}`))
	}))
	defer server.Close()

	client := NewRazorpayClient("k", "s", server.URL, time.Second)

	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Equal(t, "receipt too long", apiErr.Description)
	assert.False(t, apiErr.Temporary())
}

func TestRazorpayClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := NewRazorpayClient("k", "s", server.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestRazorpayClient_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRazorpayClient("k", "s", server.URL, time.Second)

	for i := 0; i < 5; i++ {
		_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.Temporary())
	}

	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestRazorpayClient_ClientErrorsDoNotTrip(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewRazorpayClient("k", "s", server.URL, time.Second)

	for i := 0; i < 7; i++ {
		_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
		assert.NotErrorIs(t, err, ErrProviderUnavailable)
	}
	assert.Equal(t, int32(7), atomic.LoadInt32(&calls))
}

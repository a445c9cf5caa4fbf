package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/khetikara/internal/backend"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/products", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{
			"id":"p1","name":"Desi Tomatoes","variety":"Bilahi","unit":"kg",
			"base_price":56,"mrp":"62","min_order_qty":1,"max_order_qty":100,
			"product_grades":[{"grade_key":"A2","grade_label":"A2 - Standard Grade","price_multiplier":0.9}]
		}]}`))
	}))
	defer srv.Close()

	c := backend.New(srv.URL+"/", "anon-key", time.Second)
	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "p1", p.ID)
	assert.True(t, p.BasePrice.Equal(decimal.NewFromInt(56)))
	assert.True(t, p.MRP.Equal(decimal.NewFromInt(62)))
	require.Len(t, p.Grades, 1)
	assert.True(t, p.Grades[0].Multiplier.Equal(decimal.RequireFromString("0.9")))
}

func TestMarketMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/market-metrics", r.URL.Path)
		_, _ = w.Write([]byte(`{"metrics":[{"metric_type":"demand_index","metric_value":-0.4,"metric_unit":"points","description":"Demand Index Change"}]}`))
	}))
	defer srv.Close()

	metrics, err := backend.New(srv.URL, "k", time.Second).MarketMetrics(context.Background())

	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "demand_index", metrics[0].Type)
	assert.True(t, metrics[0].Value.Equal(decimal.RequireFromString("-0.4")))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Order placed via KhetiKara app", body["notes"])
		assert.Contains(t, body, "discount_amount")
		customer, _ := body["customer"].(map[string]any)
		assert.Equal(t, "9864012345", customer["phone"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_number":"KK-2024-0042"}`))
	}))
	defer srv.Close()

	payload := domain.OrderPayload{
		Customer: domain.OrderCustomer{Phone: "9864012345", Name: "Anjali"},
		Notes:    "Order placed via KhetiKara app",
	}
	number, err := backend.New(srv.URL, "k", time.Second).CreateOrder(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, "KK-2024-0042", number)
}

func TestCreateOrder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
		wantMsg string
	}{
		{name: "empty order number", status: 200, body: `{"order_number":""}`},
		{name: "missing order number", status: 200, body: `{}`},
		{name: "not json", status: 200, body: `<html>`},
		{name: "error body", status: 500, body: `{"error":"database unavailable"}`, wantAPI: true, wantMsg: "database unavailable"},
		{name: "bare error", status: 502, body: `Bad Gateway`, wantAPI: true, wantMsg: "API request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := backend.New(srv.URL, "k", time.Second).CreateOrder(context.Background(), domain.OrderPayload{})
			require.Error(t, err)

			var apiErr *backend.APIError
			if tt.wantAPI {
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			} else {
				assert.ErrorIs(t, err, backend.ErrMalformedResponse)
			}
		})
	}
}

func TestCreateOrder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := backend.New(url, "k", time.Second).CreateOrder(context.Background(), domain.OrderPayload{})
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	_, err := backend.New("", "k", time.Second).ListProducts(context.Background())
	assert.ErrorIs(t, err, backend.ErrNotConfigured)
}

func TestObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var gotEndpoint string
	var gotErr error
	c := backend.New(srv.URL, "k", time.Second, backend.WithObserver(func(endpoint string, _ time.Duration, err error) {
		gotEndpoint = endpoint
		gotErr = err
	}))

	_, err := c.MarketMetrics(context.Background())

	require.Error(t, err)
	assert.Equal(t, backend.EndpointMarketMetrics, gotEndpoint)
	assert.True(t, errors.Is(gotErr, err) || gotErr == err)
}

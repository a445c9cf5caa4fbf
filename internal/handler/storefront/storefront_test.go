package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/catalogue"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/dukerupert/khetikara/internal/service"
	"github.com/dukerupert/khetikara/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type offlineSource struct{}

func (offlineSource) ListProducts(context.Context) ([]domain.Product, error) {
	return nil, errors.New("backend offline")
}

func (offlineSource) MarketMetrics(context.Context) ([]domain.MarketMetric, error) {
	return nil, errors.New("backend offline")
}

// failingStore accepts reads but rejects every write.
type failingStore struct{ store.Store }

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newTestStorefront(t *testing.T, svc domain.OrderService, st store.Store) *service.Storefront {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if st == nil {
		st = store.NewMemoryStore()
	}

	s := service.NewStorefront(service.Config{},
		catalogue.NewService(offlineSource{}, logger, nil),
		order.NewSubmitter(svc, order.NewStoreLedger(store.NewMemoryStore()), logger),
		cart.NewKeyedCart(st, cart.DefaultSlot, nil),
		logger, nil,
	)
	s.LoadCatalogue(context.Background())
	return s
}

func newMux(s *service.Storefront) *http.ServeMux {
	cat := NewCatalogueHandler(s)
	c := NewCartHandler(s)
	rec := NewRecipientHandler(s)
	o := NewOrderHandler(s)
	b := NewBasketHandler(s)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalogue", cat.List)
	mux.HandleFunc("POST /catalogue/reload", cat.Reload)
	mux.HandleFunc("GET /market-metrics", cat.MarketMetrics)
	mux.HandleFunc("GET /cart", c.View)
	mux.HandleFunc("POST /cart/items/{id}/quantity", c.UpdateQuantity)
	mux.HandleFunc("POST /cart/items/{id}/grade", c.SetGrade)
	mux.HandleFunc("POST /cart/clear", c.Clear)
	mux.HandleFunc("GET /recipients", rec.List)
	mux.HandleFunc("POST /recipients", rec.Add)
	mux.HandleFunc("PATCH /recipients/{id}", rec.Update)
	mux.HandleFunc("DELETE /recipients/{id}", rec.Remove)
	mux.HandleFunc("POST /recipients/validate", rec.Validate)
	mux.HandleFunc("GET /language", o.Language)
	mux.HandleFunc("PUT /language", o.SetLanguage)
	mux.HandleFunc("POST /orders", o.Place)
	mux.HandleFunc("GET /orders/confirmation", o.Confirmation)
	mux.HandleFunc("DELETE /orders/confirmation", o.DismissConfirmation)
	mux.HandleFunc("GET /basket", b.View)
	mux.HandleFunc("DELETE /basket", b.Clear)
	mux.HandleFunc("POST /basket/lines", b.Add)
	mux.HandleFunc("POST /basket/lines/{id}/{grade}", b.Update)
	mux.HandleFunc("DELETE /basket/lines/{id}/{grade}", b.Remove)
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func fillPrimary(t *testing.T, h http.Handler, id string) {
	t.Helper()
	for field, value := range map[string]string{
		"name":         "Anjali Das",
		"phone":        "9864012345",
		"flat_address": "House 12, Zoo Road",
		"pin_code":     "781024",
	} {
		rec := do(t, h, http.MethodPatch, "/recipients/"+id, `{"field":"`+field+`","value":"`+value+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestCatalogueHandler(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))

	t.Run("list filters by query", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/catalogue?q=TOMATO", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Items []struct {
				ID       string `json:"id"`
				Grade    string `json:"grade"`
				Quantity int    `json:"quantity"`
			} `json:"items"`
		}](t, rec)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "item-1", resp.Items[0].ID)
		assert.Equal(t, "A1", resp.Items[0].Grade)
	})

	t.Run("reload reports fallback", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/catalogue/reload", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Fallback bool `json:"fallback"`
		}](t, rec)
		assert.True(t, resp.Fallback)
	})

	t.Run("market metrics fall back to defaults", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/market-metrics", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Metrics  []domain.MarketMetric `json:"metrics"`
			Fallback bool                  `json:"fallback"`
		}](t, rec)
		assert.True(t, resp.Fallback)
		assert.Len(t, resp.Metrics, 2)
	})
}

func TestCartHandler(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))

	rec := do(t, h, http.MethodPost, "/cart/items/item-1/quantity", `{"delta": 3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/cart/items/item-1/grade", `{"grade": "A2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Item struct {
			Grade    string `json:"grade"`
			Quantity int    `json:"quantity"`
		} `json:"item"`
		Summary struct {
			ItemsTotal  int64 `json:"items_total"`
			Savings     int64 `json:"savings"`
			TotalAmount int64 `json:"total_amount"`
		} `json:"summary"`
	}](t, rec)
	assert.Equal(t, "A2", resp.Item.Grade)
	assert.Equal(t, 3, resp.Item.Quantity, "grade change keeps quantity")
	assert.Equal(t, int64(150), resp.Summary.ItemsTotal)
	assert.Equal(t, int64(36), resp.Summary.Savings)
	assert.Equal(t, int64(153), resp.Summary.TotalAmount)

	rec = do(t, h, http.MethodPost, "/cart/items/item-1/quantity", `{"delta": -10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quantity":0`)

	t.Run("unknown item", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/cart/items/item-9/quantity", `{"delta": 1}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing delta", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/cart/items/item-1/quantity", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Delta is required", decode[errorEnvelope](t, rec).Error.Fields["delta"])
	})

	t.Run("clear", func(t *testing.T) {
		do(t, h, http.MethodPost, "/cart/items/item-2/quantity", `{"delta": 2}`)

		rec := do(t, h, http.MethodPost, "/cart/clear", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_amount":0`)
	})
}

func TestRecipientHandler(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))

	list := decode[struct {
		Recipients []struct {
			ID string `json:"id"`
		} `json:"recipients"`
	}](t, do(t, h, http.MethodGet, "/recipients", ""))
	require.Len(t, list.Recipients, 1)
	first := list.Recipients[0].ID

	rec := do(t, h, http.MethodPost, "/recipients", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID
	assert.NotEqual(t, first, second)

	t.Run("update sanitizes", func(t *testing.T) {
		rec := do(t, h, http.MethodPatch, "/recipients/"+first, `{"field":"name","value":"  <Anjali> "}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Anjali"`)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, h, http.MethodPatch, "/recipients/"+first, `{"field":"email","value":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		rec := do(t, h, http.MethodPatch, "/recipients/nope", `{"field":"name","value":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validate reports field errors", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/recipients/validate", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Valid      bool `json:"valid"`
			Recipients []struct {
				Errors map[string]string `json:"errors"`
			} `json:"recipients"`
		}](t, rec)
		assert.False(t, resp.Valid)
		assert.Equal(t, "Phone number is required", resp.Recipients[0].Errors["phone"])
		assert.Empty(t, resp.Recipients[0].Errors["name"])
	})

	t.Run("remove", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/recipients/"+second, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, h, http.MethodDelete, "/recipients/"+second, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrderHandler_Place(t *testing.T) {
	t.Run("invalid recipients", func(t *testing.T) {
		h := newMux(newTestStorefront(t, nil, nil))
		do(t, h, http.MethodPost, "/cart/items/item-1/quantity", `{"delta": 1}`)

		rec := do(t, h, http.MethodPost, "/orders", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode[errorEnvelope](t, rec)
		assert.Equal(t, domain.EINVALID, env.Error.Code)
		assert.Equal(t, "Name is required", env.Error.Fields["recipients.0.name"])
		assert.Equal(t, "PIN code is required", env.Error.Fields["recipients.0.pin_code"])
	})

	t.Run("empty cart", func(t *testing.T) {
		h := newMux(newTestStorefront(t, nil, nil))
		id := decode[struct {
			Recipients []struct {
				ID string `json:"id"`
			} `json:"recipients"`
		}](t, do(t, h, http.MethodGet, "/recipients", "")).Recipients[0].ID
		fillPrimary(t, h, id)

		rec := do(t, h, http.MethodPost, "/orders", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cart is empty", decode[errorEnvelope](t, rec).Error.Message)
	})

	t.Run("order service down yields fallback confirmation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := domain.NewMockOrderService(ctrl)
		svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return("", errors.New("503 Service Unavailable"))

		h := newMux(newTestStorefront(t, svc, nil))
		id := decode[struct {
			Recipients []struct {
				ID string `json:"id"`
			} `json:"recipients"`
		}](t, do(t, h, http.MethodGet, "/recipients", "")).Recipients[0].ID
		fillPrimary(t, h, id)
		do(t, h, http.MethodPost, "/cart/items/item-1/quantity", `{"delta": 3}`)

		rec := do(t, h, http.MethodPost, "/orders", "")

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		conf := decode[domain.OrderConfirmation](t, rec)
		assert.Regexp(t, `^KK\d{6}$`, conf.OrderNumber)
		assert.True(t, conf.Fallback)
		assert.Equal(t, int64(171), conf.TotalAmount)

		rec = do(t, h, http.MethodGet, "/orders/confirmation", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, conf.OrderNumber, decode[domain.OrderConfirmation](t, rec).OrderNumber)

		assert.Contains(t, do(t, h, http.MethodGet, "/cart", "").Body.String(), `"total_amount":0`)

		rec = do(t, h, http.MethodDelete, "/orders/confirmation", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(t, h, http.MethodGet, "/orders/confirmation", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrderHandler_Language(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))

	rec := do(t, h, http.MethodGet, "/language", "")
	assert.JSONEq(t, `{"language":"Assamese"}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/language", `{"language":"English"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"language":"English"}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/language", `{"language":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/language", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type basketBody struct {
	Lines []cart.Line `json:"lines"`
	Total int64       `json:"total"`
	Count int         `json:"count"`
}

func TestBasketHandler(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))

	do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A1","quantity":2}`)
	rec := do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A1","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[basketBody](t, rec)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, 5, body.Lines[0].Quantity)

	rec = do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A2"}`)
	body = decode[basketBody](t, rec)
	assert.Len(t, body.Lines, 2, "same product at another grade is a separate line")
	assert.Equal(t, 6, body.Count)
	assert.Equal(t, int64(5*56+50), body.Total)

	rec = do(t, h, http.MethodPost, "/basket/lines/item-1/A2", `{"quantity":0}`)
	assert.Len(t, decode[basketBody](t, rec).Lines, 1)

	rec = do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-404"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/basket/lines/item-1/A1", "")
	assert.Equal(t, 0, decode[basketBody](t, rec).Count)

	rec = do(t, h, http.MethodGet, "/basket", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/basket", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasketHandler_QuantityBound(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, nil))
	bound := strconv.Itoa(cart.MaxQuantity)

	rec := do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A1","quantity":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A1","quantity":`+bound+`}`)
	rec = do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-1","grade":"A1","quantity":`+bound+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[basketBody](t, rec)
	assert.Equal(t, cart.MaxQuantity, body.Count)
	assert.Equal(t, int64(56)*cart.MaxQuantity, body.Total)

	rec = do(t, h, http.MethodPost, "/basket/lines/item-1/A1", `{"quantity":-9223372036854775808}`)
	assert.Empty(t, decode[basketBody](t, rec).Lines)
}

func TestBasketHandler_SaveFailureKeepsChange(t *testing.T) {
	h := newMux(newTestStorefront(t, nil, failingStore{store.NewMemoryStore()}))

	rec := do(t, h, http.MethodPost, "/basket/lines", `{"id":"item-2","grade":"A1","quantity":1}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp struct {
		basketBody
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.EUNAVAILABLE, resp.Error.Code)
	assert.Equal(t, 1, resp.Count)
}

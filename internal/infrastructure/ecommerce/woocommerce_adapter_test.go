package ecommerce

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *WooCommerceAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter, err := NewWooCommerceAdapter(&WooCommerceConfig{
		BaseURL:        srv.URL + "/",
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		PerPage:        2,
	}, nil)
	require.NoError(t, err)
	return adapter
}

func TestWooCommerceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  WooCommerceConfig
		wantErr error
	}{
		{"valid", WooCommerceConfig{BaseURL: "https://shop.example.com", ConsumerKey: "ck", ConsumerSecret: "cs"}, nil},
		{"missing base url", WooCommerceConfig{ConsumerKey: "ck", ConsumerSecret: "cs"}, ErrWooConfigMissingBaseURL},
		{"relative base url", WooCommerceConfig{BaseURL: "shop.example.com", ConsumerKey: "ck", ConsumerSecret: "cs"}, ErrWooConfigInvalidBaseURL},
		{"missing key", WooCommerceConfig{BaseURL: "https://shop.example.com", ConsumerSecret: "cs"}, ErrWooConfigMissingConsumerKey},
		{"missing secret", WooCommerceConfig{BaseURL: "https://shop.example.com", ConsumerKey: "ck"}, ErrWooConfigMissingConsumerSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultWooPerPage, tt.config.PerPage)
			assert.Equal(t, defaultWooTimeout, tt.config.Timeout)
		})
	}

	capped := WooCommerceConfig{BaseURL: "https://shop.example.com", ConsumerKey: "ck", ConsumerSecret: "cs", PerPage: 500}
	require.NoError(t, capped.Validate())
	assert.Equal(t, maxWooPerPage, capped.PerPage)
}

func TestWooCommerceAdapter_FetchProductsPage(t *testing.T) {
	var gotQuery map[string]string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck_test" || pass != "cs_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		gotQuery = map[string]string{
			"page":     r.URL.Query().Get("page"),
			"per_page": r.URL.Query().Get("per_page"),
		}
		w.Header().Set("X-WP-Total", "3")
		w.Header().Set("X-WP-TotalPages", "2")
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`[
				{"id": 10, "name": "Tenis", "sku": "TEN", "type": "variable", "status": "publish",
				 "price": "199.90", "regular_price": "219.90", "sale_price": "199.90", "on_sale": true,
				 "manage_stock": false, "stock_quantity": null, "stock_status": "instock",
				 "date_modified_gmt": "2025-03-01T12:00:00"},
				{"id": 11, "name": "Meia", "sku": "MEIA", "type": "simple", "status": "publish",
				 "price": "", "regular_price": "9.90", "sale_price": "", "on_sale": false,
				 "manage_stock": true, "stock_quantity": 7, "stock_status": "instock",
				 "date_modified_gmt": "2025-03-02T08:30:00"}
			]`))
		default:
			_, _ = w.Write([]byte(`[
				{"id": 12, "name": "Bone", "type": "grouped", "stock_quantity": -2,
				 "date_modified": "2025-03-03T10:00:00"}
			]`))
		}
	})
	ctx := context.Background()

	page, err := adapter.FetchProductsPage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page": "1", "per_page": "2"}, gotQuery)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "2", page.NextCursor)
	require.Len(t, page.Items, 2)

	tenis := page.Items[0]
	assert.Equal(t, int64(10), tenis.ID)
	assert.Equal(t, catalog.ProductTypeVariable, tenis.Type)
	assert.True(t, tenis.Price.Equal(decimal.RequireFromString("199.90")))
	assert.Equal(t, int64(0), tenis.StockQuantity)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), tenis.UpdatedAt)

	meia := page.Items[1]
	assert.True(t, meia.Price.IsZero())
	assert.Equal(t, int64(7), meia.StockQuantity)
	assert.True(t, meia.ManageStock)

	last, err := adapter.FetchProductsPage(ctx, page.NextCursor)
	require.NoError(t, err)
	assert.Empty(t, last.NextCursor)
	require.Len(t, last.Items, 1)
	assert.Equal(t, catalog.ProductTypeSimple, last.Items[0].Type)
	assert.Equal(t, int64(0), last.Items[0].StockQuantity)
}

func TestWooCommerceAdapter_ShortPageEndsWithoutHeaders(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "date_modified_gmt": "2025-03-01T12:00:00"}]`))
	})

	page, err := adapter.FetchProductsPage(context.Background(), "4")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	assert.Zero(t, page.Total)
}

func TestWooCommerceAdapter_FetchVariationsPage(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/products/10/variations", r.URL.Path)
		w.Header().Set("X-WP-Total", "1")
		w.Header().Set("X-WP-TotalPages", "1")
		_, _ = w.Write([]byte(`[
			{"id": 101, "sku": "TEN-41", "price": "199.90", "regular_price": "199.90",
			 "stock_quantity": 3, "stock_status": "instock",
			 "attributes": [{"id": 1, "name": "Tamanho", "option": "41"}],
			 "date_modified_gmt": "2025-03-01T12:00:00"}
		]`))
	})

	page, err := adapter.FetchVariationsPage(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	require.Len(t, page.Items, 1)
	v := page.Items[0]
	assert.Equal(t, int64(10), v.ParentID)
	assert.Equal(t, int64(3), v.StockQuantity)
	assert.Equal(t, []catalog.VariationAttribute{{Name: "Tamanho", Option: "41"}}, v.Attributes)

	_, err = adapter.FetchVariationsPage(context.Background(), 0, "")
	assert.False(t, integration.IsRetriable(err))
}

func TestWooCommerceAdapter_SkipsUndecodableRecords(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-Total", "2")
		w.Header().Set("X-WP-TotalPages", "1")
		_, _ = w.Write([]byte(`[
			{"id": 11, "stock_quantity": 4, "date_modified_gmt": "2025-03-01T12:00:00"},
			{"id": 12, "stock_quantity": 9, "date_modified_gmt": "not-a-date"}
		]`))
	})

	page, err := adapter.FetchVariationsPage(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(11), page.Items[0].ID)
	require.Len(t, page.Skipped, 1)
	skipped := page.Skipped[0]
	assert.Equal(t, catalog.RecordKindVariation, skipped.Kind)
	assert.Equal(t, int64(12), skipped.ID)
	assert.Equal(t, int64(10), skipped.ParentID)
	assert.Contains(t, skipped.Reason, "variation 12")
	assert.False(t, skipped.Warning)

	products, err := adapter.FetchProductsPage(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, products.Items, 1)
	require.Len(t, products.Skipped, 1)
	assert.Equal(t, catalog.RecordKindProduct, products.Skipped[0].Kind)
}

func TestWooCommerceAdapter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retriable bool
		wantErr   error
	}{
		{"server error", http.StatusServiceUnavailable, "", true, integration.ErrProviderUnavailable},
		{"rate limited", http.StatusTooManyRequests, "", true, integration.ErrProviderRateLimited},
		{"bad credentials", http.StatusUnauthorized, `{"code":"woocommerce_rest_cannot_view","message":"Sorry"}`, false, integration.ErrProviderAuthFailed},
		{"not found", http.StatusNotFound, "", false, integration.ErrProviderRequestFailed},
		{"malformed body", http.StatusOK, `{"not":"a list"}`, false, integration.ErrProviderInvalidResponse},
		{"missing modification time", http.StatusOK, `[{"id": 3}]`, false, integration.ErrProviderInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := adapter.FetchProductsPage(context.Background(), "")
			require.Error(t, err)
			var pe *integration.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.retriable, pe.Retriable)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWooCommerceAdapter_TransportFailureIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	adapter, err := NewWooCommerceAdapter(&WooCommerceConfig{
		BaseURL: srv.URL, ConsumerKey: "ck", ConsumerSecret: "cs",
	}, nil)
	require.NoError(t, err)
	srv.Close()

	_, err = adapter.FetchProductsPage(context.Background(), "")
	assert.True(t, integration.IsRetriable(err))
	assert.ErrorIs(t, err, integration.ErrProviderUnavailable)
}

func TestWooCommerceAdapter_CancelledContext(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.FetchProductsPage(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, integration.IsRetriable(err))
}

func TestWooCommerceAdapter_InvalidCursor(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := adapter.FetchProductsPage(context.Background(), "abc")
	assert.ErrorIs(t, err, integration.ErrProviderRequestFailed)
	assert.False(t, integration.IsRetriable(err))
}

package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxResponseSize caps a single page body (10MB)
const maxResponseSize = 10 * 1024 * 1024

// WooCommerceAdapter implements integration.CatalogProvider against the
// WooCommerce REST API v3. Cursors are page numbers.
type WooCommerceAdapter struct {
	config     *WooCommerceConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ integration.CatalogProvider = (*WooCommerceAdapter)(nil)

// NewWooCommerceAdapter creates an adapter with a traced HTTP client
func NewWooCommerceAdapter(config *WooCommerceConfig, logger *zap.Logger) (*WooCommerceAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WooCommerceAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("woocommerce"),
	}, nil
}

// FetchProductsPage returns one page of the store's products
func (a *WooCommerceAdapter) FetchProductsPage(ctx context.Context, cursor string) (*integration.ProductPage, error) {
	const op = "woocommerce.fetch_products"
	page, err := parseCursor(op, cursor)
	if err != nil {
		return nil, err
	}

	var items []WooProduct
	meta, err := a.getPage(ctx, op, "/products", page, &items)
	if err != nil {
		return nil, err
	}

	out := &integration.ProductPage{Total: meta.total}
	for i := range items {
		p, err := items[i].ToMirrored()
		if err != nil {
			out.Skipped = append(out.Skipped, a.undecodable(op, catalog.RecordFailure{
				Kind: catalog.RecordKindProduct, ID: items[i].ID,
			}, err))
			continue
		}
		out.Items = append(out.Items, p)
	}
	out.NextCursor = meta.next(page, len(items), a.config.PerPage)
	return out, nil
}

// FetchVariationsPage returns one page of variations of parentID
func (a *WooCommerceAdapter) FetchVariationsPage(ctx context.Context, parentID int64, cursor string) (*integration.VariationPage, error) {
	const op = "woocommerce.fetch_variations"
	if parentID <= 0 {
		return nil, integration.NewProviderError(op, false,
			fmt.Errorf("%w: invalid parent id %d", integration.ErrProviderRequestFailed, parentID))
	}
	page, err := parseCursor(op, cursor)
	if err != nil {
		return nil, err
	}

	var items []WooVariation
	path := "/products/" + strconv.FormatInt(parentID, 10) + "/variations"
	meta, err := a.getPage(ctx, op, path, page, &items)
	if err != nil {
		return nil, err
	}

	out := &integration.VariationPage{Total: meta.total}
	for i := range items {
		v, err := items[i].ToMirrored(parentID)
		if err != nil {
			out.Skipped = append(out.Skipped, a.undecodable(op, catalog.RecordFailure{
				Kind: catalog.RecordKindVariation, ID: items[i].ID, ParentID: parentID,
			}, err))
			continue
		}
		out.Items = append(out.Items, v)
	}
	out.NextCursor = meta.next(page, len(items), a.config.PerPage)
	return out, nil
}

// undecodable reports one record the store returned in a shape that cannot be
// mirrored. The rest of its page is still usable.
func (a *WooCommerceAdapter) undecodable(op string, f catalog.RecordFailure, err error) catalog.RecordFailure {
	f.Reason = fmt.Sprintf("%v: %v", integration.ErrProviderInvalidResponse, err)
	a.logger.Warn("Skipping undecodable record",
		zap.String("op", op),
		zap.String("kind", f.Kind),
		zap.Int64("id", f.ID),
		zap.Error(err),
	)
	return f
}

type pageMeta struct {
	total      int
	totalPages int
}

// next returns the cursor of the following page, or "" on the last one. When
// the store omits X-WP-TotalPages a short page marks the end.
func (m pageMeta) next(page, got, perPage int) string {
	if m.totalPages > 0 {
		if page >= m.totalPages {
			return ""
		}
		return strconv.Itoa(page + 1)
	}
	if got < perPage {
		return ""
	}
	return strconv.Itoa(page + 1)
}

func parseCursor(op, cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, integration.NewProviderError(op, false,
			fmt.Errorf("%w: invalid cursor %q", integration.ErrProviderRequestFailed, cursor))
	}
	return page, nil
}

func (a *WooCommerceAdapter) getPage(ctx context.Context, op, path string, page int, into any) (pageMeta, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(a.config.PerPage))
	q.Set("orderby", "id")
	q.Set("order", "asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.endpoint(path)+"?"+q.Encode(), nil)
	if err != nil {
		return pageMeta{}, integration.NewProviderError(op, false,
			fmt.Errorf("%w: %v", integration.ErrProviderRequestFailed, err))
	}
	req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// a cancelled sync is not a provider outage
		if ctx.Err() != nil {
			return pageMeta{}, ctx.Err()
		}
		return pageMeta{}, integration.NewProviderError(op, true,
			fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return pageMeta{}, integration.NewProviderError(op, true,
			fmt.Errorf("%w: read body: %v", integration.ErrProviderUnavailable, err))
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		a.logger.Warn("Catalog provider request failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("page", page),
			zap.Int("status", resp.StatusCode),
		)
		return pageMeta{}, integration.NewProviderError(op, retriableStatus(resp.StatusCode), err)
	}

	if err := json.Unmarshal(body, into); err != nil {
		return pageMeta{}, integration.NewProviderError(op, false,
			fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err))
	}

	meta := pageMeta{}
	meta.total, _ = strconv.Atoi(resp.Header.Get("X-WP-Total"))
	meta.totalPages, _ = strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
	return meta, nil
}

// wooError is the error body returned by the REST API
type wooError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func classifyStatus(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	var we wooError
	detail := fmt.Sprintf("HTTP %d", status)
	if json.Unmarshal(body, &we) == nil && we.Code != "" {
		detail = fmt.Sprintf("HTTP %d %s: %s", status, we.Code, we.Message)
	}

	var base error
	switch {
	case status == http.StatusTooManyRequests:
		base = integration.ErrProviderRateLimited
	case status >= 500:
		base = integration.ErrProviderUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = integration.ErrProviderAuthFailed
	default:
		base = integration.ErrProviderRequestFailed
	}
	return fmt.Errorf("%w: %s", base, detail)
}

func retriableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

package ecommerce

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	defaultWooPerPage = 50
	maxWooPerPage     = 100
	defaultWooTimeout = 30 * time.Second
	wooAPIPrefix      = "/wp-json/wc/v3"
)

// Errors for WooCommerce configuration
var (
	ErrWooConfigMissingBaseURL        = errors.New("woocommerce: base url is required")
	ErrWooConfigInvalidBaseURL        = errors.New("woocommerce: base url must be an absolute http(s) url")
	ErrWooConfigMissingConsumerKey    = errors.New("woocommerce: consumer key is required")
	ErrWooConfigMissingConsumerSecret = errors.New("woocommerce: consumer secret is required")
)

// WooCommerceConfig holds the REST credentials of one store
type WooCommerceConfig struct {
	// BaseURL is the store root, e.g. https://shop.example.com
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	// PerPage is the page size requested from the store; the API caps it at 100
	PerPage int
	Timeout time.Duration
}

// Validate checks the required fields and fills defaults
func (c *WooCommerceConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrWooConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrWooConfigInvalidBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrWooConfigMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrWooConfigMissingConsumerSecret
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PerPage <= 0 {
		c.PerPage = defaultWooPerPage
	}
	if c.PerPage > maxWooPerPage {
		c.PerPage = maxWooPerPage
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultWooTimeout
	}
	return nil
}

func (c *WooCommerceConfig) endpoint(path string) string {
	return c.BaseURL + wooAPIPrefix + path
}

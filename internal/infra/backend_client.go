package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"papeleria/internal/dto"
	"papeleria/internal/model"

	"github.com/rs/zerolog/log"
)

const (
	pathProductos = "/productos/"
	pathVentas    = "/ventas/"
	pathCompras   = "/compras/"

	// maxErrorBody bounds how much of a failure response is read for {detail}.
	maxErrorBody = 1 << 20
)

// BackendClient is the HTTP client for the remote REST backend
// (productos, ventas, compras). Failures are never retried.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *CircuitBreaker // optional
}

// NewBackendClient builds a client for baseURL (e.g. http://localhost:8000/api).
// A nil httpClient uses a client without timeout; cancellation goes through ctx.
func NewBackendClient(baseURL string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithCircuitBreaker makes every call go through cb. Returns c.
func (c *BackendClient) WithCircuitBreaker(cb *CircuitBreaker) *BackendClient {
	c.breaker = cb
	return c
}

// CircuitState reports the breaker state; "disabled" when none is set.
func (c *BackendClient) CircuitState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// BaseURL returns the configured backend root.
func (c *BackendClient) BaseURL() string { return c.baseURL }

// ── Productos ─────────────────────────────────────────────────────────────────

func (c *BackendClient) ListProductos(ctx context.Context) ([]model.Producto, error) {
	var out []model.Producto
	if err := c.do(ctx, http.MethodGet, pathProductos, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackendClient) GetProducto(ctx context.Context, id model.ID) (*model.Producto, error) {
	var out model.Producto
	if err := c.do(ctx, http.MethodGet, itemPath(pathProductos, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) CreateProducto(ctx context.Context, req dto.ProductoRequest) (*model.Producto, error) {
	var out model.Producto
	if err := c.do(ctx, http.MethodPost, pathProductos, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) UpdateProducto(ctx context.Context, id model.ID, req dto.ProductoRequest) (*model.Producto, error) {
	var out model.Producto
	if err := c.do(ctx, http.MethodPut, itemPath(pathProductos, id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) DeleteProducto(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, itemPath(pathProductos, id), nil, nil)
}

// ── Ventas ────────────────────────────────────────────────────────────────────

func (c *BackendClient) ListVentas(ctx context.Context) ([]model.Venta, error) {
	var out []model.Venta
	if err := c.do(ctx, http.MethodGet, pathVentas, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackendClient) GetVenta(ctx context.Context, id model.ID) (*model.Venta, error) {
	var out model.Venta
	if err := c.do(ctx, http.MethodGet, itemPath(pathVentas, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) CreateVenta(ctx context.Context, req dto.TransaccionRequest) (*model.Venta, error) {
	var out model.Venta
	if err := c.do(ctx, http.MethodPost, pathVentas, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) UpdateVenta(ctx context.Context, id model.ID, req dto.TransaccionRequest) (*model.Venta, error) {
	var out model.Venta
	if err := c.do(ctx, http.MethodPut, itemPath(pathVentas, id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) DeleteVenta(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, itemPath(pathVentas, id), nil, nil)
}

// ── Compras ───────────────────────────────────────────────────────────────────

func (c *BackendClient) ListCompras(ctx context.Context) ([]model.Compra, error) {
	var out []model.Compra
	if err := c.do(ctx, http.MethodGet, pathCompras, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackendClient) GetCompra(ctx context.Context, id model.ID) (*model.Compra, error) {
	var out model.Compra
	if err := c.do(ctx, http.MethodGet, itemPath(pathCompras, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) CreateCompra(ctx context.Context, req dto.TransaccionRequest) (*model.Compra, error) {
	var out model.Compra
	if err := c.do(ctx, http.MethodPost, pathCompras, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) UpdateCompra(ctx context.Context, id model.ID, req dto.TransaccionRequest) (*model.Compra, error) {
	var out model.Compra
	if err := c.do(ctx, http.MethodPut, itemPath(pathCompras, id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) DeleteCompra(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, itemPath(pathCompras, id), nil, nil)
}

// Ping reports whether the backend answers at all. Any HTTP status counts as
// reachable; only a transport failure is an error.
func (c *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Method: http.MethodHead, Path: "/", Err: err}
	}
	return resp.Body.Close()
}

// ── Transport ─────────────────────────────────────────────────────────────────

func itemPath(collection string, id model.ID) string {
	return collection + url.PathEscape(id.String()) + "/"
}

// errorBody is the failure envelope. DRF uses {detail}; the ventas view of the
// backend answers stock failures with {error}.
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// do performs one request through the circuit breaker. Transport failures and
// 5xx answers count against it; a cancelled ctx and 4xx answers do not.
func (c *BackendClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.breaker == nil {
		return c.send(ctx, method, path, in, out)
	}
	if err := c.breaker.Allow(); err != nil {
		return &ConnectivityError{Method: method, Path: path, Err: err}
	}
	err := c.send(ctx, method, path, in, out)
	if err != nil && ctx.Err() != nil {
		c.breaker.Cancel()
		return err
	}
	c.breaker.Record(countsAsFailure(err))
	return err
}

func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var connErr *ConnectivityError
	if errors.As(err, &connErr) {
		return true
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode >= http.StatusInternalServerError
}

// send performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil and the body is not empty.
func (c *BackendClient) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Str("method", method).Str("path", path).Err(err).Msg("backend unreachable")
		return &ConnectivityError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var eb errorBody
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil && len(raw) > 0 {
			if json.Unmarshal(raw, &eb) == nil {
				reqErr.Detail = eb.Detail
				if reqErr.Detail == "" {
					reqErr.Detail = eb.Error
				}
			}
		}
		return reqErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

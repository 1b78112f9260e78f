package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"papeleria/internal/apierror"
	"papeleria/internal/config"
	"papeleria/internal/dto"
	"papeleria/internal/events"
	"papeleria/internal/infra"
	"papeleria/internal/model"
	"papeleria/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeDRF mimics the REST backend: decimals as strings, trailing slashes.
type fakeDRF struct {
	mu          sync.Mutex
	ventaPosts  []dto.TransaccionRequest
	compraPosts []dto.TransaccionRequest
	rechazo     string // when set, POST /ventas/ answers 400 {"detail": rechazo}
	productos   int
}

func (f *fakeDRF) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	hoy := time.Now().Format("2006-01-02T15:04:05")
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Path == "/api/productos/":
		f.productos++
		_, _ = io.WriteString(w, `[
			{"id":1,"codigo":"LAP-01","nombre":"Lapiz HB","descripcion":"","precio":"0.35","stock":10},
			{"id":2,"codigo":"CUA-100","nombre":"Cuaderno","descripcion":"","precio":"2.40","stock":3}
		]`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/ventas/":
		_, _ = io.WriteString(w, `[
			{"id":8,"fecha":"`+hoy+`","total":"4.80","items":[{"producto":2,"cantidad":2,"precio_venta":"2.40","subtotal":"4.80"}]},
			{"id":7,"fecha":"`+hoy+`","total":"0.70","items":[{"producto":1,"cantidad":2,"precio_venta":"0.35","subtotal":"0.70"}]}
		]`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/ventas/7/":
		_, _ = io.WriteString(w, `{"id":7,"fecha":"`+hoy+`","total":"0.70","items":[{"producto":1,"cantidad":2,"precio_venta":"0.35","subtotal":"0.70"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/compras/":
		_, _ = io.WriteString(w, `[]`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/ventas/":
		if f.rechazo != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"`+f.rechazo+`"}`)
			return
		}
		var req dto.TransaccionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.ventaPosts = append(f.ventaPosts, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":100,"fecha":"`+hoy+`","total":"0.70","items":[]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/compras/":
		var req dto.TransaccionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.compraPosts = append(f.compraPosts, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":200,"fecha":"`+hoy+`","total":"18.00","items":[]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"No encontrado."}`)
	}
}

func (f *fakeDRF) productosCargados() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productos
}

type testServer struct {
	engine *gin.Engine
	drf    *fakeDRF
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	drf := &fakeDRF{}
	backendSrv := httptest.NewServer(drf)
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		Env:            "test",
		CORSOrigin:     "*",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		TopProductos:   3,
	}
	backend := infra.NewBackendClient(backendSrv.URL+"/api", backendSrv.Client())
	bus := events.NewBus()
	sesiones := service.NewSesionService(backend, bus, bus, time.Minute)
	t.Cleanup(sesiones.Stop)

	engine := New(cfg, Deps{
		Backend:   backend,
		Sesiones:  sesiones,
		Productos: service.NewProductoService(backend, bus),
		Ventas:    service.NewVentaService(backend),
	})
	return &testServer{engine: engine, drf: drf}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) abrir(t *testing.T) string {
	w := s.do(t, http.MethodPost, "/v1/sesiones", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	ses := decode[dto.SesionResponse](t, w)
	require.NotEmpty(t, ses.ID)
	return ses.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"backend":"connected","redis":"disabled","circuit":"disabled"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSesion_ProductosFromCache(t *testing.T) {
	s := newTestServer(t)
	sid := s.abrir(t)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodGet, "/v1/sesiones/"+sid+"/productos", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.CacheResponse[[]model.Producto]](t, w)
		assert.False(t, resp.Loading)
		assert.False(t, resp.Error)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "Lapiz HB", resp.Data[0].Nombre)
	}
	assert.Equal(t, 1, s.drf.productosCargados())

	w := s.do(t, http.MethodPost, "/v1/sesiones/"+sid+"/revalidar", map[string]any{"claves": []string{"productos"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 2, s.drf.productosCargados())
}

func TestSesion_UnknownIs404(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/sesiones/nope/productos", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	sid := s.abrir(t)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/sesiones/"+sid, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/sesiones/"+sid+"/venta", nil).Code)
}

func TestVenta_BuildAndConfirm(t *testing.T) {
	s := newTestServer(t)
	sid := s.abrir(t)
	base := "/v1/sesiones/" + sid + "/venta"

	// Above stock.
	w := s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 2, "cantidad": 4})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	ve := decode[apierror.ValidationError](t, w)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "cantidad", ve.Fields[0].Field)

	w = s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 1, "cantidad": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": "2", "cantidad": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := decode[dto.TransaccionResponse](t, w)
	assert.Equal(t, "venta", tx.Tipo)
	assert.Equal(t, "en_curso", tx.Estado)
	require.Len(t, tx.Items, 2)
	assert.Equal(t, "Cuaderno", tx.Items[1].Nombre)
	assert.Equal(t, "3.10", tx.Total.StringFixed(2))

	// Duplicate product.
	w = s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 2, "cantidad": 1})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	ve = decode[apierror.ValidationError](t, w)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "producto", ve.Fields[0].Field)

	// Remove out of range is a no-op, then remove the cuaderno.
	w = s.do(t, http.MethodDelete, base+"/items/9", nil)
	assert.Len(t, decode[dto.TransaccionResponse](t, w).Items, 2)
	w = s.do(t, http.MethodDelete, base+"/items/1", nil)
	tx = decode[dto.TransaccionResponse](t, w)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, "0.70", tx.Total.StringFixed(2))

	w = s.do(t, http.MethodPost, base+"/confirmar", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx = decode[dto.TransaccionResponse](t, w)
	assert.Equal(t, model.ID("100"), tx.ID)
	assert.Equal(t, "confirmada", tx.Estado)

	s.drf.mu.Lock()
	require.Len(t, s.drf.ventaPosts, 1)
	posted := s.drf.ventaPosts[0]
	s.drf.mu.Unlock()
	require.Len(t, posted.Items, 1)
	assert.Equal(t, model.ID("1"), posted.Items[0].Producto)
	assert.Equal(t, "0.35", posted.Items[0].PrecioVenta.StringFixed(2))

	// A fresh sale is ready and the product list was revalidated.
	w = s.do(t, http.MethodGet, base, nil)
	tx = decode[dto.TransaccionResponse](t, w)
	assert.Equal(t, "en_curso", tx.Estado)
	assert.Empty(t, tx.Items)
	assert.Eventually(t, func() bool { return s.drf.productosCargados() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestVenta_ConfirmEmptyAndRejected(t *testing.T) {
	s := newTestServer(t)
	sid := s.abrir(t)
	base := "/v1/sesiones/" + sid + "/venta"

	w := s.do(t, http.MethodPost, base+"/confirmar", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":"Agregue al menos un producto"}`, w.Body.String())

	s.drf.mu.Lock()
	s.drf.rechazo = "Stock insuficiente para Lapiz HB"
	s.drf.mu.Unlock()

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 1, "cantidad": 1}).Code)
	w = s.do(t, http.MethodPost, base+"/confirmar", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Stock insuficiente para Lapiz HB"}`, w.Body.String())

	tx := decode[dto.TransaccionResponse](t, s.do(t, http.MethodGet, base, nil))
	assert.Len(t, tx.Items, 1)
	assert.Equal(t, "en_curso", tx.Estado)
}

func TestCompra_UsesEnteredPrice(t *testing.T) {
	s := newTestServer(t)
	sid := s.abrir(t)
	base := "/v1/sesiones/" + sid + "/compra"

	w := s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 2, "cantidad": 10})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, base+"/items", map[string]any{"producto": 2, "cantidad": 10, "precio_compra": "1.80"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/confirmar", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := decode[dto.TransaccionResponse](t, w)
	assert.Equal(t, "compra", tx.Tipo)
	assert.Equal(t, "18.00", tx.Total.StringFixed(2))

	s.drf.mu.Lock()
	defer s.drf.mu.Unlock()
	require.Len(t, s.drf.compraPosts, 1)
	assert.Equal(t, "1.80", s.drf.compraPosts[0].Items[0].PrecioCompra.StringFixed(2))
	assert.Nil(t, s.drf.compraPosts[0].Items[0].PrecioVenta)
}

func TestDashboardAndRecientes(t *testing.T) {
	s := newTestServer(t)
	sid := s.abrir(t)

	w := s.do(t, http.MethodGet, "/v1/sesiones/"+sid+"/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode[dto.DashboardResponse](t, w)
	assert.Equal(t, "5.50", d.TotalVentasHoy.StringFixed(2))
	assert.Equal(t, 4, d.ProductosVendidosHoy)
	assert.Equal(t, 2, d.TransaccionesHoy)
	assert.True(t, d.Crecimiento.IsZero())
	require.Len(t, d.TopProductos, 2)
	assert.Equal(t, "Cuaderno", d.TopProductos[0].Nombre)
	assert.False(t, d.Error)

	w = s.do(t, http.MethodGet, "/v1/sesiones/"+sid+"/ventas/recientes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[dto.CacheResponse[[]model.Venta]](t, w)
	require.Len(t, rec.Data, 2)
	assert.Equal(t, model.ID("8"), rec.Data[0].ID)
}

func TestProductos_ValidationAndUpstream404(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/productos", map[string]any{"precio": "-1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	ve := decode[apierror.ValidationError](t, w)
	assert.Equal(t, "Error de validacion", ve.Detail)
	assert.NotEmpty(t, ve.Fields)

	w = s.do(t, http.MethodGet, "/v1/productos/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"No encontrado."}`, w.Body.String())
}

func TestVentas_Ticket(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/ventas/7/ticket", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestBackendDown_Is502(t *testing.T) {
	drfSrv := httptest.NewServer(http.NotFoundHandler())
	base := drfSrv.URL
	drfSrv.Close()

	cfg := &config.Config{Env: "test", RateLimitRPS: 100, RateLimitBurst: 100, TopProductos: 3}
	backend := infra.NewBackendClient(base, nil)
	bus := events.NewBus()
	sesiones := service.NewSesionService(backend, bus, bus, time.Minute)
	defer sesiones.Stop()
	engine := New(cfg, Deps{
		Backend:   backend,
		Sesiones:  sesiones,
		Productos: service.NewProductoService(backend, bus),
		Ventas:    service.NewVentaService(backend),
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/productos", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"detail":"No se puede conectar con el servidor"}`, w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

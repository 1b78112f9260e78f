package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"papeleria/internal/dto"
	"papeleria/internal/events"
	"papeleria/internal/model"
	"papeleria/internal/transaccion"
	"papeleria/internal/validacion"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── fake backend ─────────────────────────────────────────────────────────────

type fakeBackend struct {
	mu        sync.Mutex
	productos []model.Producto
	ventas    []model.Venta
	compras   []model.Compra
	err       error

	listProductos atomic.Int32
	listVentas    atomic.Int32
	creates       atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		productos: []model.Producto{
			{ID: "1", Codigo: "LAP-01", Nombre: "Lapiz HB", Precio: decimal.RequireFromString("0.35"), Stock: 10},
			{ID: "2", Codigo: "CUA-100", Nombre: "Cuaderno", Precio: decimal.RequireFromString("2.40"), Stock: 3},
		},
	}
}

func (f *fakeBackend) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeBackend) ListProductos(context.Context) ([]model.Producto, error) {
	f.listProductos.Add(1)
	if err := f.failure(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Producto(nil), f.productos...), nil
}

func (f *fakeBackend) GetProducto(_ context.Context, id model.ID) (*model.Producto, error) {
	for _, p := range f.productos {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, errors.New("404")
}

func (f *fakeBackend) CreateProducto(_ context.Context, req dto.ProductoRequest) (*model.Producto, error) {
	f.creates.Add(1)
	return &model.Producto{ID: "99", Codigo: req.Codigo, Nombre: req.Nombre, Precio: req.Precio, Stock: req.Stock}, nil
}

func (f *fakeBackend) UpdateProducto(_ context.Context, id model.ID, req dto.ProductoRequest) (*model.Producto, error) {
	return &model.Producto{ID: id, Codigo: req.Codigo, Nombre: req.Nombre}, nil
}

func (f *fakeBackend) DeleteProducto(context.Context, model.ID) error { return f.failure() }

func (f *fakeBackend) ListVentas(context.Context) ([]model.Venta, error) {
	f.listVentas.Add(1)
	if err := f.failure(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Venta(nil), f.ventas...), nil
}

func (f *fakeBackend) GetVenta(_ context.Context, id model.ID) (*model.Venta, error) {
	for _, v := range f.ventas {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, errors.New("404")
}

func (f *fakeBackend) CreateVenta(_ context.Context, req dto.TransaccionRequest) (*model.Venta, error) {
	f.creates.Add(1)
	return &model.Venta{ID: "500"}, nil
}

func (f *fakeBackend) ListCompras(context.Context) ([]model.Compra, error) {
	return append([]model.Compra(nil), f.compras...), nil
}

func (f *fakeBackend) GetCompra(_ context.Context, id model.ID) (*model.Compra, error) {
	return &model.Compra{ID: id}, nil
}

func (f *fakeBackend) CreateCompra(_ context.Context, req dto.TransaccionRequest) (*model.Compra, error) {
	f.creates.Add(1)
	return &model.Compra{ID: "700"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MutationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.MutationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// ── sessions ─────────────────────────────────────────────────────────────────

func TestSesionService_Lifecycle(t *testing.T) {
	svc := NewSesionService(newFakeBackend(), nil, nil, time.Minute)
	defer svc.Stop()

	ses := svc.Abrir()
	assert.NotEmpty(t, ses.ID)
	assert.Equal(t, 1, svc.Count())

	got, err := svc.Obtener(ses.ID)
	require.NoError(t, err)
	assert.Same(t, ses, got)

	require.NoError(t, svc.Cerrar(ses.ID))
	_, err = svc.Obtener(ses.ID)
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
	assert.ErrorIs(t, svc.Cerrar(ses.ID), ErrSesionNoEncontrada)

	// The cache was torn down with the session.
	_, err = ses.Productos(context.Background())
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
}

func TestSesionService_ExpiredSessionIsClosed(t *testing.T) {
	svc := NewSesionService(newFakeBackend(), nil, nil, 20*time.Millisecond)
	defer svc.Stop()

	ses := svc.Abrir()
	require.Eventually(t, func() bool {
		_, err := ses.Productos(context.Background())
		return errors.Is(err, ErrSesionNoEncontrada)
	}, 2*time.Second, 10*time.Millisecond)
	_, err := svc.Obtener(ses.ID)
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
}

func TestSesion_ProductosSharedAcrossConsumers(t *testing.T) {
	be := newFakeBackend()
	svc := NewSesionService(be, nil, nil, time.Minute)
	defer svc.Stop()
	ses := svc.Abrir()

	st, err := ses.Productos(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Loading)
	assert.Len(t, st.Data, 2)

	_, err = ses.Catalogo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), be.listProductos.Load())
}

func TestSesion_CatalogoUnavailable(t *testing.T) {
	be := newFakeBackend()
	be.err = errors.New("sin conexion")
	svc := NewSesionService(be, nil, nil, time.Minute)
	defer svc.Stop()
	ses := svc.Abrir()

	_, err := ses.AgregarLinea(context.Background(), transaccion.Venta, transaccion.LineaInput{Producto: "1", Cantidad: 1})
	assert.EqualError(t, err, "sin conexion")

	st, err := ses.Productos(context.Background())
	require.NoError(t, err)
	assert.Error(t, st.Err)
	assert.False(t, st.HasData)
}

func TestSesion_ConfirmarRevalidatesEverySession(t *testing.T) {
	be := newFakeBackend()
	bus := events.NewBus()
	svc := NewSesionService(be, bus, bus, time.Minute)
	defer svc.Stop()

	a, b := svc.Abrir(), svc.Abrir()
	_, err := a.Productos(context.Background())
	require.NoError(t, err)
	_, err = b.Ventas(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), be.listProductos.Load())
	require.Equal(t, int32(1), be.listVentas.Load())

	_, err = a.AgregarLinea(context.Background(), transaccion.Venta, transaccion.LineaInput{Producto: "2", Cantidad: 2})
	require.NoError(t, err)
	before := a.Builder(transaccion.Venta)

	confirmed, conf, err := a.Confirmar(context.Background(), transaccion.Venta)
	require.NoError(t, err)
	assert.Same(t, before, confirmed)
	assert.Equal(t, model.ID("500"), conf.ID)
	assert.Equal(t, transaccion.Confirmada, confirmed.Estado())

	fresh := a.Builder(transaccion.Venta)
	assert.NotSame(t, before, fresh)
	assert.Equal(t, transaccion.EnCurso, fresh.Estado())
	assert.Empty(t, fresh.Items())

	// productos is held by a, ventas by b; both refetch.
	assert.Eventually(t, func() bool {
		return be.listProductos.Load() == 2 && be.listVentas.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSesion_ConfirmarEmptyKeepsBuilder(t *testing.T) {
	svc := NewSesionService(newFakeBackend(), nil, nil, time.Minute)
	defer svc.Stop()
	ses := svc.Abrir()

	before := ses.Builder(transaccion.Compra)
	_, _, err := ses.Confirmar(context.Background(), transaccion.Compra)
	assert.ErrorIs(t, err, transaccion.ErrSinItems)
	assert.Same(t, before, ses.Builder(transaccion.Compra))
}

func TestSesion_Dashboard(t *testing.T) {
	now := time.Now()
	be := newFakeBackend()
	be.ventas = []model.Venta{
		{ID: "1", Fecha: model.NewFecha(now), Total: decimal.RequireFromString("3.10"), Items: []model.VentaItem{
			{Producto: "1", Cantidad: 2}, {Producto: "2", Cantidad: 1},
		}},
	}
	svc := NewSesionService(be, nil, nil, time.Minute)
	defer svc.Stop()
	ses := svc.Abrir()

	d, err := ses.Dashboard(context.Background(), now, 3)
	require.NoError(t, err)
	assert.NoError(t, d.Err)
	assert.Equal(t, "3.10", d.Resumen.TotalVentasHoy.StringFixed(2))
	assert.Equal(t, 3, d.Resumen.ProductosVendidosHoy)
	require.Len(t, d.Resumen.TopProductos, 2)
	assert.Equal(t, "Lapiz HB", d.Nombres[d.Resumen.TopProductos[0].Producto])
}

// ── productos ────────────────────────────────────────────────────────────────

func TestProductoService_ValidationSkipsBackend(t *testing.T) {
	be := newFakeBackend()
	pub := &recordingPublisher{}
	svc := NewProductoService(be, pub)

	_, err := svc.Crear(context.Background(), dto.ProductoRequest{Precio: decimal.NewFromInt(-1)})
	ve, ok := validacion.As(err)
	require.True(t, ok)
	msgs := map[string]string{}
	for _, f := range ve.Fields {
		msgs[f.Field] = f.Message
	}
	assert.Equal(t, "El código es requerido", msgs["codigo"])
	assert.Equal(t, "El nombre es requerido", msgs["nombre"])
	assert.Equal(t, "El precio debe ser mayor o igual a 0", msgs["precio"])
	assert.Zero(t, be.creates.Load())
	assert.Empty(t, pub.events)
}

func TestProductoService_CrearPublishesMutation(t *testing.T) {
	be := newFakeBackend()
	pub := &recordingPublisher{}
	svc := NewProductoService(be, pub)

	p, err := svc.Crear(context.Background(), dto.ProductoRequest{
		Codigo: "BOL-AZ", Nombre: "Boligrafo azul", Precio: decimal.RequireFromString("0.80"), Stock: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ID("99"), p.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, []string{events.ClaveProductos}, pub.events[0].Claves)

	require.NoError(t, svc.Eliminar(context.Background(), "99"))
	assert.Len(t, pub.events, 2)
}

func TestProductoService_FailedDeleteDoesNotPublish(t *testing.T) {
	be := newFakeBackend()
	be.err = errors.New("404")
	pub := &recordingPublisher{}
	svc := NewProductoService(be, pub)

	require.Error(t, svc.Eliminar(context.Background(), "1"))
	assert.Empty(t, pub.events)
}

// ── tickets ──────────────────────────────────────────────────────────────────

func TestVentaService_Ticket(t *testing.T) {
	be := newFakeBackend()
	be.ventas = []model.Venta{{
		ID: "7", Fecha: model.NewFecha(time.Now()), Total: decimal.RequireFromString("0.70"),
		Items: []model.VentaItem{{Producto: "1", Cantidad: 2, PrecioVenta: decimal.RequireFromString("0.35")}},
	}}
	svc := NewVentaService(be)

	var buf bytes.Buffer
	require.NoError(t, svc.Ticket(context.Background(), "7", &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	assert.Error(t, svc.Ticket(context.Background(), "8", &buf))
	assert.Zero(t, buf.Len())
}

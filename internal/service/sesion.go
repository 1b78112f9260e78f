package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"papeleria/internal/cache"
	"papeleria/internal/events"
	"papeleria/internal/model"
	"papeleria/internal/reporte"
	"papeleria/internal/transaccion"
)

var (
	ErrSesionNoEncontrada   = errors.New("Sesion no encontrada o expirada")
	ErrCatalogoNoDisponible = errors.New("No se pudo cargar la lista de productos")
)

// Sesion is one mounted front-end page: it owns the fetch cache and the
// in-progress sale and purchase.
type Sesion struct {
	ID        string
	CreatedAt time.Time

	store   *cache.Store
	backend Backend
	pub     events.Publisher

	mu        sync.Mutex
	productos *cache.Query[[]model.Producto]
	ventas    *cache.Query[[]model.Venta]
	compras   *cache.Query[[]model.Compra]
	builders  map[transaccion.Kind]*transaccion.Builder
}

func newSesion(id string, backend Backend, pub events.Publisher) *Sesion {
	s := &Sesion{
		ID:        id,
		CreatedAt: time.Now(),
		store:     cache.New(context.Background()),
		backend:   backend,
		pub:       pub,
		builders:  map[transaccion.Kind]*transaccion.Builder{},
	}
	s.builders[transaccion.Venta] = transaccion.New(transaccion.PoliticaVenta(), backend, pub)
	s.builders[transaccion.Compra] = transaccion.New(transaccion.PoliticaCompra(), backend, pub)
	return s
}

// use returns the session's subscription for key, subscribing on first use.
// Must be called with s.mu held.
func use[T any](s *Sesion, q **cache.Query[T], key string, fetch func(context.Context) (T, error)) (*cache.Query[T], error) {
	if *q != nil {
		return *q, nil
	}
	nq, err := cache.Use(s.store, key, fetch)
	if err != nil {
		return nil, err
	}
	*q = nq
	return nq, nil
}

func (s *Sesion) queryProductos() (*cache.Query[[]model.Producto], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return use(s, &s.productos, events.ClaveProductos, s.backend.ListProductos)
}

func (s *Sesion) queryVentas() (*cache.Query[[]model.Venta], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return use(s, &s.ventas, events.ClaveVentas, s.backend.ListVentas)
}

func (s *Sesion) queryCompras() (*cache.Query[[]model.Compra], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return use(s, &s.compras, events.ClaveCompras, s.backend.ListCompras)
}

// wait returns the state after the first load, or the loading state when
// ctx ends first. Only a closed store is reported as an error.
func wait[T any](ctx context.Context, q *cache.Query[T]) (cache.State[T], error) {
	st, err := q.Wait(ctx)
	if errors.Is(err, cache.ErrClosed) {
		return st, ErrSesionNoEncontrada
	}
	return st, nil
}

func (s *Sesion) Productos(ctx context.Context) (cache.State[[]model.Producto], error) {
	q, err := s.queryProductos()
	if err != nil {
		return cache.State[[]model.Producto]{}, ErrSesionNoEncontrada
	}
	return wait(ctx, q)
}

func (s *Sesion) Ventas(ctx context.Context) (cache.State[[]model.Venta], error) {
	q, err := s.queryVentas()
	if err != nil {
		return cache.State[[]model.Venta]{}, ErrSesionNoEncontrada
	}
	return wait(ctx, q)
}

func (s *Sesion) Compras(ctx context.Context) (cache.State[[]model.Compra], error) {
	q, err := s.queryCompras()
	if err != nil {
		return cache.State[[]model.Compra]{}, ErrSesionNoEncontrada
	}
	return wait(ctx, q)
}

// Revalidar refetches the named keys, or all of them when none is given.
func (s *Sesion) Revalidar(ctx context.Context, claves ...string) error {
	err := s.store.Revalidate(ctx, claves...)
	if errors.Is(err, cache.ErrClosed) {
		return ErrSesionNoEncontrada
	}
	return err
}

// Catalogo returns the loaded product list used to validate new lines.
func (s *Sesion) Catalogo(ctx context.Context) (model.Catalogo, error) {
	st, err := s.Productos(ctx)
	if err != nil {
		return nil, err
	}
	if !st.HasData {
		if st.Err != nil {
			return nil, st.Err
		}
		return nil, ErrCatalogoNoDisponible
	}
	return model.Catalogo(st.Data), nil
}

// Builder returns the in-progress transaction of kind.
func (s *Sesion) Builder(kind transaccion.Kind) *transaccion.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builders[kind]
}

// AgregarLinea adds a line to the in-progress transaction of kind, validated
// against the session's product list.
func (s *Sesion) AgregarLinea(ctx context.Context, kind transaccion.Kind, in transaccion.LineaInput) (transaccion.Linea, error) {
	cat, err := s.Catalogo(ctx)
	if err != nil {
		return transaccion.Linea{}, err
	}
	return s.Builder(kind).AgregarLinea(cat, in)
}

// Confirmar submits the in-progress transaction of kind. On success the
// session starts a fresh one; the confirmed builder is returned for display.
func (s *Sesion) Confirmar(ctx context.Context, kind transaccion.Kind) (*transaccion.Builder, transaccion.Confirmacion, error) {
	b := s.Builder(kind)
	conf, err := b.Confirmar(ctx)
	if err != nil {
		return b, conf, err
	}
	s.mu.Lock()
	if s.builders[kind] == b {
		s.builders[kind] = transaccion.New(b.Politica(), s.backend, s.pub)
	}
	s.mu.Unlock()
	return b, conf, nil
}

// Dashboard is the aggregated view plus product names for the ranking.
type Dashboard struct {
	Resumen reporte.Resumen
	Nombres map[model.ID]string
	Loading bool
	Err     error
}

func (s *Sesion) Dashboard(ctx context.Context, now time.Time, topN int) (Dashboard, error) {
	ventas, err := s.Ventas(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	productos, err := s.Productos(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Resumen: reporte.Calcular(ventas.Data, now, topN),
		Nombres: nombresDe(productos.Data),
		Loading: ventas.Loading,
		Err:     ventas.Err,
	}, nil
}

// Close tears the session down; fetches still in flight are discarded.
func (s *Sesion) Close() {
	s.store.Close()
}

package service

import (
	"context"

	"papeleria/internal/dto"
	"papeleria/internal/events"
	"papeleria/internal/model"
	"papeleria/internal/validacion"

	"github.com/rs/zerolog/log"
)

// ProductoService defines the product maintenance contract (inventory page).
type ProductoService interface {
	Listar(ctx context.Context) ([]model.Producto, error)
	ObtenerPorID(ctx context.Context, id model.ID) (*model.Producto, error)
	Crear(ctx context.Context, req dto.ProductoRequest) (*model.Producto, error)
	Actualizar(ctx context.Context, id model.ID, req dto.ProductoRequest) (*model.Producto, error)
	Eliminar(ctx context.Context, id model.ID) error
}

var mensajesProducto = map[string]string{
	"codigo.required": "El código es requerido",
	"nombre.required": "El nombre es requerido",
	"precio.min":      "El precio debe ser mayor o igual a 0",
	"stock.min":       "El stock debe ser mayor o igual a 0",
}

type productoService struct {
	backend Backend
	pub     events.Publisher
}

func NewProductoService(backend Backend, pub events.Publisher) ProductoService {
	return &productoService{backend: backend, pub: pub}
}

func (s *productoService) Listar(ctx context.Context) ([]model.Producto, error) {
	return s.backend.ListProductos(ctx)
}

func (s *productoService) ObtenerPorID(ctx context.Context, id model.ID) (*model.Producto, error) {
	return s.backend.GetProducto(ctx, id)
}

func (s *productoService) Crear(ctx context.Context, req dto.ProductoRequest) (*model.Producto, error) {
	if err := validacion.Struct(req, mensajesProducto).Err(); err != nil {
		return nil, err
	}
	p, err := s.backend.CreateProducto(ctx, req)
	if err != nil {
		return nil, err
	}
	s.notificar(ctx)
	return p, nil
}

func (s *productoService) Actualizar(ctx context.Context, id model.ID, req dto.ProductoRequest) (*model.Producto, error) {
	if err := validacion.Struct(req, mensajesProducto).Err(); err != nil {
		return nil, err
	}
	p, err := s.backend.UpdateProducto(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.notificar(ctx)
	return p, nil
}

func (s *productoService) Eliminar(ctx context.Context, id model.ID) error {
	if err := s.backend.DeleteProducto(ctx, id); err != nil {
		return err
	}
	s.notificar(ctx)
	return nil
}

func (s *productoService) notificar(ctx context.Context) {
	if s.pub == nil {
		return
	}
	ev := events.NewMutation("productos", events.ClaveProductos)
	if err := s.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Msg("productos: no se pudo publicar la mutacion")
	}
}

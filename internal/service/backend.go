package service

import (
	"context"

	"papeleria/internal/dto"
	"papeleria/internal/model"
	"papeleria/internal/transaccion"
)

// Backend is the part of the REST client the services use.
// *infra.BackendClient satisfies it.
type Backend interface {
	transaccion.Backend

	ListProductos(ctx context.Context) ([]model.Producto, error)
	GetProducto(ctx context.Context, id model.ID) (*model.Producto, error)
	CreateProducto(ctx context.Context, req dto.ProductoRequest) (*model.Producto, error)
	UpdateProducto(ctx context.Context, id model.ID, req dto.ProductoRequest) (*model.Producto, error)
	DeleteProducto(ctx context.Context, id model.ID) error

	ListVentas(ctx context.Context) ([]model.Venta, error)
	GetVenta(ctx context.Context, id model.ID) (*model.Venta, error)

	ListCompras(ctx context.Context) ([]model.Compra, error)
	GetCompra(ctx context.Context, id model.ID) (*model.Compra, error)
}

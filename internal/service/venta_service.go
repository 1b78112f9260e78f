package service

import (
	"context"
	"fmt"
	"io"

	"papeleria/internal/infra"
	"papeleria/internal/model"
)

// VentaService serves sale and purchase details and sale tickets.
type VentaService interface {
	ObtenerVenta(ctx context.Context, id model.ID) (*model.Venta, error)
	ObtenerCompra(ctx context.Context, id model.ID) (*model.Compra, error)
	// Ticket writes the PDF receipt of a sale to w.
	Ticket(ctx context.Context, id model.ID, w io.Writer) error
}

type ventaService struct {
	backend Backend
}

func NewVentaService(backend Backend) VentaService {
	return &ventaService{backend: backend}
}

func (s *ventaService) ObtenerVenta(ctx context.Context, id model.ID) (*model.Venta, error) {
	return s.backend.GetVenta(ctx, id)
}

func (s *ventaService) ObtenerCompra(ctx context.Context, id model.ID) (*model.Compra, error) {
	return s.backend.GetCompra(ctx, id)
}

func (s *ventaService) Ticket(ctx context.Context, id model.ID, w io.Writer) error {
	v, err := s.backend.GetVenta(ctx, id)
	if err != nil {
		return err
	}
	nombres := map[model.ID]string{}
	// Names are best effort; the ticket falls back to product IDs.
	if productos, err := s.backend.ListProductos(ctx); err == nil {
		nombres = nombresDe(productos)
	}
	if err := infra.WriteTicketPDF(w, v, nombres); err != nil {
		return fmt.Errorf("ticket venta %s: %w", id, err)
	}
	return nil
}

func nombresDe(productos []model.Producto) map[model.ID]string {
	out := make(map[model.ID]string, len(productos))
	for _, p := range productos {
		out[p.ID] = p.Nombre
	}
	return out
}

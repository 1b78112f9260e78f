package dto

import (
	"papeleria/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Backend payloads ────────────────────────────────────────────────────────

// TransaccionItem is one line of POST /ventas/ or POST /compras/.
// Exactly one of the price fields is set depending on the transaction kind.
type TransaccionItem struct {
	Producto     model.ID         `json:"producto"`
	Cantidad     int              `json:"cantidad"`
	PrecioVenta  *decimal.Decimal `json:"precio_venta,omitempty"`
	PrecioCompra *decimal.Decimal `json:"precio_compra,omitempty"`
}

// TransaccionRequest is the batch create body sent once per transaction.
type TransaccionRequest struct {
	Items []TransaccionItem `json:"items"`
}

// ─── BFF request DTOs ────────────────────────────────────────────────────────

// AgregarLineaRequest is the body of POST /v1/sesiones/:sid/{venta|compra}/items.
// Validation happens in the transaction builder, not at bind time.
// precio_compra is accepted as an alias of precio_unitario.
type AgregarLineaRequest struct {
	Producto       model.ID         `json:"producto"`
	Cantidad       int              `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
	PrecioCompra   *decimal.Decimal `json:"precio_compra"`
}

// Precio returns the entered unit price, if any.
func (r AgregarLineaRequest) Precio() *decimal.Decimal {
	if r.PrecioUnitario != nil {
		return r.PrecioUnitario
	}
	return r.PrecioCompra
}

// ─── BFF response DTOs ───────────────────────────────────────────────────────

type LineaResponse struct {
	Indice         int             `json:"indice"`
	Producto       model.ID        `json:"producto"`
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type TransaccionResponse struct {
	ID     model.ID        `json:"id,omitempty"` // set once confirmed
	Tipo   string          `json:"tipo"`         // venta | compra
	Estado string          `json:"estado"`       // en_curso | confirmada
	Items  []LineaResponse `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

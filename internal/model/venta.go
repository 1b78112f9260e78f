package model

import (
	"github.com/shopspring/decimal"
)

// Venta is a finalized, server-persisted sale. Read-only for this system.
// Total may arrive as a JSON string ("125.50"); decimal handles both forms.
type Venta struct {
	ID    ID              `json:"id"`
	Fecha Fecha           `json:"fecha"`
	Total decimal.Decimal `json:"total"`
	Items []VentaItem     `json:"items"`
}

type VentaItem struct {
	Producto    ID              `json:"producto"`
	Cantidad    int             `json:"cantidad"`
	PrecioVenta decimal.Decimal `json:"precio_venta"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Unidades returns the number of units across all items of the sale.
func (v Venta) Unidades() int {
	n := 0
	for _, it := range v.Items {
		n += it.Cantidad
	}
	return n
}

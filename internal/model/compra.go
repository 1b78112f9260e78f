package model

import (
	"github.com/shopspring/decimal"
)

// Compra is a purchase record. The backend increments stock per item.
type Compra struct {
	ID    ID              `json:"id"`
	Fecha Fecha           `json:"fecha"`
	Total decimal.Decimal `json:"total"`
	Items []CompraItem    `json:"items"`
}

type CompraItem struct {
	Producto     ID              `json:"producto"`
	Cantidad     int             `json:"cantidad"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

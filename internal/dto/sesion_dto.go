package dto

import (
	"papeleria/internal/model"

	"github.com/shopspring/decimal"
)

type SesionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// CacheResponse wraps a cached list the way the page hooks expose it:
// last good value plus loading and error flags.
type CacheResponse[T any] struct {
	Data    T      `json:"data"`
	Loading bool   `json:"loading"`
	Error   bool   `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// RevalidarRequest names the cache keys to refetch; empty means all known keys.
type RevalidarRequest struct {
	Claves []string `json:"claves"`
}

// ─── Dashboard ───────────────────────────────────────────────────────────────

type TopProductoResponse struct {
	Producto model.ID `json:"producto"`
	Nombre   string   `json:"nombre"`
	Cantidad int      `json:"cantidad"`
}

type DashboardResponse struct {
	TotalVentasHoy       decimal.Decimal       `json:"total_ventas_hoy"`
	ProductosVendidosHoy int                   `json:"productos_vendidos_hoy"`
	TransaccionesHoy     int                   `json:"transacciones_hoy"`
	TotalVentasAyer      decimal.Decimal       `json:"total_ventas_ayer"`
	Crecimiento          decimal.Decimal       `json:"crecimiento"`
	TopProductos         []TopProductoResponse `json:"top_productos"`
	Loading              bool                  `json:"loading"`
	Error                bool                  `json:"error"`
}

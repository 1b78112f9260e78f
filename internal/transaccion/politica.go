package transaccion

import "papeleria/internal/events"

type Kind string

const (
	Venta  Kind = "venta"
	Compra Kind = "compra"
)

// Politica holds the per-kind rules of the builder.
type Politica struct {
	Kind Kind
	// RechazarDuplicados allows at most one line per product.
	RechazarDuplicados bool
	// ControlarStock rejects quantities above the product's stock.
	ControlarStock bool
	// PermitirPrecio accepts an entered unit price. When false the line is
	// priced at the product's current price and an entered one is rejected.
	PermitirPrecio bool
	// PrecioRequerido makes the entered unit price mandatory instead of
	// defaulting to the catalog price.
	PrecioRequerido bool
}

func PoliticaVenta() Politica {
	return Politica{Kind: Venta, RechazarDuplicados: true, ControlarStock: true}
}

func PoliticaCompra() Politica {
	return Politica{Kind: Compra, PermitirPrecio: true, PrecioRequerido: true}
}

// Claves are the cache keys a confirmed transaction of this kind makes stale.
func (p Politica) Claves() []string {
	if p.Kind == Compra {
		return []string{events.ClaveProductos, events.ClaveCompras}
	}
	return []string{events.ClaveProductos, events.ClaveVentas}
}

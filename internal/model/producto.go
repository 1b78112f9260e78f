package model

import (
	"github.com/shopspring/decimal"
)

// Producto is a sellable/purchasable item as served by GET /productos/.
// Stock is owned by the backend; this system never mutates it locally and
// relies on a refetch after every sale or purchase.
type Producto struct {
	ID          ID              `json:"id,omitempty"`
	Codigo      string          `json:"codigo"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
}

// Catalogo is a loaded product list indexed for lookups by ID.
type Catalogo []Producto

// Buscar returns the product with the given ID.
func (c Catalogo) Buscar(id ID) (Producto, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Producto{}, false
}

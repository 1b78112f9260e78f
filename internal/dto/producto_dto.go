package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ProductoRequest is the body of POST/PUT /v1/productos and is forwarded
// as-is to the backend.
type ProductoRequest struct {
	Codigo      string          `json:"codigo"      validate:"required,max=50"`
	Nombre      string          `json:"nombre"      validate:"required,max=200"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"      validate:"min=0"`
	Stock       int             `json:"stock"       validate:"min=0"`
}

package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"papeleria/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// ObtenerVenta godoc
// @Summary      Detalle de venta
// @Tags         ventas
// @Produce      json
// @Param        id   path     string true "ID de la venta"
// @Success      200  {object} model.Venta
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ticket godoc
// @Summary      Ticket PDF de una venta
// @Tags         ventas
// @Produce      application/pdf
// @Param        id   path     string true "ID de la venta"
// @Success      200  {file}   binary
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id}/ticket [get]
func (h *VentasHandler) Ticket(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Ticket(c.Request.Context(), id, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="ticket-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ObtenerCompra godoc
// @Summary      Detalle de compra
// @Tags         compras
// @Produce      json
// @Param        id   path     string true "ID de la compra"
// @Success      200  {object} model.Compra
// @Failure      404  {object} apierror.APIError
// @Router       /v1/compras/{id} [get]
func (h *VentasHandler) ObtenerCompra(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerCompra(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

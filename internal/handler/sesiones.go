package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"papeleria/internal/apierror"
	"papeleria/internal/cache"
	"papeleria/internal/dto"
	"papeleria/internal/infra"
	"papeleria/internal/reporte"
	"papeleria/internal/service"
	"papeleria/internal/transaccion"

	"github.com/gin-gonic/gin"
)

const (
	// esperaCarga bounds how long a read waits for the first load before
	// answering with loading=true.
	esperaCarga = 10 * time.Second
	recientes   = 5
)

type SesionesHandler struct {
	svc          service.SesionService
	topProductos int
	now          func() time.Time
}

func NewSesionesHandler(svc service.SesionService, topProductos int) *SesionesHandler {
	return &SesionesHandler{svc: svc, topProductos: topProductos, now: time.Now}
}

func (h *SesionesHandler) sesion(c *gin.Context) (*service.Sesion, bool) {
	ses, err := h.svc.Obtener(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ses, true
}

func esperar(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), esperaCarga)
}

// Abrir godoc
// @Summary      Abrir sesion de pagina
// @Description  Crea el cache de datos y las transacciones en curso de una pagina.
// @Tags         sesiones
// @Produce      json
// @Success      201  {object} dto.SesionResponse
// @Router       /v1/sesiones [post]
func (h *SesionesHandler) Abrir(c *gin.Context) {
	ses := h.svc.Abrir()
	c.JSON(http.StatusCreated, dto.SesionResponse{
		ID:        ses.ID,
		CreatedAt: ses.CreatedAt.Format(time.RFC3339),
	})
}

func (h *SesionesHandler) Cerrar(c *gin.Context) {
	if err := h.svc.Cerrar(c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Cached lists ─────────────────────────────────────────────────────────────

// Productos godoc
// @Summary      Productos de la sesion
// @Description  Ultimo valor cargado con los indicadores loading y error.
// @Tags         sesiones
// @Produce      json
// @Param        sid  path     string true "ID de la sesion"
// @Success      200  {object} dto.CacheResponse[[]model.Producto]
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sesiones/{sid}/productos [get]
func (h *SesionesHandler) Productos(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	ctx, cancel := esperar(c)
	defer cancel()
	st, err := ses.Productos(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cacheResponse(st))
}

func (h *SesionesHandler) Ventas(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	ctx, cancel := esperar(c)
	defer cancel()
	st, err := ses.Ventas(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cacheResponse(st))
}

func (h *SesionesHandler) VentasRecientes(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	ctx, cancel := esperar(c)
	defer cancel()
	st, err := ses.Ventas(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := cacheResponse(st)
	if st.HasData {
		resp.Data = reporte.Recientes(st.Data, recientes)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SesionesHandler) Compras(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	ctx, cancel := esperar(c)
	defer cancel()
	st, err := ses.Compras(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cacheResponse(st))
}

// Revalidar godoc
// @Summary      Revalidar cache
// @Description  Vuelve a consultar las claves indicadas (todas si no se indica ninguna).
// @Tags         sesiones
// @Accept       json
// @Param        sid  path     string               true  "ID de la sesion"
// @Param        body body     dto.RevalidarRequest false "Claves"
// @Success      204
// @Failure      502  {object} apierror.APIError
// @Router       /v1/sesiones/{sid}/revalidar [post]
func (h *SesionesHandler) Revalidar(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	var req dto.RevalidarRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if err := ses.Revalidar(c.Request.Context(), req.Claves...); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard godoc
// @Summary      Resumen del dia
// @Description  Ventas de hoy contra ayer, unidades, transacciones y productos mas vendidos.
// @Tags         sesiones
// @Produce      json
// @Param        sid  path     string true "ID de la sesion"
// @Success      200  {object} dto.DashboardResponse
// @Router       /v1/sesiones/{sid}/dashboard [get]
func (h *SesionesHandler) Dashboard(c *gin.Context) {
	ses, ok := h.sesion(c)
	if !ok {
		return
	}
	ctx, cancel := esperar(c)
	defer cancel()
	d, err := ses.Dashboard(ctx, h.now(), h.topProductos)
	if err != nil {
		respondError(c, err)
		return
	}
	top := make([]dto.TopProductoResponse, 0, len(d.Resumen.TopProductos))
	for _, p := range d.Resumen.TopProductos {
		top = append(top, dto.TopProductoResponse{
			Producto: p.Producto,
			Nombre:   d.Nombres[p.Producto],
			Cantidad: p.Cantidad,
		})
	}
	c.JSON(http.StatusOK, dto.DashboardResponse{
		TotalVentasHoy:       d.Resumen.TotalVentasHoy,
		ProductosVendidosHoy: d.Resumen.ProductosVendidosHoy,
		TransaccionesHoy:     d.Resumen.TransaccionesHoy,
		TotalVentasAyer:      d.Resumen.TotalVentasAyer,
		Crecimiento:          d.Resumen.Crecimiento,
		TopProductos:         top,
		Loading:              d.Loading,
		Error:                d.Err != nil,
	})
}

// ── Transactions ─────────────────────────────────────────────────────────────

// Transaccion returns the in-progress sale or purchase.
func (h *SesionesHandler) Transaccion(kind transaccion.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ses, ok := h.sesion(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, transaccionResponse(ses.Builder(kind)))
	}
}

// AgregarLinea godoc
// @Summary      Agregar linea
// @Description  Valida la linea contra la lista de productos de la sesion. Venta: controla stock y duplicados.
// @Tags         transacciones
// @Accept       json
// @Produce      json
// @Param        sid  path     string                  true "ID de la sesion"
// @Param        body body     dto.AgregarLineaRequest true "Linea"
// @Success      201  {object} dto.TransaccionResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sesiones/{sid}/venta/items [post]
func (h *SesionesHandler) AgregarLinea(kind transaccion.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ses, ok := h.sesion(c)
		if !ok {
			return
		}
		var req dto.AgregarLineaRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := esperar(c)
		defer cancel()
		_, err := ses.AgregarLinea(ctx, kind, transaccion.LineaInput{
			Producto:       req.Producto,
			Cantidad:       req.Cantidad,
			PrecioUnitario: req.Precio(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, transaccionResponse(ses.Builder(kind)))
	}
}

func (h *SesionesHandler) QuitarLinea(kind transaccion.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ses, ok := h.sesion(c)
		if !ok {
			return
		}
		i, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Indice invalido"))
			return
		}
		b := ses.Builder(kind)
		if err := b.QuitarLinea(i); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transaccionResponse(b))
	}
}

// Confirmar godoc
// @Summary      Confirmar transaccion
// @Description  Envia todas las lineas en un solo POST al backend. Ante un error las lineas se conservan.
// @Tags         transacciones
// @Produce      json
// @Param        sid  path     string true "ID de la sesion"
// @Success      201  {object} dto.TransaccionResponse
// @Failure      422  {object} apierror.APIError
// @Failure      502  {object} apierror.APIError
// @Router       /v1/sesiones/{sid}/venta/confirmar [post]
func (h *SesionesHandler) Confirmar(kind transaccion.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ses, ok := h.sesion(c)
		if !ok {
			return
		}
		b, conf, err := ses.Confirmar(c.Request.Context(), kind)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := transaccionResponse(b)
		resp.ID = conf.ID
		resp.Total = conf.Total
		c.JSON(http.StatusCreated, resp)
	}
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func cacheResponse[T any](st cache.State[T]) dto.CacheResponse[T] {
	resp := dto.CacheResponse[T]{
		Data:    st.Data,
		Loading: st.Loading,
		Error:   st.Err != nil,
	}
	if st.Err != nil {
		resp.Detail = mensajeRemoto(st.Err)
	}
	return resp
}

// mensajeRemoto is the user-facing text of a failed backend call.
func mensajeRemoto(err error) string {
	var connErr *infra.ConnectivityError
	if errors.As(err, &connErr) {
		return msgSinConexion
	}
	var reqErr *infra.RequestError
	if errors.As(err, &reqErr) && reqErr.Detail != "" {
		return reqErr.Detail
	}
	return msgErrorRemoto
}

func transaccionResponse(b *transaccion.Builder) dto.TransaccionResponse {
	lineas := b.Items()
	items := make([]dto.LineaResponse, 0, len(lineas))
	for i, l := range lineas {
		items = append(items, dto.LineaResponse{
			Indice:         i,
			Producto:       l.Producto,
			Nombre:         l.Nombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
		})
	}
	resp := dto.TransaccionResponse{
		Tipo:   string(b.Politica().Kind),
		Estado: string(b.Estado()),
		Items:  items,
		Total:  b.Total(),
	}
	if conf, ok := b.Confirmacion(); ok {
		resp.ID = conf.ID
	}
	return resp
}

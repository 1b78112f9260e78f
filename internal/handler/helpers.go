package handler

import (
	"errors"
	"net/http"

	"papeleria/internal/apierror"
	"papeleria/internal/infra"
	"papeleria/internal/model"
	"papeleria/internal/service"
	"papeleria/internal/transaccion"
	"papeleria/internal/validacion"

	"github.com/gin-gonic/gin"
)

const (
	msgSinConexion = "No se puede conectar con el servidor"
	msgErrorRemoto = "Error al procesar la solicitud"
	msgIDInvalido  = "ID invalido"
)

// bindJSON binds the JSON body. Returns false and writes the error response
// if the body is malformed; the caller should return immediately.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return true
}

// paramID reads a non-empty path id.
func paramID(c *gin.Context, name string) (model.ID, bool) {
	id := model.ID(c.Param(name))
	if id.IsZero() {
		c.JSON(http.StatusBadRequest, apierror.New(msgIDInvalido))
		return "", false
	}
	return id, true
}

// respondError maps the error taxonomy onto HTTP responses. Anything it does
// not know is handed to middleware.ErrorHandler as a 500.
func respondError(c *gin.Context, err error) {
	if ve, ok := validacion.As(err); ok {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(ve.Fields))
		return
	}

	var connErr *infra.ConnectivityError
	if errors.As(err, &connErr) {
		c.JSON(http.StatusBadGateway, apierror.New(msgSinConexion))
		return
	}

	var reqErr *infra.RequestError
	if errors.As(err, &reqErr) {
		status := reqErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		detail := reqErr.Detail
		if detail == "" {
			detail = msgErrorRemoto
		}
		c.JSON(status, apierror.New(detail))
		return
	}

	switch {
	case errors.Is(err, service.ErrSesionNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, transaccion.ErrSinItems):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, transaccion.ErrConfirmada), errors.Is(err, transaccion.ErrEnviando):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCatalogoNoDisponible):
		c.JSON(http.StatusServiceUnavailable, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
	}
}

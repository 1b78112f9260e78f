package validacion

import (
	"errors"
	"fmt"
	"testing"

	"papeleria/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_ProductoOK(t *testing.T) {
	res := Struct(dto.ProductoRequest{
		Codigo: "CUA-100",
		Nombre: "Cuaderno 100 hojas",
		Precio: decimal.RequireFromString("2.40"),
		Stock:  0,
	}, nil)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	res := Struct(dto.ProductoRequest{
		Precio: decimal.RequireFromString("-1"),
		Stock:  -3,
	}, map[string]string{"codigo": "El código es requerido"})

	require.False(t, res.OK())
	fields := map[string]string{}
	for _, f := range res.Errors {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "El código es requerido", fields["codigo"])
	assert.Equal(t, "nombre es requerido", fields["nombre"])
	assert.Contains(t, fields, "precio")
	assert.Contains(t, fields, "stock")
}

func TestError_As(t *testing.T) {
	err := fmt.Errorf("agregar linea: %w", New("cantidad", "Ingrese una cantidad"))
	ve, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "cantidad", ve.Fields[0].Field)
	assert.Equal(t, "Ingrese una cantidad", ve.Error())

	_, ok = As(errors.New("otro"))
	assert.False(t, ok)
}

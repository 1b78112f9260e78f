// Package transaccion accumulates the lines of a sale or a purchase in memory
// and submits them to the backend as one batch.
package transaccion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"papeleria/internal/dto"
	"papeleria/internal/events"
	"papeleria/internal/model"
	"papeleria/internal/validacion"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrSinItems   = errors.New("Agregue al menos un producto")
	ErrConfirmada = errors.New("La transaccion ya fue confirmada")
	ErrEnviando   = errors.New("La transaccion se esta enviando")
)

type Estado string

const (
	EnCurso    Estado = "en_curso"
	Confirmada Estado = "confirmada"
)

// Catalogo is the product list loaded when the line is added.
type Catalogo interface {
	Buscar(id model.ID) (model.Producto, bool)
}

// Backend is the subset of the API client the builder submits to.
type Backend interface {
	CreateVenta(ctx context.Context, req dto.TransaccionRequest) (*model.Venta, error)
	CreateCompra(ctx context.Context, req dto.TransaccionRequest) (*model.Compra, error)
}

// Linea is one in-progress line. Nombre is for display only and is not sent.
type Linea struct {
	Producto       model.ID
	Nombre         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
	Subtotal       decimal.Decimal
}

// LineaInput is what the entry form submits.
type LineaInput struct {
	Producto       model.ID         `json:"producto" validate:"required"`
	Cantidad       int              `json:"cantidad" validate:"min=1"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
}

var mensajes = map[string]string{
	"producto": "Seleccione un producto",
	"cantidad": "Ingrese una cantidad",
}

// Confirmacion is what the backend assigned to a submitted transaction.
type Confirmacion struct {
	ID    model.ID
	Total decimal.Decimal
}

// Builder is safe for concurrent use. Building -> Submitted is one-way.
type Builder struct {
	mu       sync.Mutex
	politica Politica
	backend  Backend
	pub      events.Publisher
	lineas   []Linea
	estado   Estado
	enviando bool
	conf     *Confirmacion
}

// New returns an empty builder. pub may be nil.
func New(p Politica, backend Backend, pub events.Publisher) *Builder {
	return &Builder{politica: p, backend: backend, pub: pub, estado: EnCurso}
}

func (b *Builder) Politica() Politica { return b.politica }

// mutable must be called with mu held.
func (b *Builder) mutable() error {
	switch {
	case b.estado == Confirmada:
		return ErrConfirmada
	case b.enviando:
		return ErrEnviando
	}
	return nil
}

// AgregarLinea validates in against cat and appends it. On failure the
// returned error is a *validacion.Error (or a state error) and nothing changes.
func (b *Builder) AgregarLinea(cat Catalogo, in LineaInput) (Linea, error) {
	res := validacion.Struct(in, mensajes)
	if !res.OK() {
		return Linea{}, res.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.mutable(); err != nil {
		return Linea{}, err
	}

	p, ok := cat.Buscar(in.Producto)
	if !ok {
		return Linea{}, validacion.New("producto", "Producto no encontrado")
	}

	enLista := 0
	for _, l := range b.lineas {
		if l.Producto == in.Producto {
			enLista += l.Cantidad
		}
	}
	if enLista > 0 && b.politica.RechazarDuplicados {
		return Linea{}, validacion.New("producto", fmt.Sprintf("%s ya fue agregado", p.Nombre))
	}
	if b.politica.ControlarStock && enLista+in.Cantidad > p.Stock {
		return Linea{}, validacion.New("cantidad",
			fmt.Sprintf("Stock insuficiente para %s (disponible: %d)", p.Nombre, p.Stock-enLista))
	}

	precio, err := b.precio(p, in.PrecioUnitario)
	if err != nil {
		return Linea{}, err
	}

	l := Linea{
		Producto:       p.ID,
		Nombre:         p.Nombre,
		Cantidad:       in.Cantidad,
		PrecioUnitario: precio,
		Subtotal:       precio.Mul(decimal.NewFromInt(int64(in.Cantidad))),
	}
	b.lineas = append(b.lineas, l)
	return l, nil
}

// precio picks the effective unit price, snapshotted at add time.
func (b *Builder) precio(p model.Producto, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil && !b.politica.PermitirPrecio {
		return decimal.Zero, validacion.New("precio_unitario", "El precio de venta es el del producto")
	}
	if override == nil {
		if b.politica.PrecioRequerido {
			return decimal.Zero, validacion.New("precio_unitario", "Ingrese el precio")
		}
		return p.Precio, nil
	}
	if override.IsNegative() {
		return decimal.Zero, validacion.New("precio_unitario", "El precio debe ser mayor o igual a 0")
	}
	return *override, nil
}

// QuitarLinea removes the line at i. Out of range is a no-op.
func (b *Builder) QuitarLinea(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.mutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(b.lineas) {
		return nil
	}
	b.lineas = append(b.lineas[:i:i], b.lineas[i+1:]...)
	return nil
}

// Items returns a copy of the current lines.
func (b *Builder) Items() []Linea {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Linea(nil), b.lineas...)
}

// Total is recomputed on every call.
func (b *Builder) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return total(b.lineas)
}

func total(lineas []Linea) decimal.Decimal {
	t := decimal.Zero
	for _, l := range lineas {
		t = t.Add(l.Subtotal)
	}
	return t
}

func (b *Builder) Estado() Estado {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.estado
}

// Confirmacion returns what the backend assigned, once confirmed.
func (b *Builder) Confirmacion() (Confirmacion, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conf == nil {
		return Confirmacion{}, false
	}
	return *b.conf, true
}

// Confirmar sends every line in one batch create. An empty builder fails with
// ErrSinItems before any request. On failure the builder stays in Building
// with its lines untouched; the error is the client's.
func (b *Builder) Confirmar(ctx context.Context) (Confirmacion, error) {
	b.mu.Lock()
	if err := b.mutable(); err != nil {
		b.mu.Unlock()
		return Confirmacion{}, err
	}
	if len(b.lineas) == 0 {
		b.mu.Unlock()
		return Confirmacion{}, ErrSinItems
	}
	req, local := b.request(), total(b.lineas)
	b.enviando = true
	b.mu.Unlock()

	conf, err := b.enviar(ctx, req, local)

	b.mu.Lock()
	b.enviando = false
	if err != nil {
		b.mu.Unlock()
		log.Warn().Err(err).Str("tipo", string(b.politica.Kind)).Msg("transaccion: confirmacion fallida")
		return Confirmacion{}, err
	}
	b.estado = Confirmada
	b.conf = &conf
	b.mu.Unlock()

	log.Info().
		Str("tipo", string(b.politica.Kind)).
		Str("id", conf.ID.String()).
		Str("total", conf.Total.StringFixed(2)).
		Msg("transaccion: confirmada")

	b.notificar(ctx)
	return conf, nil
}

// request must be called with mu held.
func (b *Builder) request() dto.TransaccionRequest {
	items := make([]dto.TransaccionItem, 0, len(b.lineas))
	for _, l := range b.lineas {
		precio := l.PrecioUnitario
		it := dto.TransaccionItem{Producto: l.Producto, Cantidad: l.Cantidad}
		if b.politica.Kind == Compra {
			it.PrecioCompra = &precio
		} else {
			it.PrecioVenta = &precio
		}
		items = append(items, it)
	}
	return dto.TransaccionRequest{Items: items}
}

func (b *Builder) enviar(ctx context.Context, req dto.TransaccionRequest, local decimal.Decimal) (Confirmacion, error) {
	switch b.politica.Kind {
	case Compra:
		c, err := b.backend.CreateCompra(ctx, req)
		if err != nil {
			return Confirmacion{}, err
		}
		return confirmacion(c.ID, c.Total, local), nil
	default:
		v, err := b.backend.CreateVenta(ctx, req)
		if err != nil {
			return Confirmacion{}, err
		}
		return confirmacion(v.ID, v.Total, local), nil
	}
}

// confirmacion prefers the backend total; some responses omit it.
func confirmacion(id model.ID, remoto, local decimal.Decimal) Confirmacion {
	if remoto.IsZero() {
		remoto = local
	}
	return Confirmacion{ID: id, Total: remoto}
}

func (b *Builder) notificar(ctx context.Context) {
	if b.pub == nil {
		return
	}
	ev := events.NewMutation(string(b.politica.Kind), b.politica.Claves()...)
	if err := b.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Strs("claves", ev.Claves).Msg("transaccion: no se pudo publicar la mutacion")
	}
}

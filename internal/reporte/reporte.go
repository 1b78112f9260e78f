// Package reporte derives the daily dashboard from the flat list of sales
// returned by the backend. Everything is recomputed on each call.
package reporte

import (
	"sort"
	"time"

	"papeleria/internal/model"

	"github.com/shopspring/decimal"
)

var cien = decimal.NewFromInt(100)

// ProductoVendido is one entry of the top products ranking.
type ProductoVendido struct {
	Producto model.ID
	Cantidad int
}

// Resumen is the day-over-day summary shown on the dashboard.
type Resumen struct {
	TotalVentasHoy       decimal.Decimal
	ProductosVendidosHoy int
	TransaccionesHoy     int
	TotalVentasAyer      decimal.Decimal
	// Crecimiento is the revenue change against yesterday in percent,
	// rounded to 2 places. It is 0 when yesterday had no revenue.
	Crecimiento  decimal.Decimal
	TopProductos []ProductoVendido
}

// dia is a calendar date in a given location.
type dia struct {
	y int
	m time.Month
	d int
}

func diaDe(t time.Time, loc *time.Location) dia {
	y, m, d := t.In(loc).Date()
	return dia{y, m, d}
}

// Calcular partitions ventas into today and yesterday by calendar date in the
// location of now (yesterday is the date of now - 24h) and aggregates them.
// Records of any other day are ignored.
func Calcular(ventas []model.Venta, now time.Time, topN int) Resumen {
	hoy, ayer := Particionar(ventas, now)

	r := Resumen{
		TotalVentasHoy:   sumaTotales(hoy),
		TransaccionesHoy: len(hoy),
		TotalVentasAyer:  sumaTotales(ayer),
		Crecimiento:      decimal.Zero,
		TopProductos:     topProductos(hoy, topN),
	}
	for _, v := range hoy {
		r.ProductosVendidosHoy += v.Unidades()
	}
	if !r.TotalVentasAyer.IsZero() {
		r.Crecimiento = r.TotalVentasHoy.Sub(r.TotalVentasAyer).
			Div(r.TotalVentasAyer).
			Mul(cien).
			Round(2)
	}
	return r
}

// Particionar returns the sales of today and of yesterday relative to now.
func Particionar(ventas []model.Venta, now time.Time) (hoy, ayer []model.Venta) {
	loc := now.Location()
	dHoy := diaDe(now, loc)
	dAyer := diaDe(now.Add(-24*time.Hour), loc)

	for _, v := range ventas {
		if v.Fecha.IsZero() {
			continue
		}
		switch diaDe(v.Fecha.Time, loc) {
		case dHoy:
			hoy = append(hoy, v)
		case dAyer:
			ayer = append(ayer, v)
		}
	}
	return hoy, ayer
}

func sumaTotales(ventas []model.Venta) decimal.Decimal {
	t := decimal.Zero
	for _, v := range ventas {
		t = t.Add(v.Total)
	}
	return t
}

// TopProductos ranks the products sold today by quantity, highest first.
// Ties keep the order in which products were first seen.
func TopProductos(ventas []model.Venta, now time.Time, n int) []ProductoVendido {
	hoy, _ := Particionar(ventas, now)
	return topProductos(hoy, n)
}

func topProductos(ventas []model.Venta, n int) []ProductoVendido {
	out := []ProductoVendido{}
	if n <= 0 {
		return out
	}
	idx := map[model.ID]int{}
	for _, v := range ventas {
		for _, it := range v.Items {
			i, ok := idx[it.Producto]
			if !ok {
				i = len(out)
				idx[it.Producto] = i
				out = append(out, ProductoVendido{Producto: it.Producto})
			}
			out[i].Cantidad += it.Cantidad
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cantidad > out[j].Cantidad })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Recientes returns the first n sales as delivered by the backend, which
// orders them newest first.
func Recientes(ventas []model.Venta, n int) []model.Venta {
	if n <= 0 {
		return []model.Venta{}
	}
	if len(ventas) < n {
		n = len(ventas)
	}
	return append([]model.Venta{}, ventas[:n]...)
}

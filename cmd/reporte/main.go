// cmd/reporte/main.go: Imprime el resumen de ventas del dia.
// Uso: go run ./cmd/reporte [-top 5] [-fecha 2024-03-15]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"papeleria/internal/config"
	"papeleria/internal/infra"
	"papeleria/internal/model"
	"papeleria/internal/reporte"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	top := flag.Int("top", cfg.TopProductos, "cantidad de productos en el ranking")
	fecha := flag.String("fecha", "", "dia a reportar (YYYY-MM-DD, hora local); por defecto hoy")
	flag.Parse()

	now := time.Now()
	if *fecha != "" {
		d, err := time.ParseInLocation(time.DateOnly, *fecha, time.Local)
		if err != nil {
			log.Fatal().Err(err).Str("fecha", *fecha).Msg("fecha invalida")
		}
		// Noon keeps "now - 24h" on the previous calendar day across DST changes.
		now = d.Add(12 * time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := infra.NewBackendClient(cfg.APIURL, nil)
	ventas, err := client.ListVentas(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudieron cargar las ventas")
	}
	nombres := map[model.ID]string{}
	if productos, err := client.ListProductos(ctx); err == nil {
		for _, p := range productos {
			nombres[p.ID] = p.Nombre
		}
	} else {
		log.Warn().Err(err).Msg("no se pudieron cargar los productos")
	}

	r := reporte.Calcular(ventas, now, *top)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Resumen del %s\n\n", now.Format(time.DateOnly))
	fmt.Fprintf(w, "Ventas de hoy\t$%s\n", r.TotalVentasHoy.StringFixed(2))
	fmt.Fprintf(w, "Ventas de ayer\t$%s\n", r.TotalVentasAyer.StringFixed(2))
	fmt.Fprintf(w, "Crecimiento\t%s%%\n", r.Crecimiento.StringFixed(2))
	fmt.Fprintf(w, "Productos vendidos\t%d\n", r.ProductosVendidosHoy)
	fmt.Fprintf(w, "Transacciones\t%d\n", r.TransaccionesHoy)
	if len(r.TopProductos) > 0 {
		fmt.Fprintf(w, "\nMas vendidos\n")
		for i, p := range r.TopProductos {
			nombre := nombres[p.Producto]
			if nombre == "" {
				nombre = "Producto " + p.Producto.String()
			}
			fmt.Fprintf(w, "%d. %s\t%d u.\n", i+1, nombre, p.Cantidad)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("write")
	}
}

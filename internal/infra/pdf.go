package infra

// pdf.go: sale ticket generation using go-pdf/fpdf.
// Thermal-receipt sized (74mm wide) with the item table, total and timestamp.

import (
	"fmt"
	"io"
	"time"

	"papeleria/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const ticketMaxNombre = 22

// WriteTicketPDF renders a receipt for venta into w. nombres maps product IDs
// to display names; unknown products are printed by ID.
func WriteTicketPDF(w io.Writer, venta *model.Venta, nombres map[model.ID]string) error {
	alto := 60.0 + 5*float64(len(venta.Items))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Papeleria", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Comprobante de Venta", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Venta N° %s", venta.ID)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	fecha := venta.Fecha.Time
	if fecha.IsZero() {
		fecha = time.Now()
	}
	pdf.CellFormat(contentW, 4, fecha.Local().Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range venta.Items {
		nombre, ok := nombres[item.Producto]
		if !ok {
			nombre = "#" + item.Producto.String()
		}
		if r := []rune(nombre); len(r) > ticketMaxNombre {
			nombre = string(r[:ticketMaxNombre-1]) + "…"
		}
		subtotal := item.Subtotal
		if subtotal.IsZero() {
			subtotal = item.PrecioVenta.Mul(decimal.NewFromInt(int64(item.Cantidad)))
		}
		pdf.CellFormat(col1, 5, tr(nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+venta.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write ticket: %w", err)
	}
	return nil
}

// Package orderfile lee exportaciones de órdenes en CSV o XLSX (una fila por línea de orden)
// y las agrupa en registros normalizados.
package orderfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

// Codificaciones de entrada soportadas para CSV.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

var requiredColumns = []string{"order_number", "placed_at", "sku", "quantity"}

// Reader convierte filas a registros; las fechas sin zona se interpretan en el calendario.
type Reader struct {
	calendar *daterange.Calendar
}

// NewReader construye el lector.
func NewReader(calendar *daterange.Calendar) *Reader {
	return &Reader{calendar: calendar}
}

// ReadFile elige el formato por extensión (.csv o .xlsx).
func (r *Reader) ReadFile(path, encoding string) ([]importer.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.ReadCSV(f, encoding)
	case ".xlsx":
		return r.ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: solo se soportan archivos CSV y XLSX", domain.ErrInvalidInput)
	}
}

// ReadCSV lee un CSV con encabezado. encoding windows-1252 para exportaciones de hojas de cálculo antiguas.
func (r *Reader) ReadCSV(in io.Reader, encoding string) ([]importer.Record, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8:
		in = skipBOM(in)
	case EncodingWindows1252, "cp1252":
		in = transform.NewReader(in, charmap.Windows1252.NewDecoder())
	default:
		return nil, fmt.Errorf("%w: codificación %q", domain.ErrInvalidInput, encoding)
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: leer encabezado CSV: %v", domain.ErrInvalidInput, err)
	}
	var rows []row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: línea %d: %v", domain.ErrInvalidInput, line, err)
		}
		rows = append(rows, newRow(header, rec, line))
	}
	return r.group(header, rows)
}

// ReadXLSX lee la primera hoja del libro.
func (r *Reader) ReadXLSX(in io.Reader) ([]importer.Record, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("%w: abrir Excel: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: libro sin hojas", domain.ErrInvalidInput)
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("leer hoja %s: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: hoja vacía", domain.ErrInvalidInput)
	}
	rows := make([]row, 0, len(all)-1)
	for i, rec := range all[1:] {
		rows = append(rows, newRow(all[0], rec, i+2))
	}
	return r.group(all[0], rows)
}

type row struct {
	line   int
	values map[string]string
}

func newRow(header, rec []string, line int) row {
	values := make(map[string]string, len(header))
	for i, v := range rec {
		if i < len(header) {
			values[normalizeHeader(header[i])] = strings.TrimSpace(v)
		}
	}
	return row{line: line, values: values}
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.TrimSuffix(h, " *")
	return strings.ReplaceAll(h, " ", "_")
}

// group junta las filas de cada order_number en un registro, en orden de primera aparición.
// Un error en cualquier fila invalida la orden completa.
func (r *Reader) group(header []string, rows []row) ([]importer.Record, error) {
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[normalizeHeader(h)] = true
	}
	for _, c := range requiredColumns {
		if !cols[c] {
			return nil, fmt.Errorf("%w: falta la columna %s", domain.ErrInvalidInput, c)
		}
	}

	var out []importer.Record
	index := make(map[string]int)
	for _, rw := range rows {
		if isBlank(rw) {
			continue
		}
		number := rw.values["order_number"]
		if number == "" {
			out = append(out, importer.Record{Line: rw.line, Err: fmt.Errorf("%w: línea %d sin order_number", domain.ErrInvalidInput, rw.line)})
			continue
		}
		i, seen := index[number]
		if !seen {
			order, err := r.orderHeader(rw)
			index[number] = len(out)
			out = append(out, importer.Record{Line: rw.line, Order: order, Err: err})
			i = len(out) - 1
		}
		rec := &out[i]
		li, err := lineItem(rw)
		if err != nil {
			if rec.Err == nil {
				rec.Err = err
			}
			continue
		}
		rec.Order.LineItems = append(rec.Order.LineItems, li)
	}
	return out, nil
}

func (r *Reader) orderHeader(rw row) (orders.NormalizedOrder, error) {
	v := rw.values
	o := orders.NormalizedOrder{
		OrderNumber:       strings.TrimPrefix(v["order_number"], "#"),
		PlatformID:        v["platform_id"],
		Status:            strings.ToLower(v["status"]),
		FulfillmentStatus: strings.ToLower(v["fulfillment_status"]),
		Currency:          strings.ToUpper(v["currency"]),
		CustomerName:      v["customer_name"],
		CustomerEmail:     v["customer_email"],
	}
	var err error
	if o.PlacedAt, err = r.parseTime(v["placed_at"]); err != nil {
		return o, fmt.Errorf("%w: línea %d placed_at: %v", domain.ErrInvalidInput, rw.line, err)
	}
	for _, f := range []struct {
		col string
		dst **time.Time
	}{{"fulfilled_at", &o.FulfilledAt}, {"cancelled_at", &o.CancelledAt}} {
		if v[f.col] == "" {
			continue
		}
		t, err := r.parseTime(v[f.col])
		if err != nil {
			return o, fmt.Errorf("%w: línea %d %s: %v", domain.ErrInvalidInput, rw.line, f.col, err)
		}
		*f.dst = &t
	}
	for _, f := range []struct {
		col string
		dst *decimal.Decimal
	}{{"subtotal", &o.Subtotal}, {"tax_total", &o.TaxTotal}, {"shipping_total", &o.ShippingTotal}, {"total", &o.Total}} {
		d, err := parseDecimal(v[f.col])
		if err != nil {
			return o, fmt.Errorf("%w: línea %d %s: %v", domain.ErrInvalidInput, rw.line, f.col, err)
		}
		*f.dst = d
	}
	return o, nil
}

func lineItem(rw row) (orders.NormalizedLineItem, error) {
	v := rw.values
	qty, err := strconv.ParseInt(v["quantity"], 10, 64)
	if err != nil {
		return orders.NormalizedLineItem{}, fmt.Errorf("%w: línea %d quantity %q", domain.ErrInvalidInput, rw.line, v["quantity"])
	}
	price, err := parseDecimal(v["unit_price"])
	if err != nil {
		return orders.NormalizedLineItem{}, fmt.Errorf("%w: línea %d unit_price: %v", domain.ErrInvalidInput, rw.line, err)
	}
	return orders.NormalizedLineItem{SKU: v["sku"], Quantity: qty, UnitPrice: price}, nil
}

// parseTime RFC3339, "2006-01-02 15:04:05" o "2006-01-02"; sin zona se usa la del calendario.
func (r *Reader) parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("vacío")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(time.DateTime, s, r.calendar.Location()); err == nil {
		return t.UTC(), nil
	}
	return r.calendar.ParseDate(s)
}

// parseDecimal acepta coma decimal ("12,50") y vacío como cero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

func isBlank(rw row) bool {
	for _, v := range rw.values {
		if v != "" {
			return false
		}
	}
	return true
}

// skipBOM descarta la marca UTF-8 que agregan algunas hojas de cálculo.
func skipBOM(in io.Reader) io.Reader {
	br := bufio.NewReader(in)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

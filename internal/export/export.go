// Package export renders transaction lists for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"fintrack/internal/core"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatXML Format = "xml"
)

var csvHeader = []string{"id", "date", "name", "category", "type", "amount"}

// ParseFormat defaults to CSV for empty input.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the download name for an export taken at now.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("transactions-%s.%s", now.In(core.DisplayLocation).Format("2006-01-02"), f)
}

// Write dispatches to the writer for f.
func Write(w io.Writer, f Format, owner string, txs []core.Transaction) error {
	if f == FormatXML {
		return WriteXML(w, owner, txs)
	}
	return WriteCSV(w, txs)
}

// WriteCSV writes one row per transaction. Dates are RFC 3339 in UTC and
// amounts are signed decimal rupees.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339),
			csvText(t.Name),
			csvText(t.Category),
			string(t.Type),
			t.Amount.Decimal().StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvText quotes user text that a spreadsheet would run as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteXML writes <transactions owner=".." count=".."> with one
// <transaction> child per entry.
func WriteXML(w io.Writer, owner string, txs []core.Transaction) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("transactions")
	root.CreateAttr("owner", owner)
	root.CreateAttr("count", strconv.Itoa(len(txs)))

	for _, t := range txs {
		el := root.CreateElement("transaction")
		el.CreateAttr("id", t.ID)
		el.CreateAttr("type", string(t.Type))
		el.CreateElement("date").SetText(t.Timestamp.UTC().Format(time.RFC3339))
		el.CreateElement("name").SetText(t.Name)
		el.CreateElement("category").SetText(t.Category)
		amount := el.CreateElement("amount")
		amount.CreateAttr("currency", "INR")
		amount.SetText(t.Amount.Decimal().StringFixed(2))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	return nil
}

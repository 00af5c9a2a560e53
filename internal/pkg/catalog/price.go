package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Defaults for the storefront export.
const (
	DefaultINRToGBP    = 0.0095
	DefaultCurrency    = "£"
	rupeeSign          = "₹"
	notAvailableMarker = "na"
)

var amountPattern = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// IsPriceColumn reports whether a header holds a price to convert.
func IsPriceColumn(header string) bool {
	return strings.Contains(header, "Price") || strings.Contains(header, "MRP")
}

// PriceConverter rewrites rupee amounts into another currency.
type PriceConverter struct {
	rate   float64
	symbol string
}

// NewPriceConverter creates a converter; zero values fall back to INR->GBP.
func NewPriceConverter(rate float64, symbol string) *PriceConverter {
	if rate <= 0 {
		rate = DefaultINRToGBP
	}
	if symbol == "" {
		symbol = DefaultCurrency
	}
	return &PriceConverter{rate: rate, symbol: symbol}
}

// Convert rewrites one cell. Empty or blank cells, "na" in any case and with
// surrounding whitespace, and cells without a number are returned unchanged.
func (c *PriceConverter) Convert(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, notAvailableMarker) {
		return value, false
	}

	match := amountPattern.FindString(strings.TrimSpace(strings.ReplaceAll(trimmed, rupeeSign, "")))
	if match == "" {
		return value, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return value, false
	}

	converted := math.Round(amount*c.rate*100) / 100
	return c.symbol + formatThousands(converted), true
}

// formatThousands renders x with two decimals and comma grouping.
func formatThousands(x float64) string {
	s := strconv.FormatFloat(math.Abs(x), 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if x < 0 {
		b.WriteByte('-')
	}
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteString(frac)
	return b.String()
}

// ConvertStats summarises one CSV rewrite.
type ConvertStats struct {
	Rows         int
	PriceColumns []string
	Converted    int
	PassedThru   int
}

// ConvertCSV copies a CSV stream to w, converting every price column.
func (c *PriceConverter) ConvertCSV(r io.Reader, w io.Writer) (*ConvertStats, error) {
	cr := NewReader(r)
	header, err := ReadHeader(cr)
	if err != nil {
		return nil, err
	}

	stats := &ConvertStats{}
	var priceIdx []int
	for i, h := range header {
		if IsPriceColumn(h) {
			priceIdx = append(priceIdx, i)
			stats.PriceColumns = append(stats.PriceColumns, h)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		for _, i := range priceIdx {
			if i >= len(row) {
				continue
			}
			if out, ok := c.Convert(row[i]); ok {
				row[i] = out
				stats.Converted++
			} else {
				stats.PassedThru++
			}
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	return stats, cw.Error()
}

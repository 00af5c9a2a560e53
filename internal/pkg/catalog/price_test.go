package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPriceColumn(t *testing.T) {
	assert.True(t, IsPriceColumn("Price"))
	assert.True(t, IsPriceColumn("Selling Price"))
	assert.True(t, IsPriceColumn("MRP"))
	assert.False(t, IsPriceColumn("price"))
	assert.False(t, IsPriceColumn("Discount"))
}

func TestConvert(t *testing.T) {
	c := NewPriceConverter(0, "")

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"₹499", "£4.74", true},
		{"₹2,299", "£21.84", true},
		{"₹ 549.00", "£5.22", true},
		{"₹1,50,000", "£1,425.00", true},
		{"Rs. 999 only", "£9.49", true},
		{"na", "na", false},
		{"NA", "NA", false},
		{" na ", " na ", false},
		{"", "", false},
		{"  ", "  ", false},
		{"free", "free", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := c.Convert(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0.00", formatThousands(0))
	assert.Equal(t, "999.99", formatThousands(999.99))
	assert.Equal(t, "1,000.00", formatThousands(1000))
	assert.Equal(t, "1,234,567.89", formatThousands(1234567.89))
	assert.Equal(t, "-12.50", formatThousands(-12.5))
}

func TestConvertCSV(t *testing.T) {
	in := "Brand,Product Name,Price,MRP,Discount\n" +
		"Sugathari,Banarasi Saree,₹499,\"₹2,299\",78% off\n" +
		"Sugathari,Cotton Saree,na,₹549,\n"

	var out bytes.Buffer
	stats, err := NewPriceConverter(DefaultINRToGBP, DefaultCurrency).ConvertCSV(strings.NewReader(in), &out)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, []string{"Price", "MRP"}, stats.PriceColumns)
	assert.Equal(t, 3, stats.Converted)
	assert.Equal(t, 1, stats.PassedThru)

	want := "Brand,Product Name,Price,MRP,Discount\n" +
		"Sugathari,Banarasi Saree,£4.74,£21.84,78% off\n" +
		"Sugathari,Cotton Saree,na,£5.22,\n"
	assert.Equal(t, want, out.String())
}

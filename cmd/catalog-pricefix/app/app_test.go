package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/pkg/catalog"
)

func TestConvertOptionsValidate(t *testing.T) {
	o := NewConvertOptions()
	assert.NoError(t, o.Validate())

	o.Rate = 0
	o.Symbol = ""
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate must be positive")
	assert.Contains(t, err.Error(), "symbol is required")
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(good, []byte("Product Name,Price\nSaree,₹499\n"), 0o600))

	err := convertFiles(catalog.NewPriceConverter(catalog.DefaultINRToGBP, catalog.DefaultCurrency),
		[]string{filepath.Join(dir, "missing.csv"), good})
	require.Error(t, err, "缺失文件应返回错误")

	data, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "Product Name,Price\nSaree,£4.74\n", string(data), "其余文件仍需转换")
}

func TestNewAppFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("MRP\n₹1000\n"), 0o600))

	a := NewApp()
	a.Command().SetOut(&bytes.Buffer{})
	a.Command().SetArgs([]string{"--rate", "0.01", "--symbol", "$", path})
	require.NoError(t, a.Command().Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MRP\n$10.00\n", string(data))
}

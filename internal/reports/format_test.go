package reports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatterUsesLocaleSeparators(t *testing.T) {
	en := NewFormatter("en-US")
	require.Equal(t, "1,234.50", en.Amount(dec("1234.5")))
	require.Equal(t, "12,000", en.Qty(12000))

	id := NewFormatter("id")
	require.Equal(t, "1.234,50", id.Amount(dec("1234.5")))

	require.Equal(t, "12,345,678,901,234,567.89", en.Amount(dec("12345678901234567.891")))
	require.Equal(t, "12.345.678.901.234.567,89", id.Amount(dec("12345678901234567.891")))
	require.Equal(t, "-0,05", id.Amount(dec("-0.049")))

	fallback := NewFormatter("not a locale!")
	require.Equal(t, "0.00", fallback.Amount(dec("0")))
}

package latex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberFormat(t *testing.T) {
	tests := []struct {
		format string
		v      float64
		want   string
	}{
		{"{0:.2f}", 58.789, "58.79"},
		{"{0:.0f}", 1, "1"},
		{"{:.1f} euro", 12.34, "12.3 euro"},
		{"{0:,.2f}", 1234567.891, "1,234,567.89"},
		{"{0:.1%}", 0.256, "25.6%"},
		{"{0:e}", 12345.678, "1.234568e+04"},
		{"{0:.2E}", 0.000123, "1.23E-04"},
		{"{0:+.1f}", 2, "+2.0"},
		{"{0:8.2f}", 3.14159, "    3.14"},
		{"{0:<8.2f}|", 3.14159, "3.14    |"},
		{"{0:^9.1f}", 2.5, "   2.5   "},
		{"{0:08.2f}", -3.5, "-0003.50"},
		{"{0:*>6}", 1.5, "***1.5"},
		{"{0}", 2, "2.0"},
		{"{}", 0.5, "0.5"},
		{"{0:.3g}", 1234.5, "1.23e+03"},
		{"{{{0:.1f}}}", 1, "{1.0}"},
		{"%.3f", 1.5, "1.500"},
		{"n/a", 1.5, "n/a"},
		{"{0:.2f}", math.NaN(), "nan"},
		{"{0:.2f}", math.Inf(-1), "-inf"},
		{"{0:F}", math.Inf(1), "INF"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			nf, err := ParseNumberFormat(tt.format)
			require.NoError(t, err)
			require.Equal(t, tt.want, nf.Format(tt.v))
		})
	}
}

func TestNumberFormatErrors(t *testing.T) {
	for _, s := range []string{"{0:.2f", "}", "{1:.2f}", "{0:.f}", "{0:.2x}", "{0:2.2f3}"} {
		_, err := ParseNumberFormat(s)
		require.ErrorIs(t, err, ErrInvalidNumberFormat, s)
	}
}

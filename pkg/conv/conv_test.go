package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigGet(t *testing.T) {
	m := map[string]any{
		"expr":  "product.price_max > 0",
		"top":   6,
		"neg":   float64(20),
		"ids":   []any{"a", "b", 3},
		"one":   "x",
		"typed": []string{"y"},
	}

	assert.Equal(t, "product.price_max > 0", ConfigGet(m, "expr", ""))
	assert.Equal(t, "fallback", ConfigGet(m, "missing", "fallback"))
	assert.Equal(t, "fallback", ConfigGet(m, "top", "fallback"))

	assert.Equal(t, 6, ConfigGetInt(m, "top", 0))
	assert.Equal(t, 20, ConfigGetInt(m, "neg", 0))
	assert.Equal(t, 5, ConfigGetInt(m, "missing", 5))
	assert.Equal(t, int64(5), ConfigGetInt64(nil, "top", 5))

	assert.Equal(t, []string{"a", "b", "3"}, ConfigGetStrings(m, "ids"))
	assert.Equal(t, []string{"x"}, ConfigGetStrings(m, "one"))
	assert.Equal(t, []string{"y"}, ConfigGetStrings(m, "typed"))
	assert.Nil(t, ConfigGetStrings(m, "missing"))
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: 1, want: 1, ok: true},
		{in: int64(2), want: 2, ok: true},
		{in: float32(0.5), want: 0.5, ok: true},
		{in: true, want: 1, ok: true},
		{in: "1", want: 0, ok: false},
		{in: nil, want: 0, ok: false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}

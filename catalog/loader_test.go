package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/giftkit/core"
)

const sampleCatalog = `id,title,category,tags,price_min,price_max
p1,Wireless Earbuds,Electronics|Audio,Tech|music,40,80
,No Id,home,,10,20
p2,Mug,Kitchen,coffee| tea ,,15
p3,Lamp,Home,,abc,30
p4,Scarf,Fashion,winter,12.9,25.5
`

func TestRead(t *testing.T) {
	res, err := Read(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, res.Products, 3)
	assert.Equal(t, 2, res.Skipped)

	p1 := res.Products[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, "wireless earbuds", p1.Title)
	assert.Equal(t, "electronics|audio", p1.Category)
	assert.Equal(t, []string{"tech", "music"}, p1.Tags)
	assert.Equal(t, 40, p1.PriceMin)
	assert.Equal(t, 80, p1.PriceMax)

	p2 := res.Products[1]
	assert.Equal(t, 0, p2.PriceMin, "empty price is 0")
	assert.Equal(t, []string{"coffee", "tea"}, p2.Tags)

	p4 := res.Products[2]
	assert.Equal(t, 12, p4.PriceMin)
	assert.Equal(t, 25, p4.PriceMax)
}

func TestRead_HeaderOrderIndependent(t *testing.T) {
	in := "price_max,tags,id,price_min\n50,a|b,x,10\n"
	res, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "x", res.Products[0].ID)
	assert.Equal(t, 10, res.Products[0].PriceMin)
	assert.Equal(t, 50, res.Products[0].PriceMax)
	assert.Empty(t, res.Products[0].Title)
}

func TestRead_Fingerprint(t *testing.T) {
	a, err := Read(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	b, err := Read(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	c, err := Read(strings.NewReader(sampleCatalog + "p5,Pen,Office,,1,2\n"))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint, 64)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("title,price_min\nfoo,1\n"))
	assert.Error(t, err)
}

func TestRead_EmptyCatalog(t *testing.T) {
	res, err := Read(strings.NewReader("id,title,category,tags,price_min,price_max\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Zero(t, res.Skipped)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	res, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, res.Products, 3)

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.True(t, core.IsMissingResource(err))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"", 0, true},
		{"42", 42, true},
		{"-3", -3, true},
		{"9.99", 9, true},
		{"NaN", 0, false},
		{"$5", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

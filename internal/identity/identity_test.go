package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveEquivalentURLsCollapse(t *testing.T) {
	variants := []string{
		"https://www.example.com/rezepte/pie",
		"https://www.example.com/rezepte/pie/",
		"HTTPS://WWW.EXAMPLE.COM/rezepte/pie",
		"https://www.example.com/rezepte/pie?utm_source=mail",
		"https://www.example.com/rezepte/pie#ingredients",
		"  https://www.example.com/rezepte/pie  ",
	}

	base, err := Derive(variants[0])
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/rezepte/pie", base.URL)
	assert.Len(t, base.ID, 64)

	for _, v := range variants[1:] {
		got, err := Derive(v)
		require.NoError(t, err, v)
		assert.Equal(t, base.ID, got.ID, v)
		assert.Equal(t, base.URL, got.URL, v)
	}
}

func TestDeriveStableAcrossCalls(t *testing.T) {
	a, err := Derive("https://kitchen.test/soup")
	require.NoError(t, err)
	b, err := Derive("https://kitchen.test/soup")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveDistinctURLsDiffer(t *testing.T) {
	a, err := Derive("https://kitchen.test/soup")
	require.NoError(t, err)
	b, err := Derive("https://kitchen.test/stew")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDeriveAssumesHTTPScheme(t *testing.T) {
	got, err := Derive("www.example.com/cake")
	require.NoError(t, err)
	assert.Equal(t, "http://www.example.com/cake", got.URL)
}

func TestDeriveRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not a url at all",
		"ftp://example.com/recipe",
		"https://",
		"justaword",
	} {
		_, err := Derive(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidURL), raw)
	}
}

func TestCaseOnlyPathsStayDistinct(t *testing.T) {
	// Path case is significant on most servers; only scheme and host fold.
	a, err := Derive("https://example.com/Pie")
	require.NoError(t, err)
	b, err := Derive("https://example.com/pie")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"ascii_upper", "Venta De Boletos", "venta de boletos"},
		{"acute_accents", "Próxima Venta de Boletos", "proxima venta de boletos"},
		{"tilde", "Mañana", "manana"},
		{"diaeresis", "Pingüino", "pinguino"},
		{"already_normalized", "venta de boletos", "venta de boletos"},
		{"decomposed_input", "café", "cafe"},
		{"non_latin_untouched", "⚽ gol", "⚽ gol"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Text(tc.input))
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"Venta De Boletos",
		"ÁÉÍÓÚ ÑÜ",
		"İstanbul",
		"Crème Brûlée",
		"ﬁnal",
		"",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords([]string{" Venta de Boletos ", "", "  ", "Preventa", "BOLETERÍA"})
	assert.Equal(t, []string{"venta de boletos", "preventa", "boleteria"}, got)
}

func TestFirstMatch(t *testing.T) {
	keywords := Keywords([]string{"preventa", "venta de boletos"})

	kw, ok := FirstMatch(Text("Ya inició la VENTA DE BOLETOS para el partido"), keywords)
	assert.True(t, ok)
	assert.Equal(t, "venta de boletos", kw)

	kw, ok = FirstMatch(Text("Preventa y venta de boletos"), keywords)
	assert.True(t, ok)
	assert.Equal(t, "preventa", kw, "first keyword in config order wins")

	_, ok = FirstMatch(Text("Noticias del club"), keywords)
	assert.False(t, ok)

	_, ok = FirstMatch("anything", nil)
	assert.False(t, ok)
}

package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Habitación", "habitacion"},
		{"  ¿Cuál es el HORARIO?  ", "cual es el horario"},
		{"pequeño", "pequeno"},
		{"12/05 - 2 pax", "12 05 2 pax"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestInformative(t *testing.T) {
	assert.False(t, Informative("hi"))
	assert.False(t, Informative("¿?"))
	assert.True(t, Informative("spa"))
}

func TestContainsMatchesWholeWords(t *testing.T) {
	assert.True(t, Contains("quiero el spa ahora", "spa"))
	assert.True(t, Contains("pet friendly", "pet friendly"))
	assert.False(t, Contains("espacio", "spa"))
	assert.True(t, HasPrefixWord("quiero reservar", "reserv"))
}

func TestOverlapRatio(t *testing.T) {
	assert.InDelta(t, 1.0, OverlapRatio("Suite amplia luminosa", "una suite amplia y luminosa"), 0.001)
	assert.InDelta(t, 0.5, OverlapRatio("terraza privada", "terraza compartida"), 0.001)
	assert.Equal(t, 0.0, OverlapRatio("si", "si"))
}

func TestMeaningfulTokensDropStopwords(t *testing.T) {
	assert.Equal(t, []string{"terraza", "vista"}, MeaningfulTokens("Hotel Humano: terraza con vista, terraza ideal"))
	assert.Equal(t, 2, SharedMeaningful("la terraza tiene vista", "Terraza con vista al mar hotel"))
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Cama king.", FirstSentence("Cama king. Vista al parque."))
	assert.Equal(t, "Sin punto", FirstSentence("Sin punto"))
}

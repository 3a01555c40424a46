package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNameFoldsArabicVariants(t *testing.T) {
	assert.Equal(t, NormalizeName("أحمد"), NormalizeName("احمد"))
	assert.Equal(t, NormalizeName("فاطمة"), NormalizeName("فاطمه"))
	assert.Equal(t, NormalizeName("مصطفى"), NormalizeName("مصطفي"))
}

func TestNormalizeNameStripsNoise(t *testing.T) {
	assert.Equal(t, "شركه الخليج", NormalizeName("  شركة   الخليج. "))
	assert.Equal(t, "al wakra motors", NormalizeName("Al-Wakra  MOTORS!"))
}

func TestNormalizeNameArabicIndicDigits(t *testing.T) {
	assert.Equal(t, "عقد 123", NormalizeName("عقد ١٢٣"))
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "123456", NormalizePlate(" 12 34 56 "))
	assert.Equal(t, "7ABC890", NormalizePlate("7-abc-890"))
	assert.Equal(t, "123456", NormalizePlate("١٢٣٤٥٦"))
}

func TestPlateVariationsLeadingZeros(t *testing.T) {
	v := PlateVariations("012345")
	assert.Contains(t, v, "012345")
	assert.Contains(t, v, "12345")
	assert.Contains(t, v, "0012345")
	assert.Contains(t, v, "00012345")
}

func TestPlatesEquivalent(t *testing.T) {
	assert.True(t, PlatesEquivalent("012345", "12345"))
	assert.True(t, PlatesEquivalent("12345", "0012345"))
	assert.True(t, PlatesEquivalent("12 34 56", "123456"))
	assert.False(t, PlatesEquivalent("12345", "54321"))
	assert.False(t, PlatesEquivalent("", "12345"))
}

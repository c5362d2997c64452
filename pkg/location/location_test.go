package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Same point.
	assert.Equal(t, 0.0, HaversineKm(-17.39, -66.16, -17.39, -66.16))

	// Cochabamba plaza to Quillacollo, roughly 13 km.
	d := HaversineKm(-17.3935, -66.1570, -17.3925, -66.2788)
	assert.InDelta(t, 12.9, d, 1.0)

	// Symmetric.
	assert.InDelta(t,
		HaversineKm(-17.39, -66.16, -16.50, -68.15),
		HaversineKm(-16.50, -68.15, -17.39, -66.16),
		1e-9)

	// La Paz to Cochabamba is a few hundred km, not thousands.
	lp := HaversineKm(-16.4897, -68.1193, -17.3935, -66.1570)
	assert.Greater(t, lp, 200.0)
	assert.Less(t, lp, 350.0)
}

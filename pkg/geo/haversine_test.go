package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	// Bangalore city center to the airport, roughly 32km great-circle.
	d := HaversineMeters(12.9716, 77.5946, 13.1986, 77.7066)
	assert.InDelta(t, 28000, d, 1000)

	// One degree of latitude is about 111.2km anywhere.
	d = HaversineMeters(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)

	assert.Zero(t, HaversineMeters(12.9716, 77.5946, 12.9716, 77.5946))
}

func TestHaversineSymmetric(t *testing.T) {
	ab := HaversineMeters(12.9716, 77.5946, 28.6139, 77.2090)
	ba := HaversineMeters(28.6139, 77.2090, 12.9716, 77.5946)
	assert.InDelta(t, ab, ba, 0.001)
}

func TestTravelSeconds(t *testing.T) {
	// 25 km/h covers 1km in 144 seconds.
	assert.Equal(t, 144, TravelSeconds(1000, 25))
	assert.Equal(t, 0, TravelSeconds(0, 25))
	assert.Equal(t, 0, TravelSeconds(1000, 0), "non-positive speed yields no estimate")
	assert.Equal(t, 0, TravelSeconds(1000, -5))
}

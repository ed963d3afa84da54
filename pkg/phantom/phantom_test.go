package phantom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctvolume/internal/models"
)

func TestWater(t *testing.T) {
	vol, err := Water(10, 1.0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Geometry{NX: 10, NY: 10, NZ: 10, DX: 1, DY: 1, DZ: 1}, vol.Geometry)
	assert.Len(t, vol.Data, 1000)
	for _, v := range vol.Data {
		assert.Zero(t, v)
	}

	vol, err = Water(3, 2.5, 1000)
	require.NoError(t, err)
	assert.Equal(t, int16(1000), vol.At(2, 2, 2))

	_, err = Water(0, 1, 0)
	assert.Error(t, err)
	_, err = Water(4, -1, 0)
	assert.Error(t, err)
}

func TestCylinder(t *testing.T) {
	vol, err := Cylinder(9, 1, 0, 500, 2)
	require.NoError(t, err)
	for z := 0; z < 9; z++ {
		assert.Equal(t, int16(500), vol.At(4, 4, z))
		assert.Equal(t, int16(500), vol.At(6, 4, z))
		assert.Equal(t, int16(0), vol.At(0, 0, z))
		assert.Equal(t, int16(0), vol.At(7, 4, z))
	}
}

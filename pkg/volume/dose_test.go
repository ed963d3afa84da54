package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctvolume/internal/models"
)

// regionDose builds a dose overlay over vol's geometry with data only in the region.
func regionDose(vol *models.Volume, x0, x1, z0, z1 int) *models.DoseOverlay {
	dose := models.NewDoseOverlay(vol.Geometry)
	dose.SourceX, dose.SourceZ, dose.Energy = 3, 2, 6.5
	dose.X0, dose.X1, dose.Z0, dose.Z1 = x0, x1, z0, z1
	for z := z0; z <= z1; z++ {
		for y := 0; y < vol.NY; y++ {
			for x := x0; x <= x1; x++ {
				dose.Dose[vol.Index(x, y, z)] = float32(1 + x + 10*y + 100*z)
			}
		}
	}
	return dose
}

// TestLoadDose checks the sub-region scatter and the zero fill elsewhere
func TestLoadDose(t *testing.T) {
	vol := gradientVolume(6, 3, 5)
	want := regionDose(vol, 1, 3, 2, 3)
	path := filepath.Join(t.TempDir(), "beam.dose")
	require.NoError(t, WriteDose(path, want))

	got, err := LoadDose(path, vol)
	require.NoError(t, err)

	assert.Equal(t, 3, got.SourceX)
	assert.Equal(t, 2, got.SourceZ)
	assert.Equal(t, float32(6.5), got.Energy)
	assert.Equal(t, [4]int{1, 3, 2, 3}, [4]int{got.X0, got.X1, got.Z0, got.Z1})
	assert.Equal(t, want.Dose, got.Dose)

	for z := 0; z < vol.NZ; z++ {
		for y := 0; y < vol.NY; y++ {
			for x := 0; x < vol.NX; x++ {
				v := got.Dose[vol.Index(x, y, z)]
				if x < 1 || x > 3 || z < 2 || z > 3 {
					assert.Zero(t, v, "outside region at (%d,%d,%d)", x, y, z)
				} else {
					assert.NotZero(t, v)
				}
			}
		}
	}
}

// TestLoadDoseLayout checks the on-disk order: z-major, full y, x-minor
func TestLoadDoseLayout(t *testing.T) {
	vol := models.NewVolume(models.Geometry{NX: 3, NY: 2, NZ: 2, DX: 1, DY: 1, DZ: 1})

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []int32{3, 2, 2})
	binary.Write(&buf, binary.LittleEndian, []float32{1, 1, 1})
	binary.Write(&buf, binary.LittleEndian, []int32{1, 0})
	binary.Write(&buf, binary.LittleEndian, float32(10))
	binary.Write(&buf, binary.LittleEndian, []int32{1, 2, 1, 1})
	binary.Write(&buf, binary.LittleEndian, []float32{1, 2, 3, 4})
	path := filepath.Join(t.TempDir(), "layout.dose")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	got, err := LoadDose(path, vol)
	require.NoError(t, err)
	assert.Equal(t, []float32{
		0, 0, 0,
		0, 0, 0,
		0, 1, 2,
		0, 3, 4,
	}, got.Dose)
	assert.InDelta(t, 100, got.Percent[vol.Index(2, 1, 1)], 1e-4)
	assert.InDelta(t, 25, got.Percent[vol.Index(1, 0, 1)], 1e-4)
}

// TestLoadDoseGeometryMismatch checks every single-field difference is rejected
func TestLoadDoseGeometryMismatch(t *testing.T) {
	vol := gradientVolume(4, 3, 2)
	dir := t.TempDir()

	for name, mutate := range map[string]func(*models.Geometry){
		"nx": func(g *models.Geometry) { g.NX++ },
		"ny": func(g *models.Geometry) { g.NY++ },
		"nz": func(g *models.Geometry) { g.NZ-- },
		"dx": func(g *models.Geometry) { g.DX += 0.001 },
		"dy": func(g *models.Geometry) { g.DY *= 2 },
		"dz": func(g *models.Geometry) { g.DZ = math.Nextafter32(g.DZ, 10) },
	} {
		t.Run(name, func(t *testing.T) {
			other := models.NewVolume(vol.Geometry)
			mutate(&other.Geometry)
			other.Data = make([]int16, other.Voxels())
			path := filepath.Join(dir, name+".dose")
			require.NoError(t, WriteDose(path, regionDose(other, 0, 0, 0, 0)))

			dose, err := LoadDose(path, vol)
			assert.Nil(t, dose)
			require.True(t, errors.Is(err, models.ErrGeometryMismatch))

			var gm *models.GeometryMismatchError
			require.True(t, errors.As(err, &gm))
			assert.Equal(t, vol.Geometry, gm.Image)
			assert.Equal(t, other.Geometry, gm.Dose)
			assert.Contains(t, gm.Error(), "Image:")
			assert.Contains(t, gm.Error(), "Dose:")
		})
	}
}

// TestLoadDoseTruncated checks short payloads and bad regions are format errors
func TestLoadDoseTruncated(t *testing.T) {
	vol := gradientVolume(4, 3, 2)
	dir := t.TempDir()
	full := filepath.Join(dir, "full.dose")
	require.NoError(t, WriteDose(full, regionDose(vol, 0, 3, 0, 1)))
	raw, err := os.ReadFile(full)
	require.NoError(t, err)

	for _, n := range []int{10, 30, len(raw) - 2} {
		path := filepath.Join(dir, "short.dose")
		require.NoError(t, os.WriteFile(path, raw[:n], 0644))
		_, err := LoadDose(path, vol)
		assert.True(t, errors.Is(err, models.ErrFormat), "length %d: %v", n, err)
	}

	bad := append([]byte(nil), raw...)
	// x1 lies at byte offset 40
	binary.LittleEndian.PutUint32(bad[40:], 9)
	path := filepath.Join(dir, "region.dose")
	require.NoError(t, os.WriteFile(path, bad, 0644))
	_, err = LoadDose(path, vol)
	assert.ErrorIs(t, err, models.ErrFormat)
}

// TestDosePercent checks normalisation and the zero-maximum guard
func TestDosePercent(t *testing.T) {
	vol := gradientVolume(2, 2, 2)
	dose := models.NewDoseOverlay(vol.Geometry)
	dose.X1, dose.Z1 = 1, 1
	copy(dose.Dose, []float32{0, 1, 2, 4, 8, 0.5, 0, 3})
	dose.Normalize()
	for i, v := range dose.Dose {
		assert.InDelta(t, float64(v)/(0.01*8), float64(dose.Percent[i]), 1e-4)
	}

	path := filepath.Join(t.TempDir(), "zero.dose")
	require.NoError(t, WriteDose(path, models.NewDoseOverlay(vol.Geometry)))
	zero, err := LoadDose(path, vol)
	require.NoError(t, err)
	for _, v := range zero.Percent {
		assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		assert.Zero(t, v)
	}
}

// TestStore checks the open / dose / write flow of a store
func TestStore(t *testing.T) {
	dir := t.TempDir()
	vol := gradientVolume(4, 3, 2)
	img := filepath.Join(dir, "ct.img")
	require.NoError(t, Write(img, vol, nil))
	dosePath := filepath.Join(dir, "ct.dose")
	require.NoError(t, WriteDose(dosePath, regionDose(vol, 1, 2, 0, 1)))

	s := NewStore()
	assert.Error(t, s.LoadDose(dosePath))

	require.NoError(t, s.Open(img))
	assert.Equal(t, dir, s.Dir)
	assert.False(t, s.HasDose())
	require.NoError(t, s.LoadDose(dosePath))
	assert.True(t, s.HasDose())
	assert.Contains(t, s.Info(), "(4, 3, 2) voxels with (0.977, 0.977, 2.500) mm size")
	assert.Contains(t, s.Info(), "Dose range is X(1, 2), Z(0, 1)")

	plane, err := s.Slice(models.AxisZ, 1)
	require.NoError(t, err)
	assert.Equal(t, vol.At(3, 2, 1), plane[2][3])

	out := filepath.Join(dir, "copy.img")
	require.NoError(t, s.Write(out, nil))
	assert.ErrorIs(t, s.Write(out, nil), models.ErrAlreadyExists)

	// Reopening drops the overlay.
	require.NoError(t, s.Open(out))
	assert.False(t, s.HasDose())
}

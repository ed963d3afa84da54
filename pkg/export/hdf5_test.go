package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctvolume/internal/models"
)

func testVolume() *models.Volume {
	vol := models.NewVolume(models.Geometry{NX: 4, NY: 3, NZ: 2, DX: 0.5, DY: 0.5, DZ: 2})
	for i := range vol.Data {
		vol.Data[i] = int16(i - 10)
	}
	return vol
}

func datasets(t *testing.T, path string) map[string]*hdf5.Dataset {
	t.Helper()
	f, err := hdf5.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	found := make(map[string]*hdf5.Dataset)
	f.Walk(func(_ string, obj hdf5.Object) {
		if ds, ok := obj.(*hdf5.Dataset); ok {
			found[strings.TrimPrefix(ds.Name(), "/")] = ds
		}
	})
	return found
}

func TestWriteHDF5Volume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.h5")
	require.NoError(t, WriteHDF5(path, testVolume(), nil, false))

	found := datasets(t, path)
	assert.Contains(t, found, "voxels")
	assert.NotContains(t, found, "dose")
}

func TestWriteHDF5Dose(t *testing.T) {
	vol := testVolume()
	dose := models.NewDoseOverlay(vol.Geometry)
	dose.SourceX, dose.SourceZ, dose.Energy = 2, 1, 6
	dose.X0, dose.X1, dose.Z0, dose.Z1 = 1, 2, 0, 1
	dose.Dose[vol.Index(2, 1, 1)] = 4
	dose.Normalize()

	path := filepath.Join(t.TempDir(), "dose.h5")
	require.NoError(t, WriteHDF5(path, vol, dose, false))

	found := datasets(t, path)
	require.Contains(t, found, "dose")
	require.Contains(t, found, "dose_pct")

	values, err := found["dose_pct"].Read()
	require.NoError(t, err)
	require.Len(t, values, vol.Voxels())
	assert.InDelta(t, 100, values[vol.Index(2, 1, 1)], 1e-4)
	assert.Zero(t, values[0])
}

func TestWriteHDF5Policy(t *testing.T) {
	vol := testVolume()
	path := filepath.Join(t.TempDir(), "volume.h5")
	require.NoError(t, WriteHDF5(path, vol, nil, false))

	err := WriteHDF5(path, vol, nil, false)
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	assert.NoError(t, WriteHDF5(path, vol, nil, true))

	other := models.NewDoseOverlay(models.Geometry{NX: 1, NY: 1, NZ: 1, DX: 1, DY: 1, DZ: 1})
	err = WriteHDF5(filepath.Join(t.TempDir(), "bad.h5"), vol, other, false)
	assert.ErrorIs(t, err, models.ErrGeometryMismatch)

	assert.Error(t, WriteHDF5(filepath.Join(t.TempDir(), "empty.h5"), &models.Volume{}, nil, false))
}

func TestWriteHDF5FailedOverwriteKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.h5")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))

	// geometry needs 24 voxels, only 3 are present
	bad := &models.Volume{Geometry: testVolume().Geometry, Data: make([]int16, 3)}
	assert.ErrorIs(t, WriteHDF5(path, bad, nil, true), models.ErrIO)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	err = WriteHDF5(path, testVolume(), nil, false)
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(raw))
}

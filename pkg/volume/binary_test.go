package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctvolume/internal/models"
)

// gradientVolume fills each voxel with a value unique to its position.
func gradientVolume(nx, ny, nz int) *models.Volume {
	vol := models.NewVolume(models.Geometry{NX: nx, NY: ny, NZ: nz, DX: 0.977, DY: 0.977, DZ: 2.5})
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				vol.Set(x, y, z, int16(z*1000+y*50+x-1024))
			}
		}
	}
	return vol
}

// TestWriteReadRoundTrip checks geometry and payload survive bit for bit
func TestWriteReadRoundTrip(t *testing.T) {
	vol := gradientVolume(5, 4, 3)
	vol.Data[0] = -32768
	vol.Data[len(vol.Data)-1] = 32767
	path := filepath.Join(t.TempDir(), "ct.img")

	require.NoError(t, Write(path, vol, nil))

	got, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, vol.Geometry, got.Geometry)
	assert.Equal(t, vol.Data, got.Data)
}

// TestWriteLayout checks the exact byte layout of the image file
func TestWriteLayout(t *testing.T) {
	vol := models.NewVolume(models.Geometry{NX: 2, NY: 1, NZ: 1, DX: 1, DY: 2, DZ: 3})
	vol.Data[0], vol.Data[1] = 1, -2
	path := filepath.Join(t.TempDir(), "ct.img")
	require.NoError(t, Write(path, vol, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var want bytes.Buffer
	binary.Write(&want, binary.LittleEndian, []int32{2, 1, 1})
	binary.Write(&want, binary.LittleEndian, []float32{1, 2, 3})
	binary.Write(&want, binary.LittleEndian, []int16{1, -2})
	assert.Equal(t, want.Bytes(), raw)
}

// TestWriteCropped checks the sub-box header and voxel mapping
func TestWriteCropped(t *testing.T) {
	vol := gradientVolume(6, 5, 4)
	crop := &models.Bounds{X0: 1, X1: 3, Y0: 2, Y1: 4, Z0: 1, Z1: 2}
	path := filepath.Join(t.TempDir(), "crop.img")

	require.NoError(t, Write(path, vol, crop))

	got, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.Geometry{NX: 3, NY: 3, NZ: 2, DX: vol.DX, DY: vol.DY, DZ: vol.DZ}, got.Geometry)
	for k := 0; k < got.NZ; k++ {
		for j := 0; j < got.NY; j++ {
			for i := 0; i < got.NX; i++ {
				assert.Equal(t, vol.At(crop.X0+i, crop.Y0+j, crop.Z0+k), got.At(i, j, k))
			}
		}
	}
}

// TestWriteInvalidCrop checks bad bounds fail without creating a file
func TestWriteInvalidCrop(t *testing.T) {
	vol := gradientVolume(4, 4, 4)
	dir := t.TempDir()
	for _, b := range []models.Bounds{
		{X0: -1, X1: 2, Y1: 3, Z1: 3},
		{X0: 0, X1: 4, Y1: 3, Z1: 3},
		{X0: 2, X1: 1, Y1: 3, Z1: 3},
		{X1: 3, Y1: 3, Z0: 3, Z1: 4},
	} {
		b := b
		path := filepath.Join(dir, "bad.img")
		assert.Error(t, Write(path, vol, &b))
		assert.NoFileExists(t, path)
	}
}

// TestWriteExisting checks an existing target is refused unless overwriting
func TestWriteExisting(t *testing.T) {
	vol := gradientVolume(2, 2, 2)
	path := filepath.Join(t.TempDir(), "ct.img")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))

	err := Write(path, vol, nil)
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))
	raw, _ := os.ReadFile(path)
	assert.Equal(t, "keep", string(raw))

	require.NoError(t, Write(path, vol, nil, WithOverwrite()))
	got, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, vol.Data, got.Data)
}

// TestOverwriteFailureKeepsOriginal checks a failed overwrite leaves the old file in place
func TestOverwriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ct.img")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))

	err := createFile(path, true, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return errors.New("disk full")
	})
	assert.ErrorIs(t, err, models.ErrIO)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

// TestWriteMissingDirectory checks a filesystem failure surfaces as ErrIO
func TestWriteMissingDirectory(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "no", "such", "ct.img"), gradientVolume(2, 2, 2), nil)
	assert.ErrorIs(t, err, models.ErrIO)
}

// TestOpenFileTruncated checks short files fail with a format error
func TestOpenFileTruncated(t *testing.T) {
	vol := gradientVolume(3, 3, 3)
	dir := t.TempDir()
	full := filepath.Join(dir, "full.img")
	require.NoError(t, Write(full, vol, nil))
	raw, err := os.ReadFile(full)
	require.NoError(t, err)

	for _, n := range []int{0, 10, 24, len(raw) - 1} {
		path := filepath.Join(dir, "short.img")
		require.NoError(t, os.WriteFile(path, raw[:n], 0644))

		_, err := OpenFile(path)
		assert.True(t, errors.Is(err, models.ErrFormat), "length %d: %v", n, err)
	}

	// Trailing bytes are ignored.
	long := filepath.Join(dir, "long.img")
	require.NoError(t, os.WriteFile(long, append(raw, 1, 2, 3), 0644))
	got, err := OpenFile(long)
	require.NoError(t, err)
	assert.Equal(t, vol.Data, got.Data)
}

// TestOpenFileInvalidDimensions checks non-positive header dimensions
func TestOpenFileInvalidDimensions(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []int32{0, 4, 4})
	binary.Write(&buf, binary.LittleEndian, []float32{1, 1, 1})
	path := filepath.Join(t.TempDir(), "zero.img")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	_, err := OpenFile(path)
	assert.ErrorIs(t, err, models.ErrFormat)
}

// TestOpenFileMissing checks a missing file is an IO error
func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.img"))
	assert.ErrorIs(t, err, models.ErrIO)
}

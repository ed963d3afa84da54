// Package volume assembles CT slices into volumes and reads and writes the
// .img image and .dose overlay binary files.
//
// Both formats are little-endian and carry no magic number, version or
// checksum:
//
//	.img   int32 nx, ny, nz; float32 dx, dy, dz; int16[nz][ny][nx]
//	.dose  int32 nx, ny, nz; float32 dx, dy, dz; int32 x, z; float32 energy;
//	       int32 x0, x1; int32 z0, z1; float32[z1-z0+1][ny][x1-x0+1]
package volume

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"ctvolume/internal/models"
	"ctvolume/pkg/logging"
)

var logger = logging.NamedLogger("volume")

var byteOrder = binary.LittleEndian

// headerSize is the size in bytes of the geometry header shared by both formats.
const headerSize = 24

type header struct {
	NX, NY, NZ int32
	DX, DY, DZ float32
}

func headerOf(g models.Geometry) header {
	return header{
		NX: int32(g.NX), NY: int32(g.NY), NZ: int32(g.NZ),
		DX: g.DX, DY: g.DY, DZ: g.DZ,
	}
}

func (h header) geometry() models.Geometry {
	return models.Geometry{
		NX: int(h.NX), NY: int(h.NY), NZ: int(h.NZ),
		DX: h.DX, DY: h.DY, DZ: h.DZ,
	}
}

// OpenFile reads a volume previously written by Write.
//
// A file shorter than its header declares, or with non-positive dimensions,
// fails with a *models.FormatError. Trailing bytes are ignored.
func OpenFile(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, &models.IOError{Op: "stat", Path: path, Err: err}
	}
	if st.Size() < headerSize {
		return nil, &models.FormatError{Path: path, Err: fmt.Errorf("file is %d bytes, header needs %d", st.Size(), headerSize)}
	}

	r := bufio.NewReader(f)
	var h header
	if err := binary.Read(r, byteOrder, &h); err != nil {
		return nil, &models.FormatError{Path: path, Err: err}
	}
	g := h.geometry()
	if g.NX <= 0 || g.NY <= 0 || g.NZ <= 0 {
		return nil, &models.FormatError{Path: path, Err: fmt.Errorf("invalid dimensions (%d, %d, %d)", g.NX, g.NY, g.NZ)}
	}

	want := int64(headerSize) + int64(g.NX)*int64(g.NY)*int64(g.NZ)*2
	if st.Size() < want {
		return nil, &models.FormatError{Path: path, Err: fmt.Errorf("file is %d bytes, header declares %d", st.Size(), want)}
	}

	vol := models.NewVolume(g)
	if err := binary.Read(r, byteOrder, vol.Data); err != nil {
		return nil, &models.FormatError{Path: path, Err: err}
	}

	logger.Infof("read %s: %s", path, vol.VoxelInfo())
	return vol, nil
}

// Write stores vol at path. When crop is non-nil only the inclusive box is
// written and the header carries the cropped dimensions; spacing is kept.
//
// An existing file fails with models.ErrAlreadyExists unless WithOverwrite
// is given. Invalid crop bounds fail before the file is created.
func Write(path string, vol *models.Volume, crop *models.Bounds, opts ...Option) error {
	o := newOptions(opts)

	if vol.Empty() {
		return errors.New("cannot write an empty volume")
	}
	box := models.FullBounds(vol.Geometry)
	if crop != nil {
		if err := crop.Validate(vol.Geometry); err != nil {
			return fmt.Errorf("crop: %w", err)
		}
		box = *crop
	}

	return createFile(path, o.overwrite, func(w io.Writer) error {
		if err := binary.Write(w, byteOrder, headerOf(box.Crop(vol.Geometry))); err != nil {
			return err
		}
		// Rows inside the box are contiguous along x.
		for z := box.Z0; z <= box.Z1; z++ {
			for y := box.Y0; y <= box.Y1; y++ {
				start := vol.Index(box.X0, y, z)
				if err := binary.Write(w, byteOrder, vol.Data[start:start+box.X1-box.X0+1]); err != nil {
					return err
				}
			}
		}
		logger.Infof("wrote %s: %s", path, box.Crop(vol.Geometry))
		return nil
	})
}

// createFile opens path for writing, runs fill through a buffered writer
// and closes the file on every path. A failed write removes the partial file.
// When overwriting, the data goes to a temporary file in the same directory
// that replaces path only once it is complete, so a failure leaves the old
// file untouched.
func createFile(path string, overwrite bool, fill func(io.Writer) error) (err error) {
	var f *os.File
	if overwrite {
		f, err = os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	} else {
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrAlreadyExists, path)
		}
		return &models.IOError{Op: "create", Path: path, Err: err}
	}
	written := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(written)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.IOError{Op: "close", Path: path, Err: err}
	}
	if !overwrite {
		return nil
	}

	if err := os.Chmod(written, 0644); err != nil {
		return &models.IOError{Op: "chmod", Path: written, Err: err}
	}
	if err := os.Rename(written, path); err != nil {
		return &models.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Package export writes CT volumes and dose overlays to HDF5 files for use in
// analysis tools outside this module.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scigolib/hdf5"

	"ctvolume/internal/models"
	"ctvolume/pkg/logging"
)

var logger = logging.NamedLogger("export")

// Dataset names used in exported files.
const (
	VoxelsDataset  = "/voxels"
	DoseDataset    = "/dose"
	PercentDataset = "/dose_pct"
)

// WriteHDF5 stores vol, and dose when it is not nil, in a new HDF5 file.
// Arrays are laid out [nz][ny][nx]. An existing file is only replaced when
// overwrite is set; the replacement is written next to it and renamed over
// it once complete.
func WriteHDF5(path string, vol *models.Volume, dose *models.DoseOverlay, overwrite bool) (err error) {
	if vol.Empty() {
		return errors.New("no image volume to export")
	}
	if dose != nil && !dose.Geometry.Equal(vol.Geometry) {
		return &models.GeometryMismatchError{Path: path, Image: vol.Geometry, Dose: dose.Geometry}
	}

	written := path
	mode := hdf5.CreateExclusive
	if overwrite {
		tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
		if err != nil {
			return &models.IOError{Op: "create", Path: path, Err: err}
		}
		tmp.Close()
		written, mode = tmp.Name(), hdf5.CreateTruncate
	}

	fw, err := hdf5.CreateForWrite(written, mode)
	if err != nil {
		if overwrite {
			os.Remove(written)
		}
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrAlreadyExists, path)
		}
		return &models.IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = &models.IOError{Op: "close", Path: path, Err: cerr}
		}
		if err == nil && overwrite {
			if rerr := os.Rename(written, path); rerr != nil {
				err = &models.IOError{Op: "rename", Path: path, Err: rerr}
			}
		}
		if err != nil {
			os.Remove(written)
		}
	}()

	dims := []uint64{uint64(vol.NZ), uint64(vol.NY), uint64(vol.NX)}

	ds, err := fw.CreateDataset(VoxelsDataset, hdf5.Int16, dims)
	if err != nil {
		return &models.IOError{Op: "create dataset " + VoxelsDataset, Path: path, Err: err}
	}
	if err := ds.Write(vol.Data); err != nil {
		return &models.IOError{Op: "write " + VoxelsDataset, Path: path, Err: err}
	}
	if err := ds.WriteAttribute("spacing", []float32{vol.DX, vol.DY, vol.DZ}); err != nil {
		return &models.IOError{Op: "write spacing", Path: path, Err: err}
	}
	logger.Debugf("wrote %s %v", VoxelsDataset, dims)

	if dose == nil {
		logger.Infof("exported %s to %s", vol.Geometry, path)
		return nil
	}

	for _, field := range []struct {
		name string
		data []float32
	}{
		{DoseDataset, dose.Dose},
		{PercentDataset, dose.Percent},
	} {
		if err := writeDoseField(fw, field.name, dims, field.data, dose); err != nil {
			return &models.IOError{Op: "write " + field.name, Path: path, Err: err}
		}
	}
	logger.Infof("exported %s with dose to %s", vol.Geometry, path)
	return nil
}

func writeDoseField(fw *hdf5.FileWriter, name string, dims []uint64, data []float32, dose *models.DoseOverlay) error {
	ds, err := fw.CreateDataset(name, hdf5.Float32, dims)
	if err != nil {
		return err
	}
	if err := ds.Write(data); err != nil {
		return err
	}
	if err := ds.WriteAttribute("source", []int32{int32(dose.SourceX), int32(dose.SourceZ)}); err != nil {
		return err
	}
	if err := ds.WriteAttribute("energy", dose.Energy); err != nil {
		return err
	}
	return ds.WriteAttribute("bounds", []int32{
		int32(dose.X0), int32(dose.X1), int32(dose.Z0), int32(dose.Z1),
	})
}

package volume

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"ctvolume/internal/models"
)

// doseHeaderSize is the size of the beam and region fields following the geometry header.
const doseHeaderSize = 24

type doseHeader struct {
	SourceX, SourceZ int32
	Energy           float32
	X0, X1           int32
	Z0, Z1           int32
}

// LoadDose reads the dose file at path for vol.
//
// The dose geometry must equal the volume geometry exactly, otherwise a
// *models.GeometryMismatchError is returned and nothing is read further.
// The stored sub-region is scattered into a zero-filled full-size field and
// the percentage field is computed from it.
func LoadDose(path string, vol *models.Volume) (*models.DoseOverlay, error) {
	if vol.Empty() {
		return nil, errors.New("no image volume loaded")
	}

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
	if g := h.geometry(); !g.Equal(vol.Geometry) {
		logger.Warnf("dose %s does not match image: image %s, dose %s", path, vol.Geometry, g)
		return nil, &models.GeometryMismatchError{Path: path, Image: vol.Geometry, Dose: g}
	}

	if st.Size() < headerSize+doseHeaderSize {
		return nil, &models.FormatError{Path: path, Err: errors.New("dose header is truncated")}
	}
	var dh doseHeader
	if err := binary.Read(r, byteOrder, &dh); err != nil {
		return nil, &models.FormatError{Path: path, Err: err}
	}

	dose := models.NewDoseOverlay(vol.Geometry)
	dose.SourceX, dose.SourceZ, dose.Energy = int(dh.SourceX), int(dh.SourceZ), dh.Energy
	dose.X0, dose.X1 = int(dh.X0), int(dh.X1)
	dose.Z0, dose.Z1 = int(dh.Z0), int(dh.Z1)
	if err := dose.ValidateRegion(); err != nil {
		return nil, &models.FormatError{Path: path, Err: err}
	}

	nx, nz := dose.RegionNX(), dose.RegionNZ()
	want := int64(headerSize+doseHeaderSize) + int64(nx)*int64(vol.NY)*int64(nz)*4
	if st.Size() < want {
		return nil, &models.FormatError{Path: path, Err: fmt.Errorf("file is %d bytes, header declares %d", st.Size(), want)}
	}

	if err := readRegion(r, dose); err != nil {
		return nil, &models.FormatError{Path: path, Err: err}
	}
	dose.Normalize()

	logger.Infof("read dose %s", path)
	logger.Debug(dose.Summary())
	return dose, nil
}

// readRegion reads the sub-region one x-row at a time into its place in the
// full dose array.
func readRegion(r io.Reader, dose *models.DoseOverlay) error {
	row := make([]float32, dose.RegionNX())
	for z := dose.Z0; z <= dose.Z1; z++ {
		for y := 0; y < dose.NY; y++ {
			if err := binary.Read(r, byteOrder, row); err != nil {
				return err
			}
			start := (z*dose.NY+y)*dose.NX + dose.X0
			copy(dose.Dose[start:start+len(row)], row)
		}
	}
	return nil
}

// WriteDose stores the populated sub-region of dose at path in the layout
// read by LoadDose.
func WriteDose(path string, dose *models.DoseOverlay, opts ...Option) error {
	o := newOptions(opts)
	if err := dose.ValidateRegion(); err != nil {
		return err
	}
	if len(dose.Dose) != dose.Voxels() {
		return fmt.Errorf("dose array has %d values, geometry needs %d", len(dose.Dose), dose.Voxels())
	}

	return createFile(path, o.overwrite, func(w io.Writer) error {
		if err := binary.Write(w, byteOrder, headerOf(dose.Geometry)); err != nil {
			return err
		}
		dh := doseHeader{
			SourceX: int32(dose.SourceX), SourceZ: int32(dose.SourceZ), Energy: dose.Energy,
			X0: int32(dose.X0), X1: int32(dose.X1),
			Z0: int32(dose.Z0), Z1: int32(dose.Z1),
		}
		if err := binary.Write(w, byteOrder, dh); err != nil {
			return err
		}
		for z := dose.Z0; z <= dose.Z1; z++ {
			for y := 0; y < dose.NY; y++ {
				start := (z*dose.NY+y)*dose.NX + dose.X0
				if err := binary.Write(w, byteOrder, dose.Dose[start:start+dose.RegionNX()]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

package volume

import (
	"fmt"
	"path/filepath"

	"ctvolume/internal/models"
	"ctvolume/pkg/dicomslice"
)

// OpenDirectory assembles every slice file in dir into a single volume.
//
// The slices are ordered by ascending slice location, which becomes the z
// axis. Columns, rows, pixel spacing and thickness come from the last slice
// read; with WithStrictGeometry every slice must agree with it.
//
// Returns:
//   - *models.EmptyInputError when dir holds no slice files
//   - *models.ReadError when any slice cannot be read; no partial volume is returned
func OpenDirectory(dir string, opts ...Option) (*models.Volume, error) {
	o := newOptions(opts)

	// Step 1: enumerate slice files
	names, err := dicomslice.List(dir, o.ext)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &models.EmptyInputError{Dir: dir, Ext: o.ext}
	}

	// Step 2: read every slice with its location
	slices := make([]*models.Slice, 0, len(names))
	for _, name := range names {
		s, err := dicomslice.Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		slices = append(slices, s)
	}
	last := slices[len(slices)-1]

	if o.strict {
		for _, s := range slices {
			if err := sameGeometry(last, s); err != nil {
				return nil, &models.ReadError{Path: filepath.Join(dir, s.Filename), Err: err}
			}
		}
	}

	// Step 3: sort by location and fill the volume slice by slice
	dicomslice.SortByLocation(slices)

	vol := models.NewVolume(models.Geometry{
		NX: last.Columns,
		NY: last.Rows,
		NZ: len(slices),
		DX: last.PixelSpacing[0],
		DY: last.PixelSpacing[1],
		DZ: last.Thickness,
	})
	plane := vol.NX * vol.NY
	for z, s := range slices {
		if len(s.Pixels) != plane {
			return nil, &models.ReadError{
				Path: filepath.Join(dir, s.Filename),
				Err:  fmt.Errorf("slice is %dx%d, volume is %dx%d", s.Columns, s.Rows, vol.NX, vol.NY),
			}
		}
		copy(vol.Data[z*plane:(z+1)*plane], s.Pixels)
	}

	logger.Infof("assembled %d slices from %s: %s", len(slices), dir, vol.VoxelInfo())
	return vol, nil
}

func sameGeometry(ref, s *models.Slice) error {
	if s.Columns != ref.Columns || s.Rows != ref.Rows {
		return fmt.Errorf("slice is %dx%d, expected %dx%d", s.Columns, s.Rows, ref.Columns, ref.Rows)
	}
	if s.PixelSpacing != ref.PixelSpacing {
		return fmt.Errorf("pixel spacing %v, expected %v", s.PixelSpacing, ref.PixelSpacing)
	}
	if s.Thickness != ref.Thickness {
		return fmt.Errorf("slice thickness %g, expected %g", s.Thickness, ref.Thickness)
	}
	return nil
}

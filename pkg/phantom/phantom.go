// Package phantom builds synthetic CT volumes for calibration and testing.
package phantom

import (
	"fmt"

	"ctvolume/internal/models"
)

// Water returns an n x n x n volume of isotropic voxel size d with every
// voxel set to value.
func Water(n int, d float32, value int16) (*models.Volume, error) {
	g := models.Geometry{NX: n, NY: n, NZ: n, DX: d, DY: d, DZ: d}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("phantom: %w", err)
	}
	vol := models.NewVolume(g)
	if value != 0 {
		for i := range vol.Data {
			vol.Data[i] = value
		}
	}
	return vol, nil
}

// Cylinder returns a water volume with a coaxial cylinder of radius r mm
// along z filled with insert. Useful for checking orientation of slice views.
func Cylinder(n int, d float32, water, insert int16, r float64) (*models.Volume, error) {
	vol, err := Water(n, d, water)
	if err != nil {
		return nil, err
	}
	c := float64(n-1) / 2
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx := (float64(x) - c) * float64(d)
			dy := (float64(y) - c) * float64(d)
			if dx*dx+dy*dy > r*r {
				continue
			}
			for z := 0; z < n; z++ {
				vol.Set(x, y, z, insert)
			}
		}
	}
	return vol, nil
}

package models

import "fmt"

// DoseOverlay is a dose field aligned with a parent volume. Only the
// [X0..X1] x [Z0..Z1] columns carry data; every other cell is zero.
type DoseOverlay struct {
	Geometry

	// SourceX and SourceZ are the beam source indices
	SourceX, SourceZ int

	// Energy is the beam energy
	Energy float32

	// X0, X1, Z0, Z1 are the inclusive bounds of the populated sub-region
	X0, X1 int
	Z0, Z1 int

	// Dose is the full-size [z][y][x] dose array
	Dose []float32

	// Percent is Dose normalised to the maximum dose, in percent
	Percent []float32
}

// NewDoseOverlay allocates a zero dose field for g.
func NewDoseOverlay(g Geometry) *DoseOverlay {
	return &DoseOverlay{
		Geometry: g,
		Dose:     make([]float32, g.Voxels()),
		Percent:  make([]float32, g.Voxels()),
	}
}

// RegionNX and RegionNZ are the extents of the populated sub-region.
func (d *DoseOverlay) RegionNX() int { return d.X1 - d.X0 + 1 }
func (d *DoseOverlay) RegionNZ() int { return d.Z1 - d.Z0 + 1 }

// ValidateRegion checks that the populated sub-region lies inside the geometry.
func (d *DoseOverlay) ValidateRegion() error {
	if d.X0 < 0 || d.X1 >= d.NX || d.X0 > d.X1 {
		return fmt.Errorf("dose x range [%d, %d] invalid for size %d", d.X0, d.X1, d.NX)
	}
	if d.Z0 < 0 || d.Z1 >= d.NZ || d.Z0 > d.Z1 {
		return fmt.Errorf("dose z range [%d, %d] invalid for size %d", d.Z0, d.Z1, d.NZ)
	}
	return nil
}

// Max returns the largest dose value.
func (d *DoseOverlay) Max() float32 {
	var m float32
	for i, v := range d.Dose {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// Normalize recomputes Percent as Dose / (max * 0.01). A zero maximum
// yields an all-zero field.
func (d *DoseOverlay) Normalize() {
	if len(d.Percent) != len(d.Dose) {
		d.Percent = make([]float32, len(d.Dose))
	}
	m := d.Max()
	if m == 0 {
		for i := range d.Percent {
			d.Percent[i] = 0
		}
		return
	}
	// The maximum maps to exactly 100.
	scale := float64(m) * 0.01
	for i, v := range d.Dose {
		d.Percent[i] = float32(float64(v) / scale)
	}
}

// PercentSlice returns a copy of the percentage field on the plane at index
// along axis, shaped like Volume.Slice.
func (d *DoseOverlay) PercentSlice(axis Axis, index int) ([][]float32, error) {
	rows, cols, err := planeShape(d.Geometry, axis, index)
	if err != nil {
		return nil, err
	}
	plane := make([][]float32, rows)
	for r := range plane {
		plane[r] = make([]float32, cols)
		for c := range plane[r] {
			plane[r][c] = d.Percent[planeOffset(d.Geometry, axis, index, r, c)]
		}
	}
	return plane, nil
}

// Summary renders the beam and region metadata.
func (d *DoseOverlay) Summary() string {
	return fmt.Sprintf("Dose at X = %d, Z = %d, Energy = %.2f\nDose range is X(%d, %d), Z(%d, %d)",
		d.SourceX, d.SourceZ, d.Energy, d.X0, d.X1, d.Z0, d.Z1)
}

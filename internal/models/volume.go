package models

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Geometry holds the voxel counts and voxel spacing of a volume
type Geometry struct {
	// NX, NY, NZ are the number of columns, rows and slices
	NX, NY, NZ int

	// DX, DY, DZ are the voxel sizes in mm
	DX, DY, DZ float32
}

// Voxels returns the number of voxels described by the geometry.
func (g Geometry) Voxels() int {
	return g.NX * g.NY * g.NZ
}

// Equal reports whether two geometries match exactly, field by field.
func (g Geometry) Equal(o Geometry) bool {
	return g.NX == o.NX && g.NY == o.NY && g.NZ == o.NZ &&
		g.DX == o.DX && g.DY == o.DY && g.DZ == o.DZ
}

// Validate checks that every count and spacing is positive.
func (g Geometry) Validate() error {
	if g.NX <= 0 || g.NY <= 0 || g.NZ <= 0 {
		return fmt.Errorf("non-positive dimensions (%d, %d, %d)", g.NX, g.NY, g.NZ)
	}
	if !(g.DX > 0 && g.DY > 0 && g.DZ > 0) {
		return fmt.Errorf("non-positive spacing (%g, %g, %g)", g.DX, g.DY, g.DZ)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("(%d, %d, %d) at (%.3f, %.3f, %.3f) mm", g.NX, g.NY, g.NZ, g.DX, g.DY, g.DZ)
}

// Volume is a CT volume of raw 16-bit values stored as a flat [z][y][x] array
type Volume struct {
	Geometry

	// Data holds NZ*NY*NX raw values, x varying fastest
	Data []int16
}

// NewVolume allocates a zero-filled volume for the given geometry.
func NewVolume(g Geometry) *Volume {
	return &Volume{Geometry: g, Data: make([]int16, g.Voxels())}
}

// Index returns the flat offset of voxel (x, y, z).
func (v *Volume) Index(x, y, z int) int {
	return (z*v.NY+y)*v.NX + x
}

// At returns voxel (x, y, z).
func (v *Volume) At(x, y, z int) int16 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a value at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, value int16) {
	v.Data[v.Index(x, y, z)] = value
}

// Empty reports whether the volume has not been populated.
func (v *Volume) Empty() bool {
	return v == nil || v.Voxels() == 0
}

// VoxelInfo renders the dimensions and voxel size as a single line.
func (v *Volume) VoxelInfo() string {
	return fmt.Sprintf("(%d, %d, %d) voxels with (%.3f, %.3f, %.3f) mm size",
		v.NX, v.NY, v.NZ, v.DX, v.DY, v.DZ)
}

// Extent returns the physical size of the volume along x, y and z in mm.
func (v *Volume) Extent() [3]float64 {
	return [3]float64{
		float64(v.NX) * float64(v.DX),
		float64(v.NY) * float64(v.DY),
		float64(v.NZ) * float64(v.DZ),
	}
}

// Stats summarises the raw voxel values.
type Stats struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Stats computes min, max, mean and standard deviation of the voxel data.
func (v *Volume) Stats() Stats {
	if len(v.Data) == 0 {
		return Stats{}
	}
	values := make([]float64, len(v.Data))
	for i, d := range v.Data {
		values[i] = float64(d)
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Stats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}

// Slice returns a copy of the 2D plane at index along axis.
// Z yields [NY][NX], Y yields [NZ][NX] and X yields [NZ][NY].
func (v *Volume) Slice(axis Axis, index int) ([][]int16, error) {
	rows, cols, err := planeShape(v.Geometry, axis, index)
	if err != nil {
		return nil, err
	}
	plane := make([][]int16, rows)
	for r := range plane {
		plane[r] = make([]int16, cols)
		for c := range plane[r] {
			plane[r][c] = v.Data[planeOffset(v.Geometry, axis, index, r, c)]
		}
	}
	return plane, nil
}

// planeShape returns the row and column counts of a plane along axis.
func planeShape(g Geometry, axis Axis, index int) (int, int, error) {
	var n, rows, cols int
	switch axis {
	case AxisZ:
		n, rows, cols = g.NZ, g.NY, g.NX
	case AxisY:
		n, rows, cols = g.NY, g.NZ, g.NX
	case AxisX:
		n, rows, cols = g.NX, g.NZ, g.NY
	default:
		return 0, 0, fmt.Errorf("invalid axis: %v", axis)
	}
	if index < 0 || index >= n {
		return 0, 0, fmt.Errorf("index %d out of range [0, %d) along %v", index, n, axis)
	}
	return rows, cols, nil
}

// planeOffset maps row r and column c of a plane back to a flat voxel offset.
func planeOffset(g Geometry, axis Axis, index, r, c int) int {
	switch axis {
	case AxisZ:
		return (index*g.NY+r)*g.NX + c
	case AxisY:
		return (r*g.NY+index)*g.NX + c
	default:
		return (r*g.NY+c)*g.NX + index
	}
}

package models

import (
	"fmt"
	"strings"
)

// Axis selects one of the three orthogonal viewing directions
type Axis int

const (
	// AxisX is the sagittal direction (planes of constant column)
	AxisX Axis = iota
	// AxisY is the coronal direction (planes of constant row)
	AxisY
	// AxisZ is the axial direction (planes of constant slice)
	AxisZ
)

// ParseAxis accepts x/y/z or sagittal/coronal/axial in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x", "sagittal":
		return AxisX, nil
	case "y", "coronal":
		return AxisY, nil
	case "z", "axial":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Len returns the number of planes along the axis.
func (g Geometry) Len(a Axis) int {
	switch a {
	case AxisX:
		return g.NX
	case AxisY:
		return g.NY
	case AxisZ:
		return g.NZ
	}
	return 0
}

// Bounds is an inclusive axis-aligned box of voxel indices
type Bounds struct {
	X0, X1 int
	Y0, Y1 int
	Z0, Z1 int
}

// FullBounds covers every voxel of g.
func FullBounds(g Geometry) Bounds {
	return Bounds{X1: g.NX - 1, Y1: g.NY - 1, Z1: g.NZ - 1}
}

// Validate checks that the box is non-empty and lies inside g.
func (b Bounds) Validate(g Geometry) error {
	check := func(name string, lo, hi, n int) error {
		if lo < 0 || hi >= n || lo > hi {
			return fmt.Errorf("%s range [%d, %d] invalid for size %d", name, lo, hi, n)
		}
		return nil
	}
	if err := check("x", b.X0, b.X1, g.NX); err != nil {
		return err
	}
	if err := check("y", b.Y0, b.Y1, g.NY); err != nil {
		return err
	}
	return check("z", b.Z0, b.Z1, g.NZ)
}

// Crop returns the geometry of the box; spacing is unchanged.
func (b Bounds) Crop(g Geometry) Geometry {
	return Geometry{
		NX: b.X1 - b.X0 + 1,
		NY: b.Y1 - b.Y0 + 1,
		NZ: b.Z1 - b.Z0 + 1,
		DX: g.DX, DY: g.DY, DZ: g.DZ,
	}
}

// ParseRange parses an inclusive "lo:hi" index range. An empty string
// selects [0, n-1].
func ParseRange(s string, n int) (int, int, error) {
	if s == "" {
		return 0, n - 1, nil
	}
	var lo, hi int
	if _, err := fmt.Sscanf(s, "%d:%d", &lo, &hi); err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: expected lo:hi", s)
	}
	return lo, hi, nil
}

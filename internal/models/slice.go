package models

import (
	"fmt"
	"math/rand"
	"strings"
)

// NotDefined is reported for optional slice tags that are absent from the file.
const NotDefined = "Not Defined"

// Slice represents a single CT slice read from a DICOM file
type Slice struct {
	// Filename is the base name of the file the slice was read from
	Filename string

	// Pixels holds the raw stored values in row-major order (Rows x Columns)
	Pixels []int16

	// Columns and Rows are the in-plane dimensions in pixels
	Columns int
	Rows    int

	// Location is the slice location tag, used only to order slices
	Location float64

	// PixelSpacing is the in-plane spacing in mm, in the order stored in the file
	PixelSpacing [2]float32

	// Thickness is the through-plane spacing in mm
	Thickness float32

	// RescaleSlope and RescaleIntercept are nil when the tags are absent
	RescaleSlope     *float64
	RescaleIntercept *float64

	// RescaleType is NotDefined when the tag is absent
	RescaleType string

	// PatientZ is the third component of the image position, nil when absent
	PatientZ *float64
}

// At returns the raw pixel value at column x, row y.
func (s *Slice) At(x, y int) int16 {
	return s.Pixels[y*s.Columns+x]
}

// Rescaled applies the rescale slope and intercept to a raw value.
// Missing tags act as the identity transform.
func (s *Slice) Rescaled(raw int16) float64 {
	v := float64(raw)
	if s.RescaleSlope != nil {
		v *= *s.RescaleSlope
	}
	if s.RescaleIntercept != nil {
		v += *s.RescaleIntercept
	}
	return v
}

// Describe renders the slice metadata as a multi-line summary.
func (s *Slice) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d x %d pixels, %.3f x %.3f x %.3f mm\n",
		s.Columns, s.Rows, s.PixelSpacing[0], s.PixelSpacing[1], s.Thickness)
	if s.PatientZ != nil {
		fmt.Fprintf(&b, "Patient Z Position: %.2f\n", *s.PatientZ)
	} else {
		fmt.Fprintf(&b, "Patient Z Position: %s\n", NotDefined)
	}
	fmt.Fprintf(&b, "Slice Location: %.2f\n", s.Location)
	fmt.Fprintf(&b, "Rescale Slope: %s\n", optionalString(s.RescaleSlope))
	fmt.Fprintf(&b, "Rescale Intercept: %s\n", optionalString(s.RescaleIntercept))
	fmt.Fprintf(&b, "Rescale Type: %s\n", s.RescaleType)
	return b.String()
}

func optionalString(v *float64) string {
	if v == nil {
		return NotDefined
	}
	return fmt.Sprintf("%g", *v)
}

// SamplePoint is a single pixel readout.
type SamplePoint struct {
	X, Y  int
	Raw   int16
	Value float64
}

// Sample picks n pseudo-random pixels inside the central region of the slice,
// leaving a border of 1/margin of the size on each side. The same seed always
// yields the same points.
func (s *Slice) Sample(n, margin int, seed int64) []SamplePoint {
	if n <= 0 || s.Columns == 0 || s.Rows == 0 {
		return nil
	}
	if margin < 3 {
		margin = 3
	}

	x0, x1 := s.Columns/margin, s.Columns/margin*(margin-1)
	y0, y1 := s.Rows/margin, s.Rows/margin*(margin-1)
	if x1 <= x0 {
		x0, x1 = 0, s.Columns
	}
	if y1 <= y0 {
		y0, y1 = 0, s.Rows
	}

	rng := rand.New(rand.NewSource(seed))
	points := make([]SamplePoint, n)
	for i := range points {
		x := x0 + rng.Intn(x1-x0)
		y := y0 + rng.Intn(y1-y0)
		raw := s.At(x, y)
		points[i] = SamplePoint{X: x, Y: y, Raw: raw, Value: s.Rescaled(raw)}
	}
	return points
}

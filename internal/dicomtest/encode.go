// Package dicomtest writes small explicit VR little-endian DICOM files for tests.
package dicomtest

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"
)

// SliceSpec describes a synthetic CT slice.
type SliceSpec struct {
	Columns, Rows    int
	Location         float64
	PixelSpacing     [2]float64
	Thickness        float64
	RescaleSlope     *float64
	RescaleIntercept *float64
	RescaleType      string
	PatientZ         *float64
	Pixels           []int16

	// Omit lists element names left out of the file: "location",
	// "spacing", "thickness", "rows", "columns", "pixels".
	Omit []string
}

// Filled returns a spec of cols x rows pixels all set to value.
func Filled(cols, rows int, location float64, value int16) SliceSpec {
	px := make([]int16, cols*rows)
	for i := range px {
		px[i] = value
	}
	return SliceSpec{
		Columns:      cols,
		Rows:         rows,
		Location:     location,
		PixelSpacing: [2]float64{0.5, 0.5},
		Thickness:    1.25,
		Pixels:       px,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func (s SliceSpec) omitted(name string) bool {
	for _, o := range s.Omit {
		if o == name {
			return true
		}
	}
	return false
}

// Write encodes the slice into dir/name and returns the full path.
func Write(dir, name string, s SliceSpec) (string, error) {
	path := filepath.Join(dir, name)
	data, err := Encode(s)
	if err != nil {
		return path, err
	}
	return path, os.WriteFile(path, data, 0644)
}

// Encode returns the Part 10 encoding of the slice.
func Encode(s SliceSpec) ([]byte, error) {
	b := &builder{}
	b.add(tag.TransferSyntaxUID, []string{uid.ExplicitVRLittleEndian})
	if !s.omitted("thickness") {
		b.add(tag.SliceThickness, decimals(s.Thickness))
	}
	if s.PatientZ != nil {
		b.add(tag.ImagePositionPatient, decimals(0, 0, *s.PatientZ))
	}
	if !s.omitted("location") {
		b.add(tag.SliceLocation, decimals(s.Location))
	}
	b.add(tag.SamplesPerPixel, []int{1})
	if !s.omitted("rows") {
		b.add(tag.Rows, []int{s.Rows})
	}
	if !s.omitted("columns") {
		b.add(tag.Columns, []int{s.Columns})
	}
	if !s.omitted("spacing") {
		b.add(tag.PixelSpacing, decimals(s.PixelSpacing[0], s.PixelSpacing[1]))
	}
	b.add(tag.BitsAllocated, []int{16})
	b.add(tag.BitsStored, []int{16})
	b.add(tag.HighBit, []int{15})
	b.add(tag.PixelRepresentation, []int{1})
	if s.RescaleIntercept != nil {
		b.add(tag.RescaleIntercept, decimals(*s.RescaleIntercept))
	}
	if s.RescaleSlope != nil {
		b.add(tag.RescaleSlope, decimals(*s.RescaleSlope))
	}
	if s.RescaleType != "" {
		b.add(tag.RescaleType, []string{s.RescaleType})
	}
	if !s.omitted("pixels") {
		b.add(tag.PixelData, pixelData(s))
	}
	if b.err != nil {
		return nil, b.err
	}

	var out bytes.Buffer
	if err := dicom.Write(&out, dicom.Dataset{Elements: b.elements}, dicom.SkipVRVerification()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// builder collects elements in tag order and keeps the first error.
type builder struct {
	elements []*dicom.Element
	err      error
}

func (b *builder) add(t tag.Tag, data interface{}) {
	if b.err != nil {
		return
	}
	el, err := dicom.NewElement(t, data)
	if err != nil {
		b.err = err
		return
	}
	b.elements = append(b.elements, el)
}

func pixelData(s SliceSpec) dicom.PixelDataInfo {
	data := make([][]int, len(s.Pixels))
	for i, v := range s.Pixels {
		data[i] = []int{int(v)}
	}
	return dicom.PixelDataInfo{
		Frames: []*frame.Frame{{
			NativeData: frame.NativeFrame{
				Data:          data,
				Rows:          s.Rows,
				Cols:          s.Columns,
				BitsPerSample: 16,
			},
		}},
	}
}

func decimals(values ...float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

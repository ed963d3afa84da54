// Package dicomslice reads single CT slices from DICOM files, keeping only
// the pixel data and the geometry and calibration tags needed to stack them.
package dicomslice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"ctvolume/internal/models"
	"ctvolume/pkg/logging"
)

// DefaultExtension is the file extension recognised as a slice.
const DefaultExtension = ".dcm"

var logger = logging.NamedLogger("dicomslice")

// Read parses the slice at path. Missing required tags (location, spacing,
// thickness, rows, columns, pixel data) fail with a *models.ReadError; the
// optional rescale tags are reported as absent instead.
func Read(path string) (*models.Slice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}

	s, err := fromDataset(ds)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}
	s.Filename = filepath.Base(path)

	logger.Debugf("read %s: %dx%d, location %.3f, spacing %v, thickness %.3f",
		s.Filename, s.Columns, s.Rows, s.Location, s.PixelSpacing, s.Thickness)
	return s, nil
}

func fromDataset(ds dicom.Dataset) (*models.Slice, error) {
	s := &models.Slice{RescaleType: models.NotDefined}
	var err error

	if s.Columns, err = intTag(ds, tag.Columns); err != nil {
		return nil, err
	}
	if s.Rows, err = intTag(ds, tag.Rows); err != nil {
		return nil, err
	}
	if s.Columns <= 0 || s.Rows <= 0 {
		return nil, fmt.Errorf("invalid slice size %dx%d", s.Columns, s.Rows)
	}

	if s.Location, err = floatTag(ds, tag.SliceLocation); err != nil {
		return nil, err
	}

	spacing, err := floatsTag(ds, tag.PixelSpacing)
	if err != nil {
		return nil, err
	}
	if len(spacing) < 2 {
		return nil, fmt.Errorf("pixel spacing has %d values, expected 2", len(spacing))
	}
	s.PixelSpacing = [2]float32{float32(spacing[0]), float32(spacing[1])}

	thickness, err := floatTag(ds, tag.SliceThickness)
	if err != nil {
		return nil, err
	}
	s.Thickness = float32(thickness)

	if v, err := floatTag(ds, tag.RescaleSlope); err == nil {
		s.RescaleSlope = &v
	}
	if v, err := floatTag(ds, tag.RescaleIntercept); err == nil {
		s.RescaleIntercept = &v
	}
	if v, err := stringTag(ds, tag.RescaleType); err == nil && v != "" {
		s.RescaleType = v
	}
	if pos, err := floatsTag(ds, tag.ImagePositionPatient); err == nil && len(pos) == 3 {
		s.PatientZ = &pos[2]
	}

	if s.Pixels, err = pixels(ds, s.Rows, s.Columns); err != nil {
		return nil, err
	}
	return s, nil
}

// pixels extracts the first native frame as signed 16-bit values.
func pixels(ds dicom.Dataset, rows, cols int) ([]int16, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("pixel data: %w", err)
	}

	var info dicom.PixelDataInfo
	switch v := el.Value.GetValue().(type) {
	case dicom.PixelDataInfo:
		info = v
	case *dicom.PixelDataInfo:
		info = *v
	default:
		return nil, fmt.Errorf("pixel data has unexpected type %T", v)
	}
	if info.IsEncapsulated {
		return nil, errors.New("encapsulated (compressed) pixel data is not supported")
	}
	if len(info.Frames) == 0 {
		return nil, errors.New("pixel data has no frames")
	}

	native := info.Frames[0].NativeData
	if len(native.Data) != rows*cols {
		return nil, fmt.Errorf("pixel data has %d pixels, expected %dx%d", len(native.Data), cols, rows)
	}
	out := make([]int16, len(native.Data))
	for i, px := range native.Data {
		if len(px) == 0 {
			return nil, fmt.Errorf("pixel %d has no samples", i)
		}
		// Stored values may come back unsigned; reinterpret the 16 bits.
		out[i] = int16(uint16(px[0]))
	}
	return out, nil
}

func intTag(ds dicom.Dataset, t tag.Tag) (int, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", tagName(t), err)
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], nil
		}
	case []string:
		if len(v) > 0 {
			return strconv.Atoi(clean(v[0]))
		}
	}
	return 0, fmt.Errorf("%s: no integer value", tagName(t))
}

func floatTag(ds dicom.Dataset, t tag.Tag) (float64, error) {
	values, err := floatsTag(ds, t)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: empty value", tagName(t))
	}
	return values[0], nil
}

func floatsTag(ds dicom.Dataset, t tag.Tag) ([]float64, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tagName(t), err)
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			// Decimal strings may hold several values in one element.
			for _, part := range strings.Split(s, `\`) {
				part = clean(part)
				if part == "" {
					continue
				}
				f, err := strconv.ParseFloat(part, 64)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", tagName(t), err)
				}
				out = append(out, f)
			}
		}
		return out, nil
	case []float64:
		return v, nil
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: unsupported value type", tagName(t))
}

func stringTag(ds dicom.Dataset, t tag.Tag) (string, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "", err
	}
	if v, ok := el.Value.GetValue().([]string); ok && len(v) > 0 {
		return clean(v[0]), nil
	}
	return "", fmt.Errorf("%s: no string value", tagName(t))
}

func clean(s string) string {
	return strings.Trim(s, " \x00")
}

func tagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return t.String()
}

// List returns the names of the files in dir carrying extension ext,
// compared case-insensitively, in directory order.
func List(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &models.IOError{Op: "read dir", Path: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SortByLocation orders slices by ascending slice location, breaking ties
// by file name so the result is reproducible.
func SortByLocation(slices []*models.Slice) {
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Location != slices[j].Location {
			return slices[i].Location < slices[j].Location
		}
		return slices[i].Filename < slices[j].Filename
	})
}

// ListSorted reads every slice in dir and returns their file names ordered
// by slice location.
func ListSorted(dir, ext string) ([]string, error) {
	names, err := List(dir, ext)
	if err != nil {
		return nil, err
	}
	slices := make([]*models.Slice, 0, len(names))
	for _, name := range names {
		s, err := Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		s.Pixels = nil
		slices = append(slices, s)
	}
	SortByLocation(slices)

	sorted := make([]string, len(slices))
	for i, s := range slices {
		sorted[i] = s.Filename
	}
	return sorted, nil
}

// Package visualization renders planes of a CT volume as grayscale images,
// optionally with the dose percentage drawn over them as filled contour bands.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"ctvolume/internal/models"
	"ctvolume/pkg/logging"
)

var logger = logging.NamedLogger("visualization")

// Window maps raw voxel values onto display gray levels. Values below
// Center-Width/2 are black and values above Center+Width/2 are white.
type Window struct {
	Center float64
	Width  float64
}

// Style controls how slices are rendered and saved.
type Style struct {
	Window Window

	// DoseLevels are the ascending band edges of the dose percentage
	// overlay. Values below the first edge are left unpainted.
	DoseLevels []float64

	// DoseAlpha is the opacity of the overlay in [0, 1].
	DoseAlpha float64

	// JPEGQuality is used when saving .jpg/.jpeg files.
	JPEGQuality int
}

// DefaultStyle returns the rendering settings used when none are configured.
func DefaultStyle() Style {
	return Style{
		Window:      Window{Center: 0, Width: 2000},
		DoseLevels:  []float64{0.02, 0.1, 1, 10, 100},
		DoseAlpha:   0.5,
		JPEGQuality: 90,
	}
}

// Viewer renders planes of a volume and of its optional dose overlay.
type Viewer struct {
	vol   *models.Volume
	dose  *models.DoseOverlay
	style Style
}

// NewViewer creates a viewer. dose may be nil.
func NewViewer(vol *models.Volume, dose *models.DoseOverlay, style Style) (*Viewer, error) {
	if vol.Empty() {
		return nil, errors.New("no image volume to render")
	}
	if dose != nil && !dose.Geometry.Equal(vol.Geometry) {
		return nil, &models.GeometryMismatchError{Image: vol.Geometry, Dose: dose.Geometry}
	}
	if style.Window.Width <= 0 {
		return nil, fmt.Errorf("window width must be positive, got %g", style.Window.Width)
	}
	return &Viewer{vol: vol, dose: dose, style: style}, nil
}

// HasDose reports whether an overlay will be drawn by Render.
func (v *Viewer) HasDose() bool {
	return v.dose != nil
}

// planeLayout returns the image size for axis and a function giving the (row,
// column) of the volume plane for each image pixel. Sagittal planes are
// transposed so that y runs down the image as in the axial view.
func planeLayout(g models.Geometry, axis models.Axis) (w, h int, at func(x, y int) (int, int)) {
	switch axis {
	case models.AxisX:
		return g.NZ, g.NY, func(x, y int) (int, int) { return x, y }
	case models.AxisY:
		return g.NX, g.NZ, func(x, y int) (int, int) { return y, x }
	default:
		return g.NX, g.NY, func(x, y int) (int, int) { return y, x }
	}
}

// ExtractSlice renders the plane at index along axis through the window.
func (v *Viewer) ExtractSlice(axis models.Axis, index int) (*image.Gray, error) {
	plane, err := v.vol.Slice(axis, index)
	if err != nil {
		return nil, err
	}

	w, h, at := planeLayout(v.vol.Geometry, axis)
	img := image.NewGray(image.Rect(0, 0, w, h))
	lo := v.style.Window.Center - v.style.Window.Width/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, c := at(x, y)
			img.SetGray(x, y, color.Gray{Y: v.gray(float64(plane[r][c]), lo)})
		}
	}
	return img, nil
}

func (v *Viewer) gray(value, lo float64) uint8 {
	t := (value - lo) / v.style.Window.Width
	return uint8(math.Round(255 * math.Max(0, math.Min(1, t))))
}

// OverlayDose renders the plane at index and blends the dose bands over it.
// Without an attached dose the result is the plain slice in RGBA.
func (v *Viewer) OverlayDose(axis models.Axis, index int) (*image.RGBA, error) {
	base, err := v.ExtractSlice(axis, index)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(base.Bounds())
	draw.Draw(out, out.Bounds(), base, image.Point{}, draw.Src)
	if v.dose == nil {
		return out, nil
	}

	plane, err := v.dose.PercentSlice(axis, index)
	if err != nil {
		return nil, err
	}
	w, h, at := planeLayout(v.vol.Geometry, axis)
	alpha := math.Max(0, math.Min(1, v.style.DoseAlpha))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, c := at(x, y)
			band := Band(v.style.DoseLevels, float64(plane[r][c]))
			if band < 0 {
				continue
			}
			out.SetRGBA(x, y, blend(out.RGBAAt(x, y), BandColor(band, len(v.style.DoseLevels)-1), alpha))
		}
	}
	return out, nil
}

// Band returns the index of the contour band containing value, or -1 when
// value lies outside [levels[0], levels[len-1]].
func Band(levels []float64, value float64) int {
	if len(levels) < 2 || value < levels[0] || value > levels[len(levels)-1] {
		return -1
	}
	for i := 1; i < len(levels)-1; i++ {
		if value < levels[i] {
			return i - 1
		}
	}
	return len(levels) - 2
}

// BandColor returns the jet color of band out of n bands.
func BandColor(band, n int) color.RGBA {
	t := 0.0
	if n > 1 {
		t = float64(band) / float64(n-1)
	}
	channel := func(offset float64) uint8 {
		c := 1.5 - math.Abs(4*t-offset)
		return uint8(math.Round(255 * math.Max(0, math.Min(1, c))))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 255}
}

func blend(dst, src color.RGBA, alpha float64) color.RGBA {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

// Render draws the plane with the overlay when a dose is attached.
func (v *Viewer) Render(axis models.Axis, index int) (image.Image, error) {
	if v.dose == nil {
		return v.ExtractSlice(axis, index)
	}
	return v.OverlayDose(axis, index)
}

// SaveSlice writes img as PNG or JPEG depending on the file extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) (err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported image format %q (want .png, .jpg or .jpeg)", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return &models.IOError{Op: "create", Path: filename, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &models.IOError{Op: "close", Path: filename, Err: cerr}
		}
	}()

	if ext == ".png" {
		err = png.Encode(file, img)
	} else {
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: v.style.JPEGQuality})
	}
	if err != nil {
		return &models.IOError{Op: "encode", Path: filename, Err: err}
	}
	logger.Debugf("saved %s", filename)
	return nil
}

// SaveSliceSequence renders every plane along axis into outputDir as
// slice_<axis>_<index>.<format>, returning the number of files written.
func (v *Viewer) SaveSliceSequence(axis models.Axis, outputDir, format string) (int, error) {
	format = strings.TrimPrefix(format, ".")
	if format == "" {
		format = "png"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, &models.IOError{Op: "mkdir", Path: outputDir, Err: err}
	}

	n := v.vol.Len(axis)
	if n == 0 {
		return 0, fmt.Errorf("invalid axis: %s", axis)
	}
	for pos := 0; pos < n; pos++ {
		img, err := v.Render(axis, pos)
		if err != nil {
			return pos, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}
	logger.Infof("saved %d %s slices to %s", n, axis, outputDir)
	return n, nil
}

// ThreeViews composes the axial, coronal and sagittal planes through
// (ix, iy, iz) into one image: axial bottom left, coronal above it and
// sagittal to its right. Negative indices select the volume centre.
func (v *Viewer) ThreeViews(ix, iy, iz int) (*image.RGBA, error) {
	g := v.vol.Geometry
	if ix < 0 {
		ix = g.NX / 2
	}
	if iy < 0 {
		iy = g.NY / 2
	}
	if iz < 0 {
		iz = g.NZ / 2
	}

	axial, err := v.OverlayDose(models.AxisZ, iz)
	if err != nil {
		return nil, err
	}
	coronal, err := v.OverlayDose(models.AxisY, iy)
	if err != nil {
		return nil, err
	}
	sagittal, err := v.OverlayDose(models.AxisX, ix)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, g.NX+g.NZ, g.NZ+g.NY))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, coronal.Bounds(), coronal, image.Point{}, draw.Src)
	draw.Draw(out, axial.Bounds().Add(image.Pt(0, g.NZ)), axial, image.Point{}, draw.Src)
	draw.Draw(out, sagittal.Bounds().Add(image.Pt(g.NX, g.NZ)), sagittal, image.Point{}, draw.Src)
	return out, nil
}

// Package resample re-bins a CT volume onto a coarser or finer voxel grid
// using overlap-weighted averaging.
package resample

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"ctvolume/internal/models"
	"ctvolume/pkg/logging"
)

var logger = logging.NamedLogger("resample")

// Params holds the target voxel size and the parallelism
type Params struct {
	// DX, DY, DZ are the new voxel sizes in mm
	DX, DY, DZ float32

	// NumCores is the number of workers splitting the output z planes.
	// Zero means all available CPUs.
	NumCores int
}

// bins maps every output cell along one axis onto the source cells it covers.
// Output cell i reads idx[i*width : (i+1)*width] weighted by ratio.
type bins struct {
	width int
	idx   []int
	ratio []float32
}

// newBins lays out nn output cells of size nd over n source cells of size d,
// both grids centred on the same point.
func newBins(nn int, nd float32, n int, d float32) bins {
	width := int(nd/d) + 2
	b := bins{
		width: width,
		idx:   make([]int, nn*width),
		ratio: make([]float32, nn*width),
	}
	for i := range b.ratio {
		b.ratio[i] = 1
	}

	loc := make([]float32, nn+1)
	for i := range loc {
		loc[i] = float32(i-nn/2)*nd/d + float32(n/2)
	}

	for i := 0; i < nn; i++ {
		x0, x1 := loc[i], loc[i+1]
		i0, i1 := int(x0), int(x1)
		if float32(i1) < x1 {
			i1++
		}

		base := i * width
		span := i1 - i0
		// The last covered cell is partial; slots past it carry no weight.
		if span >= 1 && span <= width {
			b.ratio[base+span-1] = x1 - float32(i1) + 1
			for j := span; j < width; j++ {
				b.ratio[base+j] = 0
			}
		}
		if span == 1 {
			b.ratio[base] = x1 - x0
		} else {
			b.ratio[base] = float32(i0) + 1 - x0
		}
		for j := 0; j < span && j < width; j++ {
			b.idx[base+j] = i0 + j
		}
	}
	return b
}

// Size returns the voxel count along one axis after resampling.
func Size(n int, d, nd float32) int {
	return int(float32(n/2)*d/nd) * 2
}

// Resample re-bins vol to the voxel size in p. The grid keeps the volume
// centre; an even number of voxels is produced along each axis.
func Resample(vol *models.Volume, p Params) (*models.Volume, error) {
	if vol.Empty() {
		return nil, errors.New("cannot resample an empty volume")
	}
	if !(p.DX > 0 && p.DY > 0 && p.DZ > 0) {
		return nil, fmt.Errorf("new voxel size must be positive, got (%g, %g, %g)", p.DX, p.DY, p.DZ)
	}

	g := models.Geometry{
		NX: Size(vol.NX, vol.DX, p.DX),
		NY: Size(vol.NY, vol.DY, p.DY),
		NZ: Size(vol.NZ, vol.DZ, p.DZ),
		DX: p.DX, DY: p.DY, DZ: p.DZ,
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("resampled volume would be empty: %w", err)
	}
	logger.Infof("resampling %s -> %s", vol.Geometry, g)

	bx := newBins(g.NX, g.DX, vol.NX, vol.DX)
	by := newBins(g.NY, g.DY, vol.NY, vol.DY)
	bz := newBins(g.NZ, g.DZ, vol.NZ, vol.DZ)
	voxelRatio := vol.DX * vol.DY * vol.DZ / (g.DX * g.DY * g.DZ)

	out := models.NewVolume(g)

	numCores := p.NumCores
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}
	planesPerCore := (g.NZ + numCores - 1) / numCores

	var wg sync.WaitGroup
	for c := 0; c < numCores; c++ {
		start := c * planesPerCore
		end := min(start+planesPerCore, g.NZ)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for nz := start; nz < end; nz++ {
				resamplePlane(vol, out, nz, bx, by, bz, voxelRatio)
			}
		}(start, end)
	}
	wg.Wait()

	return out, nil
}

// resamplePlane fills output plane nz. Source indices outside the volume
// contribute nothing.
func resamplePlane(src, dst *models.Volume, nz int, bx, by, bz bins, voxelRatio float32) {
	zBase := nz * bz.width
	for ny := 0; ny < dst.NY; ny++ {
		yBase := ny * by.width
		for nx := 0; nx < dst.NX; nx++ {
			xBase := nx * bx.width
			var value float32
			for iz := 0; iz < bz.width; iz++ {
				z, rz := bz.idx[zBase+iz], bz.ratio[zBase+iz]
				if rz == 0 || z < 0 || z >= src.NZ {
					continue
				}
				for iy := 0; iy < by.width; iy++ {
					y, ry := by.idx[yBase+iy], by.ratio[yBase+iy]
					if ry == 0 || y < 0 || y >= src.NY {
						continue
					}
					row := (z*src.NY + y) * src.NX
					for ix := 0; ix < bx.width; ix++ {
						x, rx := bx.idx[xBase+ix], bx.ratio[xBase+ix]
						if rx == 0 || x < 0 || x >= src.NX {
							continue
						}
						value += float32(src.Data[row+x]) * rx * ry * rz
					}
				}
			}
			dst.Data[dst.Index(nx, ny, nz)] = clampInt16(value * voxelRatio)
		}
	}
}

func clampInt16(v float32) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

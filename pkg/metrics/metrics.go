// Package metrics compares two CT volumes of the same shape, for example a
// volume before and after a resample round trip or two exports of one study.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ctvolume/internal/models"
)

// Metrics holds the comparison results between a reference and a test volume.
type Metrics struct {
	// RMSE is the root mean square difference of raw voxel values.
	RMSE float64

	// MeanAbsDiff and MaxAbsDiff summarise the absolute voxel differences.
	MeanAbsDiff float64
	MaxAbsDiff  float64

	// Correlation is the Pearson correlation of the two voxel sets; it is NaN
	// when either volume is constant.
	Correlation float64

	// SSIM is the global structural similarity index over the raw value range.
	SSIM float64

	// EntropyDiff is the absolute difference of the 256-bin Shannon entropies.
	EntropyDiff float64
}

// Compare computes Metrics for two volumes of equal dimensions. Spacing is
// not compared.
func Compare(ref, test *models.Volume) (Metrics, error) {
	if ref.Empty() || test.Empty() {
		return Metrics{}, errors.New("cannot compare empty volumes")
	}
	if ref.NX != test.NX || ref.NY != test.NY || ref.NZ != test.NZ {
		return Metrics{}, fmt.Errorf("dimension mismatch: %s vs %s", ref.Geometry, test.Geometry)
	}

	a, b := toFloat(ref.Data), toFloat(test.Data)

	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	absDiff := make([]float64, len(diff))
	for i, d := range diff {
		absDiff[i] = math.Abs(d)
	}

	return Metrics{
		RMSE:        floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))),
		MeanAbsDiff: stat.Mean(absDiff, nil),
		MaxAbsDiff:  floats.Max(absDiff),
		Correlation: stat.Correlation(a, b, nil),
		SSIM:        ssim(a, b),
		EntropyDiff: math.Abs(entropy(a) - entropy(b)),
	}, nil
}

func toFloat(data []int16) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

// ssim computes a single-window SSIM with the dynamic range of int16 data.
func ssim(x, y []float64) float64 {
	const (
		dynamicRange = 65535.0
		k1           = 0.01
		k2           = 0.03
	)
	c1 := (k1 * dynamicRange) * (k1 * dynamicRange)
	c2 := (k2 * dynamicRange) * (k2 * dynamicRange)

	muX, muY := stat.Mean(x, nil), stat.Mean(y, nil)
	var sigmaX, sigmaY, sigmaXY float64
	if len(x) > 1 {
		sigmaX = stat.Variance(x, nil)
		sigmaY = stat.Variance(y, nil)
		sigmaXY = stat.Covariance(x, y, nil)
	}

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	return num / den
}

// entropy computes the Shannon entropy of data over 256 equal-width bins.
func entropy(data []float64) float64 {
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}

	const numBins = 256
	hist := make([]float64, numBins)
	width := (hi - lo) / numBins
	for _, v := range data {
		bin := int((v - lo) / width)
		if bin >= numBins {
			bin = numBins - 1
		}
		hist[bin]++
	}

	n := float64(len(data))
	var h float64
	for _, count := range hist {
		if count > 0 {
			p := count / n
			h -= p * math.Log2(p)
		}
	}
	return h
}

package dicomtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestWriteParses(t *testing.T) {
	spec := Filled(3, 2, 12.5, 0)
	spec.PixelSpacing = [2]float64{0.75, 0.5}
	spec.Omit = []string{"thickness"}

	path, err := Write(t.TempDir(), "s.dcm", spec)
	require.NoError(t, err)

	ds, err := dicom.ParseFile(path, nil)
	require.NoError(t, err)

	loc, err := ds.FindElementByTag(tag.SliceLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"12.5"}, loc.Value.GetValue())

	spacing, err := ds.FindElementByTag(tag.PixelSpacing)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.75", "0.5"}, spacing.Value.GetValue())

	_, err = ds.FindElementByTag(tag.SliceThickness)
	assert.Error(t, err)

	_, err = ds.FindElementByTag(tag.PixelData)
	assert.NoError(t, err)
}

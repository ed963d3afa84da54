package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ctvolume/internal/models"
)

// Store owns one image volume and at most one dose overlay attached to it.
type Store struct {
	opts []Option

	// Dir is the directory the volume was loaded from
	Dir string

	Volume *models.Volume
	Dose   *models.DoseOverlay
}

// NewStore creates an empty store. The options apply to every later
// assembly and write.
func NewStore(opts ...Option) *Store {
	return &Store{opts: opts}
}

// Open loads input, which is either a directory of slices or a volume file.
// Any attached dose overlay is dropped.
func (s *Store) Open(input string) error {
	st, err := os.Stat(input)
	if err != nil {
		return &models.IOError{Op: "open", Path: input, Err: err}
	}

	var vol *models.Volume
	dir := input
	if st.IsDir() {
		vol, err = OpenDirectory(input, s.opts...)
	} else {
		dir = filepath.Dir(input)
		vol, err = OpenFile(input)
	}
	if err != nil {
		return err
	}

	s.Dir, s.Volume, s.Dose = dir, vol, nil
	return nil
}

// LoadDose reads a dose file for the current volume and attaches it,
// replacing any previous overlay. On failure the previous overlay is kept.
func (s *Store) LoadDose(path string) error {
	if s.Volume.Empty() {
		return errors.New("no image volume loaded")
	}
	dose, err := LoadDose(path, s.Volume)
	if err != nil {
		return err
	}
	s.Dose = dose
	return nil
}

// HasDose reports whether a dose overlay is attached.
func (s *Store) HasDose() bool {
	return s.Dose != nil
}

// Write stores the current volume, optionally cropped.
func (s *Store) Write(path string, crop *models.Bounds) error {
	if s.Volume.Empty() {
		return errors.New("no image volume loaded")
	}
	return Write(path, s.Volume, crop, s.opts...)
}

// Slice returns the image plane at index along axis.
func (s *Store) Slice(axis models.Axis, index int) ([][]int16, error) {
	if s.Volume.Empty() {
		return nil, errors.New("no image volume loaded")
	}
	return s.Volume.Slice(axis, index)
}

// Info renders the voxel info line, plus the dose summary when present.
func (s *Store) Info() string {
	if s.Volume.Empty() {
		return "no volume"
	}
	info := s.Volume.VoxelInfo()
	if s.Dose != nil {
		info = fmt.Sprintf("%s\n%s", info, s.Dose.Summary())
	}
	return info
}

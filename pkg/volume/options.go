package volume

import "ctvolume/pkg/dicomslice"

type options struct {
	ext       string
	strict    bool
	overwrite bool
}

// Option configures assembly and writing.
type Option func(*options)

// WithExtension sets the file extension recognised as a slice.
func WithExtension(ext string) Option {
	return func(o *options) {
		if ext != "" {
			o.ext = ext
		}
	}
}

// WithStrictGeometry rejects directories whose slices disagree on size,
// pixel spacing or thickness instead of trusting the last slice read.
func WithStrictGeometry() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithOverwrite allows writes to replace an existing file.
func WithOverwrite() Option {
	return func(o *options) {
		o.overwrite = true
	}
}

func newOptions(opts []Option) options {
	o := options{ext: dicomslice.DefaultExtension}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

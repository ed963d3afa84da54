package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"ctvolume/internal/models"
	"ctvolume/pkg/dicomslice"
	"ctvolume/pkg/metrics"
	"ctvolume/pkg/phantom"
	"ctvolume/pkg/resample"
	"ctvolume/pkg/volume"
)

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <slice-dir> <out.img>",
		Short: "assemble a slice directory into a volume file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			out := a.outputPath(args[1])
			if err := s.Write(out, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Info())
			fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", out)
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	var dosePath string
	cmd := &cobra.Command{
		Use:   "info <slice-dir|file.img>",
		Short: "print volume dimensions, spacing and value statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			if dosePath != "" {
				if err := s.LoadDose(dosePath); err != nil {
					return err
				}
			}
			st := s.Volume.Stats()
			ext := s.Volume.Extent()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, s.Info())
			fmt.Fprintf(out, "Extent: %.3f x %.3f x %.3f mm\n", ext[0], ext[1], ext[2])
			fmt.Fprintf(out, "Values: min %.0f, max %.0f, mean %.3f, stddev %.3f\n", st.Min, st.Max, st.Mean, st.StdDev)
			return nil
		},
	}
	cmd.Flags().StringVar(&dosePath, "dose", "", "dose file to attach")
	return cmd
}

func (a *app) cropCmd() *cobra.Command {
	var xr, yr, zr string
	cmd := &cobra.Command{
		Use:   "crop <in> <out.img>",
		Short: "write an inclusive sub-box of a volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			g := s.Volume.Geometry
			var b models.Bounds
			if b.X0, b.X1, err = models.ParseRange(xr, g.NX); err != nil {
				return fmt.Errorf("--x: %w", err)
			}
			if b.Y0, b.Y1, err = models.ParseRange(yr, g.NY); err != nil {
				return fmt.Errorf("--y: %w", err)
			}
			if b.Z0, b.Z1, err = models.ParseRange(zr, g.NZ); err != nil {
				return fmt.Errorf("--z: %w", err)
			}
			out := a.outputPath(args[1])
			if err := s.Write(out, &b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cropped %s -> %s written to %s\n", g, b.Crop(g), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&xr, "x", "", "x range lo:hi (inclusive, default all)")
	cmd.Flags().StringVar(&yr, "y", "", "y range lo:hi (inclusive, default all)")
	cmd.Flags().StringVar(&zr, "z", "", "z range lo:hi (inclusive, default all)")
	return cmd
}

func (a *app) doseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dose <in> <file.dose>",
		Short: "check a dose file against a volume and print its summary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			if err := s.LoadDose(args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Info())
			fmt.Fprintf(cmd.OutOrStdout(), "Max dose: %g\n", s.Dose.Max())
			return nil
		},
	}
}

func (a *app) resizeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "resize <in> <dx> <dy> <dz>",
		Short: "resample a volume to a new voxel size in mm",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spacing [3]float32
			for i, arg := range args[1:] {
				v, err := strconv.ParseFloat(arg, 32)
				if err != nil {
					return fmt.Errorf("invalid voxel size %q: %w", arg, err)
				}
				spacing[i] = float32(v)
			}

			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			numCores := a.cfg.Processing.NumCores
			if numCores <= 0 {
				numCores = runtime.NumCPU()
			}
			resized, err := resample.Resample(s.Volume, resample.Params{
				DX: spacing[0], DY: spacing[1], DZ: spacing[2],
				NumCores: numCores,
			})
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("%s_%gx%gx%g%s", trimExt(args[0]), spacing[0], spacing[1], spacing[2], a.cfg.Output.Extension)
			}
			out = a.outputPath(out)
			if err := volume.Write(out, resized, nil, a.cfg.VolumeOptions()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resized.VoxelInfo())
			fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <in>_<dx>x<dy>x<dz>.img)")
	return cmd
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

func (a *app) phantomCmd() *cobra.Command {
	var (
		n      int
		d      float32
		value  int16
		radius float64
		insert int16
	)
	cmd := &cobra.Command{
		Use:   "phantom <out.img>",
		Short: "write a cubic water phantom, optionally with a cylinder insert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				vol *models.Volume
				err error
			)
			if radius > 0 {
				vol, err = phantom.Cylinder(n, d, value, insert, radius)
			} else {
				vol, err = phantom.Water(n, d, value)
			}
			if err != nil {
				return err
			}
			out := a.outputPath(args[0])
			if err := volume.Write(out, vol, nil, a.cfg.VolumeOptions()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), vol.VoxelInfo())
			fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 100, "voxels per side")
	cmd.Flags().Float32Var(&d, "d", 1.0, "voxel size in mm")
	cmd.Flags().Int16Var(&value, "value", 0, "raw value of water")
	cmd.Flags().Float64Var(&radius, "radius", 0, "radius in mm of a cylinder insert along z")
	cmd.Flags().Int16Var(&insert, "insert", 1000, "raw value inside the cylinder")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <reference> <test>",
		Short: "compare two volumes of the same dimensions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.open(args[0])
			if err != nil {
				return err
			}
			test, err := a.open(args[1])
			if err != nil {
				return err
			}
			m, err := metrics.Compare(ref.Volume, test.Volume)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "RMSE: %.6f\n", m.RMSE)
			fmt.Fprintf(out, "Mean abs diff: %.6f\n", m.MeanAbsDiff)
			fmt.Fprintf(out, "Max abs diff: %.0f\n", m.MaxAbsDiff)
			fmt.Fprintf(out, "Correlation: %.6f\n", m.Correlation)
			fmt.Fprintf(out, "SSIM: %.6f\n", m.SSIM)
			fmt.Fprintf(out, "Entropy difference: %.6f\n", m.EntropyDiff)
			return nil
		},
	}
}

func (a *app) probeCmd() *cobra.Command {
	var (
		samples int
		margin  int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "probe <slice-dir> [slice-file]",
		Short: "list slices by location or describe a single slice",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				names, err := dicomslice.ListSorted(args[0], a.cfg.Input.Extension)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			path := args[1]
			if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
				path = filepath.Join(args[0], path)
			}
			s, err := dicomslice.Read(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s.Describe())
			for _, p := range s.Sample(samples, margin, seed) {
				fmt.Fprintf(out, "(%d, %d): raw %d, value %.1f\n", p.X, p.Y, p.Raw, p.Value)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 10, "number of sample points to read")
	cmd.Flags().IntVar(&margin, "margin", 8, "samples stay inside the central (margin-1)/margin box")
	cmd.Flags().Int64Var(&seed, "seed", 1, "sample point seed")
	return cmd
}

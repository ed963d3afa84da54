package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctvolume/pkg/config"
	"ctvolume/pkg/export"
	"ctvolume/pkg/visualization"
	"ctvolume/pkg/volume"
)

// viewer opens input, attaches dosePath when set and builds a viewer with the
// configured style.
func (a *app) viewer(input, dosePath string) (*volume.Store, *visualization.Viewer, error) {
	s, err := a.open(input)
	if err != nil {
		return nil, nil, err
	}
	if dosePath != "" {
		if err := s.LoadDose(dosePath); err != nil {
			return nil, nil, err
		}
	}
	v, err := visualization.NewViewer(s.Volume, s.Dose, a.cfg.Style())
	if err != nil {
		return nil, nil, err
	}
	return s, v, nil
}

func (a *app) sliceCmd() *cobra.Command {
	var (
		axisName string
		index    int
		out      string
		dosePath string
		three    bool
	)
	cmd := &cobra.Command{
		Use:   "slice <in>",
		Short: "render one plane of a volume to an image",
		Long:  "renders one plane (or, with --three, the axial, coronal and sagittal planes through the volume centre) to a .png or .jpg file, drawing dose bands when --dose is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := parseAxisFlag(axisName)
			if err != nil {
				return err
			}
			s, v, err := a.viewer(args[0], dosePath)
			if err != nil {
				return err
			}

			if three {
				img, err := v.ThreeViews(-1, -1, -1)
				if err != nil {
					return err
				}
				if err := v.SaveSlice(img, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "three views written to %s\n", out)
				return nil
			}

			if index < 0 {
				index = s.Volume.Len(axis) / 2
			}
			img, err := v.Render(axis, index)
			if err != nil {
				return err
			}
			if err := v.SaveSlice(img, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s slice %d written to %s\n", axis, index, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&axisName, "axis", "z", "x (sagittal), y (coronal) or z (axial)")
	cmd.Flags().IntVar(&index, "index", -1, "plane index (default centre)")
	cmd.Flags().StringVarP(&out, "out", "o", "slice.png", "output image (.png, .jpg)")
	cmd.Flags().StringVar(&dosePath, "dose", "", "dose file to overlay")
	cmd.Flags().BoolVar(&three, "three", false, "render the three orthogonal planes through the centre")
	return cmd
}

func (a *app) slicesCmd() *cobra.Command {
	var (
		axisName string
		outDir   string
		format   string
		dosePath string
	)
	cmd := &cobra.Command{
		Use:   "slices <in>",
		Short: "render every plane along an axis into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := parseAxisFlag(axisName)
			if err != nil {
				return err
			}
			_, v, err := a.viewer(args[0], dosePath)
			if err != nil {
				return err
			}
			n, err := v.SaveSliceSequence(axis, outDir, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s slices written to %s\n", n, axis, outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&axisName, "axis", "z", "x (sagittal), y (coronal) or z (axial)")
	cmd.Flags().StringVar(&outDir, "out-dir", "slices", "output directory")
	cmd.Flags().StringVar(&format, "format", "png", "image format (png, jpg)")
	cmd.Flags().StringVar(&dosePath, "dose", "", "dose file to overlay")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var dosePath string
	cmd := &cobra.Command{
		Use:   "export-h5 <in> <out.h5>",
		Short: "export a volume and optional dose to HDF5",
		Args:  cobra.ExactArgs(2),
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
			if err := export.WriteHDF5(args[1], s.Volume, s.Dose, a.cfg.Output.Overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&dosePath, "dose", "", "dose file to include")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration commands",
		Args:  cobra.NoArgs,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "write a configuration file with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfigFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", args[0])
			return nil
		},
	})
	return configCmd
}

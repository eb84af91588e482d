package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/calvinmclean/uromri/paradigm"
	"github.com/calvinmclean/uromri/zaber"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newParadigmCmd() *cobra.Command {
	var (
		path       string
		resolution int32
		format     string
	)

	cmd := &cobra.Command{
		Use:   "paradigm",
		Short: "Show the compiled paradigm",
		Long: "Show the schedule of the paradigm and the moves of its fluid phases. Without a microstep " +
			"resolution, native units are 0 as when running without the actuator. The yaml format prints a " +
			"paradigm file that can be edited and passed to run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tl := paradigm.Default(paradigm.DefaultTimings)
			if path != "" {
				var err error
				tl, err = paradigm.LoadFile(path)
				if err != nil {
					return err
				}
			}

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				err := enc.Encode(paradigm.File{Phases: tl})
				if err != nil {
					return err
				}
				return enc.Close()
			case "table":
			default:
				return fmt.Errorf("unsupported format %q", format)
			}

			var conv *zaber.Converter
			if resolution > 0 {
				c, err := zaber.NewConverter(zaber.DefaultMechanics, resolution)
				if err != nil {
					return err
				}
				conv = &c
			}

			compiled, err := paradigm.Compile(tl, conv)
			if err != nil {
				return err
			}
			return printSchedule(cmd.OutOrStdout(), compiled)
		},
	}

	cmd.Flags().StringVarP(&path, "paradigm", "p", "", "paradigm file (.yaml or .csv), default paradigm if empty")
	cmd.Flags().Int32Var(&resolution, "resolution", 0, "microstep resolution of the actuator")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or yaml")

	return cmd
}

func printSchedule(out io.Writer, compiled paradigm.Compiled) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tGROUP\tKIND\tDURATION\tRATE\tDISTANCE (mm)\tDISTANCE\tVELOCITY\tTEXT")

	starts := compiled.StartTimes(0)
	for i, p := range compiled {
		rate, distanceMM, distance, velocity := "-", "-", "-", "-"
		if p.Motion != nil {
			rate = fmt.Sprintf("%g", p.Rate)
			distanceMM = fmt.Sprintf("%.3f", p.Motion.DistanceMM)
			distance = fmt.Sprintf("%d", p.Motion.DistanceNative)
			velocity = fmt.Sprintf("%d", p.Motion.VelocityNative)
		}
		fmt.Fprintf(w, "%d\t%g\t%s\t%s\t%g\t%s\t%s\t%s\t%s\t%s\n",
			i+1, starts[i], p.Group, p.Kind, p.Duration, rate, distanceMM, distance, velocity,
			strings.ReplaceAll(p.Text, "\n", " / "))
	}

	fmt.Fprintf(w, "\ntotal\t%gs\t\t\tnet\t%.3f mm\n", compiled.TotalDuration(), compiled.NetDistanceMM())
	return w.Flush()
}

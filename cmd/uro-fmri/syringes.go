package main

import (
	"fmt"

	"github.com/calvinmclean/uromri/syringe"
	"github.com/spf13/cobra"
)

func newSyringesCmd() *cobra.Command {
	var maxVolume, syringeVolume float64

	cmd := &cobra.Command{
		Use:   "syringes",
		Short: "Calculate the syringes to prepare",
		Long:  "Calculate the number and volume of syringes needed to fill to 40% and then to 65% of the maximum volume.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := syringe.NewPlan(maxVolume, syringeVolume)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), plan.String())
			return err
		},
	}

	cmd.Flags().Float64Var(&maxVolume, "max-volume", 750, "maximum volume in mL")
	cmd.Flags().Float64Var(&syringeVolume, "syringe-volume", 60, "volume of one syringe in mL")

	return cmd
}

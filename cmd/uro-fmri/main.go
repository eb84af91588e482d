package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "uro-fmri",
		Short:         "Run the URO-MRI infusion paradigm",
		Long:          "Run the URO-MRI fMRI paradigm: wait for the scanner trigger, show the phases and drive the Zaber syringe pump.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newRunCmd(),
		newSyringesCmd(),
		newPortsCmd(),
		newParadigmCmd(),
	)

	return root
}

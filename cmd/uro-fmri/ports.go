package main

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/uromri/zaber"
	"github.com/spf13/cobra"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := zaber.ListPorts()
			if errors.Is(err, zaber.ErrNoSerialPorts) {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			if err != nil {
				return err
			}

			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

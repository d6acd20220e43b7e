package main

import (
	"github.com/spf13/cobra"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the runway manager",
	Long:  `Consumes ready_for_landing and lands planes on the runway pool, confirming or requeueing each delivery.`,
	RunE:  runManager,
}

func runManager(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	srv, err := newService(ctx)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Runtime().Run(ctx)
}

package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/viant/runway/service/messaging"
)

var atcCmd = &cobra.Command{
	Use:   "atc",
	Short: "Run the admission stage",
	Long:  `Consumes landing_queue, orders requests by priority and forwards them to ready_for_landing.`,
	RunE:  runATC,
}

func runATC(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	srv, err := newService(ctx)
	if err != nil {
		return err
	}
	defer srv.Close()
	log.Printf("atc: waiting for landing requests on %s", messaging.IntakeChannel)
	return srv.Runtime().RunATC(ctx)
}

package main

import (
	"log"

	"github.com/spf13/cobra"
)

var sendOnStart int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the admission stage and the runway manager in one process",
	Long:  `Runs ATC admission and the runway manager together; with the default memory transport this is the only way both stages can share queues.`,
	RunE:  runAll,
}

func init() {
	runCmd.Flags().IntVar(&sendOnStart, "send", 0, "Number of random landing requests to publish on start")
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	srv, err := newService(ctx)
	if err != nil {
		return err
	}
	defer srv.Close()

	if sendOnStart > 0 {
		generator, err := srv.Traffic()
		if err != nil {
			return err
		}
		go func() {
			if _, err := generator.Send(ctx, sendOnStart); err != nil {
				log.Printf("traffic: %v", err)
			}
		}()
	}
	log.Printf("runway: serving with runways %v", srv.Pool().IDs())
	err = srv.Runtime().Serve(ctx)
	counters := srv.Progress().Snapshot()
	log.Printf("runway: received=%d rejected=%d dispatched=%d landed=%d held=%d reportFailures=%d",
		counters.Received, counters.Rejected, counters.Dispatched, counters.Landed, counters.Held, counters.ReportFailures)
	return err
}

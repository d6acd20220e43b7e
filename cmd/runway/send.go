package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sendCount int
	sendRate  float64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish random landing requests",
	Long:  `Publishes randomized landing requests (plane id, type and priority) to landing_queue.`,
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().IntVar(&sendCount, "count", 1, "Number of landing requests")
	sendCmd.Flags().Float64Var(&sendRate, "rate", 0, "Requests per second; 0 keeps the configured rate")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if sendRate > 0 {
		config.Traffic.Rate = sendRate
	}
	srv, err := newServiceWithConfig(config)
	if err != nil {
		return err
	}
	defer srv.Close()
	generator, err := srv.Traffic()
	if err != nil {
		return err
	}
	sent, err := generator.Send(ctx, sendCount)
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d landing requests\n", len(sent))
	return err
}

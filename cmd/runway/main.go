package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/runway"
	"github.com/viant/runway/service/messaging"
)

var rootCmd = &cobra.Command{
	Use:   "runway",
	Short: "Runway - landing admission and runway allocation",
	Long:  `Runway orders landing requests by priority and lands them on a fixed pool of runways using a bounded worker pool.`,
}

var (
	configURL string
	vendor    string
	workers   int
	runways   []string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configURL, "config", "", "YAML config URL (local path or any afs supported scheme)")
	rootCmd.PersistentFlags().StringVar(&vendor, "transport", "", "Transport vendor: memory, fs or redis")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of landing workers")
	rootCmd.PersistentFlags().StringSliceVar(&runways, "runways", nil, "Runway identifiers")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(atcCmd)
	rootCmd.AddCommand(managerCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config when set and applies flag overrides
func loadConfig(ctx context.Context) (*runway.Config, error) {
	config := runway.DefaultConfig()
	if configURL != "" {
		var err error
		if config, err = runway.LoadConfig(ctx, configURL); err != nil {
			return nil, err
		}
	}
	if vendor != "" {
		config.Transport.Vendor = messaging.Vendor(vendor)
	}
	if workers > 0 {
		config.Processor.WorkerCount = workers
	}
	if len(runways) > 0 {
		config.Runways = runways
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newService(ctx context.Context) (*runway.Service, error) {
	config, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return newServiceWithConfig(config)
}

func newServiceWithConfig(config *runway.Config) (*runway.Service, error) {
	return runway.New(runway.WithConfig(config))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

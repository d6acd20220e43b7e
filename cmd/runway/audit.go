package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/runway/service/audit/sqlite"
)

var (
	auditDB    string
	auditPlane string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List landing decision records",
	Long:  `Prints landing decision records stored by the sqlite audit driver as JSON lines.`,
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditDB, "db", "", "Path to the audit SQLite database (defaults to audit.path from config)")
	auditCmd.Flags().StringVar(&auditPlane, "plane", "", "Only records for this plane id")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	dbPath := auditDB
	if dbPath == "" {
		config, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		dbPath = config.Audit.Path
	}
	if dbPath == "" {
		return fmt.Errorf("audit database path is required")
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx, auditPlane)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}

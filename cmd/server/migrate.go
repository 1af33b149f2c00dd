package main

import (
	"github.com/spf13/cobra"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, log: log}
	defer a.close()
	if err := connectDatabases(cmd.Context(), a); err != nil {
		return err
	}
	if err := migrate(cmd.Context(), a); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

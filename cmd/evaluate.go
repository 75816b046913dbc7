package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/site360/site360-go/internal/logger"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one scoring and alerting pass over every site, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		start := time.Now()
		if err := a.runner.RunAll(cmd.Context(), start); err != nil {
			return err
		}
		a.log.Info("evaluation pass complete",
			logger.String("duration", time.Since(start).String()))
		return nil
	},
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/addestra-labs/addestra/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			return fmt.Errorf("%s already exists; remove it first to reconfigure", config.DefaultPath)
		}

		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/cli"
	"github.com/example/claimdesk/internal/version"
	"github.com/example/claimdesk/internal/wire"
)

func main() {
	var agent, configDir string

	rootCmd := &cobra.Command{
		Use:     "claimdesk",
		Short:   "claimdesk - escalation desk for insurance claims",
		Version: version.String(),
		Long: `claimdesk routes insurance claims that automation cannot settle to human
agents, escalating through the agent ladder when a confirmation deadline passes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.SetAgent(agent)
			wire.SetConfigDir(configDir)
		},
	}
	rootCmd.PersistentFlags().StringVar(&agent, "agent", "", "Acting agent id (default $"+cli.EnvAgent+")")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing .claimdesk/config.yaml")

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ClaimCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.IntakeCmd())
	rootCmd.AddCommand(cli.QueueCmd())
	rootCmd.AddCommand(cli.WorkerCmd())

	err := rootCmd.Execute()
	wire.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

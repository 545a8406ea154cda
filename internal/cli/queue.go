package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/wire"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the job queues",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job counts per queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.QueueAdapter().Stats(NewContext())
	},
}

var queueJobCmd = &cobra.Command{
	Use:   "job [queue] [job-id]",
	Short: "Show one job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.QueueAdapter().Job(NewContext(), args[0], args[1])
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove [queue] [job-id]",
	Short: "Cancel a waiting or delayed job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.QueueAdapter().Remove(NewContext(), args[0], args[1])
	},
}

// QueueCmd returns the queue command
func QueueCmd() *cobra.Command {
	queueCmd.AddCommand(queueStatsCmd)
	queueCmd.AddCommand(queueJobCmd)
	queueCmd.AddCommand(queueRemoveCmd)
	return queueCmd
}

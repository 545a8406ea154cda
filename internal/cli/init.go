package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .claimdesk/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dir, _ := cmd.Flags().GetString("dir")

		path := config.Path(dir)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.SaveConfig(dir, config.Default()); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config")
	initCmd.Flags().String("dir", ".", "Directory to initialize")
	return initCmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capsulenv/capsulenv/internal/wire"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the runtime's own version, and the capsule's if a supervisor answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resp, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqStatus}); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "daemon/%s capsule/%s\n", Version, resp.Version)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), Version)
		return nil
	},
}

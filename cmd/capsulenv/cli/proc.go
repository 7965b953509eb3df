package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capsulenv/capsulenv/internal/statustable"
	"github.com/capsulenv/capsulenv/internal/wire"
)

var procCmd = &cobra.Command{
	Use:   "proc",
	Short: "Inspect and control individual supervised processes",
}

func init() {
	procCmd.AddCommand(procListCmd, procKillCmd, procRestartCmd, procKillAllCmd)
}

var procListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every declared process and its current status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqList})
		if err != nil {
			return err
		}
		return statustable.Write(cmd.OutOrStdout(), resp.List)
	},
}

var procKillCmd = &cobra.Command{
	Use:   "kill <name>",
	Short: "Kill a process and exempt it from automatic restart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqKill, Name: args[0]}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Ok!")
		return nil
	},
}

var procRestartCmd = &cobra.Command{
	Use:   "restart <name>",
	Short: "Force-restart a process regardless of its restart policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqRestart, Name: args[0]}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Ok!")
		return nil
	},
}

var procKillAllCmd = &cobra.Command{
	Use:   "kill-all",
	Short: "Kill every declared process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqKillAll}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Ok!")
		return nil
	},
}

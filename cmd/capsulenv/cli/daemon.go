package cli

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/capsulenv/capsulenv/internal/capsulefooter"
	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/controlproto"
	"github.com/capsulenv/capsulenv/internal/runtimeenv"
	"github.com/capsulenv/capsulenv/internal/secretprompt"
	"github.com/capsulenv/capsulenv/internal/wire"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the supervisor process embedded in this executable",
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStatusCmd, daemonKillCmd, daemonTearDownCmd)
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Extract the payload and start the supervisor in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqStatus}); err == nil {
			// A supervisor is already live and answering; starting
			// another would be a no-op anyway, so skip straight to it.
			return nil
		}

		exe, err := selfExePath()
		if err != nil {
			return err
		}

		_, encrypted, err := capsulefooter.Locate(exe)
		if err != nil {
			return err
		}

		env := os.Environ()
		if encrypted {
			password, err := secretprompt.Read(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			env = append(env, runtimeenv.PasswordEnvVar+"="+password)
		}

		sub := exec.Command(exe, "supervisor")
		sub.Env = env
		sub.Stdout = os.Stdout
		sub.Stderr = os.Stderr
		if err := sub.Start(); err != nil {
			return cerr.FailedToSpawnProcess("supervisor")
		}
		// Deliberately not waited on: the supervisor outlives `daemon start`.
		_ = sub.Process.Release()

		return waitForPort(10 * time.Second)
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the running capsule's version, or that the supervisor is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqStatus})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Version)
		return nil
	},
}

var daemonKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the supervisor process without removing extracted files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqKillDaemon}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Ok!")
		return nil
	},
}

var daemonTearDownCmd = &cobra.Command{
	Use:   "tear-down",
	Short: "Kill every child, stop the supervisor, and remove the extraction root",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := exchangeWithDaemon(wire.Request{Kind: wire.ReqTearDown}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Ok!")
		return nil
	},
}

func exchangeWithDaemon(req wire.Request) (wire.Response, error) {
	port, err := readPort()
	if err != nil {
		return wire.Response{}, err
	}
	resp, err := controlproto.Exchange(port, req)
	if err != nil {
		return wire.Response{}, err
	}
	if resp.Kind == wire.RespError {
		return wire.Response{}, resp.Err
	}
	return resp, nil
}

func waitForPort(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := readPort(); err == nil {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cerr.SupervisorCantBeFound()
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/capsulenv/capsulenv/internal/procmetrics"
	"github.com/capsulenv/capsulenv/internal/runtimeboot"
)

// supervisorCmd runs the cooperative loop in the foreground: it is
// never invoked directly by a user, only re-exec'd by `daemon start`.
var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Run the process supervisor loop (internal use)",
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := selfExePath()
		if err != nil {
			return err
		}
		boot, err := runtimeboot.Start(exe)
		if err != nil {
			return err
		}

		metrics := procmetrics.NewCache()
		dispatcher := runtimeboot.NewDispatcher(boot, metrics)

		for {
			// PollOnce's own read deadline (controlproto.pollTimeout) is
			// this loop's tail sleep: it blocks briefly when no datagram
			// is pending instead of spinning. It also writes the reply
			// datagram before returning, so only after this call do we
			// act on a KillDaemon/TearDown the handler just answered;
			// shutting the socket down any earlier would race the write
			// and drop the response the client is waiting on.
			if err := boot.Server.PollOnce(dispatcher); err != nil {
				return err
			}
			if pending, removeRoot := dispatcher.PendingShutdown(); pending {
				boot.Shutdown(removeRoot)
				return nil
			}
			pids := boot.Table.Tick(boot.ExtractRoot)
			pids = append(pids, procmetrics.SelfPID())
			metrics.Refresh(pids)
		}
	},
}

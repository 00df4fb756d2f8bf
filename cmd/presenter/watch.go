package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/studysync-backend/internal/client/connection"
	"github.com/yungbote/studysync-backend/internal/client/presentation"
	"github.com/yungbote/studysync-backend/internal/navigation"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror the leader's cursor until interrupted",
	Long: `watch loads the current state of a week, subscribes to its broadcasts and
prints the item under the cursor every time the leader moves. When no
realtime endpoint can be reached the last loaded state is kept.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := loadOptions()
	changes := make(chan navigation.State, 1)
	statuses := make(chan connection.Status, 8)

	sess, err := openSession(ctx, opts, presentation.RoleViewer, func(st navigation.State, _ navigation.Action) {
		latest(changes, st)
	})
	if err != nil {
		return err
	}
	defer sess.close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s · week %d: %s\n", sess.screen.Series.Title, sess.screen.Week.WeekNumber, sess.screen.Week.Title)

	sess.adapter.Attach(ctx, presentation.AttachOptions{
		Explicit: opts.Realtime,
		OnStatus: func(s connection.Status) {
			select {
			case statuses <- s:
			default:
			}
		},
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-changes:
			render(out, sess.view(), st)
		case s := <-statuses:
			printStatus(cmd, s)
		}
	}
}

// latest replaces any unread state with st.
func latest(ch chan navigation.State, st navigation.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func printStatus(cmd *cobra.Command, s connection.Status) {
	w := cmd.ErrOrStderr()
	switch s.State {
	case connection.StateConnected:
		fmt.Fprintf(w, "live via %s\n", s.Candidate)
	case connection.StateDisconnected:
		fmt.Fprintln(w, "connection lost, reconnecting")
	case connection.StateFailed:
		if s.Reason == connection.ReasonConfigurationMissing {
			fmt.Fprintln(w, "realtime not configured, showing the loaded state only")
			return
		}
		fmt.Fprintln(w, "realtime unavailable")
	}
}

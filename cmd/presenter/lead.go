package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/studysync-backend/internal/client/presentation"
	"github.com/yungbote/studysync-backend/internal/navigation"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Drive the presentation as the leader",
	Long: `lead sends one navigation command and prints the resulting cursor. Viewers
following the week receive the change over their broadcast subscription.`,
}

var (
	leadNextCmd = &cobra.Command{
		Use:   "next",
		Short: "Advance to the next item",
		Args:  cobra.NoArgs,
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, _ []string) error {
			return a.Advance(ctx)
		}),
	}
	leadPreviousCmd = &cobra.Command{
		Use:   "previous",
		Short: "Go back to the previous item",
		Args:  cobra.NoArgs,
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, _ []string) error {
			return a.Retreat(ctx)
		}),
	}
	leadJumpCmd = &cobra.Command{
		Use:   "jump SECTION ITEM",
		Short: "Move the cursor to a section and item (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, args []string) error {
			s, i, err := position(args)
			if err != nil {
				return err
			}
			return a.JumpTo(ctx, s, i)
		}),
	}
	leadRevealCmd = &cobra.Command{
		Use:   "reveal SECTION ITEM",
		Short: "Toggle the text of a reference item (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, args []string) error {
			s, i, err := position(args)
			if err != nil {
				return err
			}
			return a.ToggleReveal(ctx, s, i)
		}),
	}
	leadHighlightCmd = &cobra.Command{
		Use:   "highlight PROMPT|none",
		Short: "Highlight a prompt of the current item (1-based), or clear it",
		Args:  cobra.ExactArgs(1),
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, args []string) error {
			if strings.EqualFold(args[0], "none") {
				return a.SetHighlight(ctx, nil)
			}
			n, err := oneBased(args[0])
			if err != nil {
				return err
			}
			return a.SetHighlight(ctx, &n)
		}),
	}
	leadStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Mark the presentation as live",
		Args:  cobra.NoArgs,
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, _ []string) error {
			return a.UpdateFields(ctx, navigation.SetFields{Active: navigation.Some(true)})
		}),
	}
	leadStopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Mark the presentation as ended",
		Args:  cobra.NoArgs,
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, _ []string) error {
			return a.UpdateFields(ctx, navigation.SetFields{Active: navigation.Some(false)})
		}),
	}
	leadResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Return to the first item and clear reveals and highlights",
		Args:  cobra.NoArgs,
		RunE: leaderAction(func(ctx context.Context, a *presentation.Adapter, _ []string) error {
			return a.UpdateFields(ctx, navigation.SetFields{
				SectionIndex:           navigation.Some(0),
				ItemIndex:              navigation.Some(0),
				RevealedRefs:           navigation.Some([]navigation.RevealKey{}),
				HighlightedPromptIndex: navigation.Some[*int](nil),
			})
		}),
	}
)

func init() {
	leadCmd.AddCommand(leadNextCmd, leadPreviousCmd, leadJumpCmd, leadRevealCmd,
		leadHighlightCmd, leadStartCmd, leadStopCmd, leadResetCmd)
	rootCmd.AddCommand(leadCmd)
}

// leaderAction opens a leader session, runs fn and prints the new cursor.
func leaderAction(fn func(ctx context.Context, a *presentation.Adapter, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, loadOptions(), presentation.RoleLeader, nil)
		if err != nil {
			return err
		}
		defer sess.close()

		if err := fn(ctx, sess.adapter, args); err != nil {
			return err
		}
		render(cmd.OutOrStdout(), sess.view(), sess.adapter.State())
		return nil
	}
}

func position(args []string) (int, int, error) {
	s, err := oneBased(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("section: %w", err)
	}
	i, err := oneBased(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("item: %w", err)
	}
	return s, i, nil
}

// oneBased parses a 1-based position into an index.
func oneBased(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a position (1, 2, ...)", raw)
	}
	return n - 1, nil
}

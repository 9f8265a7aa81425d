package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Run a draft session",
}

var (
	createSession draft.CreateSessionRequest
	draftType     string
	draftPolicy   string
	turnOrder     []string
	reason        string
)

var draftCreateCmd = &cobra.Command{
	Use:   "create <season-id>",
	Short: "Create a pending draft session (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seasonID, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		order, err := parseIDs(turnOrder, "team id")
		if err != nil {
			return err
		}
		req := createSession
		req.SeasonID = seasonID
		req.DraftType = models.DraftType(draftType)
		req.TimeoutPolicy = models.TimeoutPolicy(draftPolicy)
		req.TurnOrder = order

		c, err := draftClient()
		if err != nil {
			return err
		}
		s, err := c.CreateSession(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	},
}

// sessionCommand builds a command acting on one session by id.
func sessionCommand(use, short string, fn func(cmd *cobra.Command, c draft.DraftApp, sessionID uuid.UUID) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "session id")
			if err != nil {
				return err
			}
			c, err := draftClient()
			if err != nil {
				return err
			}
			out, err := fn(cmd, c, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

var (
	draftStartCmd = sessionCommand("start", "Start a pending session (admin)", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.StartSession(cmd.Context(), id)
	})
	draftPauseCmd = sessionCommand("pause", "Pause an active session (admin)", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.PauseSession(cmd.Context(), id, reason)
	})
	draftResumeCmd = sessionCommand("resume", "Resume a paused or halted session (admin)", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.ResumeSession(cmd.Context(), id)
	})
	draftCancelCmd = sessionCommand("cancel", "Cancel a session (admin)", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.CancelSession(cmd.Context(), id, reason)
	})
	draftStateCmd = sessionCommand("state", "Show whose turn it is and the clock", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.GetSessionState(cmd.Context(), id)
	})
	draftPicksCmd = sessionCommand("picks", "List the session's picks in order", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.ListPicks(cmd.Context(), id)
	})
	draftCloseLotCmd = sessionCommand("close-lot", "Settle the open auction lot now (admin)", func(cmd *cobra.Command, c draft.DraftApp, id uuid.UUID) (any, error) {
		return c.ResolveLot(cmd.Context(), id)
	})
)

var draftListCmd = &cobra.Command{
	Use:   "list <season-id>",
	Short: "List a season's sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		c, err := draftClient()
		if err != nil {
			return err
		}
		sessions, err := c.ListSessions(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd, sessions)
	},
}

var draftPickCmd = &cobra.Command{
	Use:   "pick <session-id> <asset-id>",
	Short: "Draft an asset for --team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseID(args[0], "session id")
		if err != nil {
			return err
		}
		assetID, err := parseID(args[1], "asset id")
		if err != nil {
			return err
		}
		c, err := draftClient()
		if err != nil {
			return err
		}
		team, _ := caller()
		pick, err := c.AttemptPick(cmd.Context(), sessionID, team.TeamID, assetID)
		if err != nil {
			return err
		}
		return printJSON(cmd, pick)
	},
}

var openingBid int

var draftNominateCmd = &cobra.Command{
	Use:   "nominate <session-id> <asset-id>",
	Short: "Put an asset up for auction as --team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseID(args[0], "session id")
		if err != nil {
			return err
		}
		assetID, err := parseID(args[1], "asset id")
		if err != nil {
			return err
		}
		c, err := draftClient()
		if err != nil {
			return err
		}
		team, _ := caller()
		lot, err := c.Nominate(cmd.Context(), sessionID, team.TeamID, assetID, openingBid)
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var draftBidCmd = &cobra.Command{
	Use:   "bid <session-id> <amount>",
	Short: "Bid on the open lot as --team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseID(args[0], "session id")
		if err != nil {
			return err
		}
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		c, err := draftClient()
		if err != nil {
			return err
		}
		team, _ := caller()
		lot, err := c.PlaceBid(cmd.Context(), sessionID, team.TeamID, amount)
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var draftTimeoutCmd = &cobra.Command{
	Use:   "expire <session-id> <pick-number>",
	Short: "Resolve an expired pick clock (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseID(args[0], "session id")
		if err != nil {
			return err
		}
		pickNumber, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid pick number %q: %w", args[1], err)
		}
		c, err := draftClient()
		if err != nil {
			return err
		}
		pick, err := c.ResolveTimeout(cmd.Context(), sessionID, pickNumber)
		if err != nil {
			return err
		}
		return printJSON(cmd, pick)
	},
}

var draftDeadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "List every armed pick clock (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := draftClient()
		if err != nil {
			return err
		}
		deadlines, err := c.PendingDeadlines(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, deadlines)
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(
		draftCreateCmd,
		draftStartCmd,
		draftPauseCmd,
		draftResumeCmd,
		draftCancelCmd,
		draftStateCmd,
		draftPicksCmd,
		draftListCmd,
		draftPickCmd,
		draftNominateCmd,
		draftBidCmd,
		draftCloseLotCmd,
		draftTimeoutCmd,
		draftDeadlinesCmd,
	)

	f := draftCreateCmd.Flags()
	f.StringVar(&draftType, "type", string(models.DraftTypeSnake), "snake, linear or auction")
	f.StringVar(&draftPolicy, "timeout-policy", "", "auto_skip or auto_pick (season default when empty)")
	f.IntVar(&createSession.PickTimeLimitSeconds, "pick-seconds", 0, "pick clock in seconds (season default when 0)")
	f.IntVar(&createSession.TotalRounds, "rounds", 0, "rounds (max roster size when 0)")
	f.StringSliceVar(&turnOrder, "order", nil, "comma separated team ids (shuffled when empty)")

	draftPauseCmd.Flags().StringVar(&reason, "reason", "", "reason shown to coaches")
	draftCancelCmd.Flags().StringVar(&reason, "reason", "", "reason shown to coaches")
	draftNominateCmd.Flags().IntVar(&openingBid, "opening-bid", 1, "opening bid, at least 1")
}

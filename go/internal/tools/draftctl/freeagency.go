package main

import (
	"github.com/spf13/cobra"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/freeagency"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

var faCmd = &cobra.Command{
	Use:     "fa",
	Aliases: []string{"free-agency"},
	Short:   "Free agency transactions",
}

var (
	addAsset  string
	dropAsset string
	refund    int
	week      int
	listLimit int
)

func submit(kind models.TransactionKind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		seasonID, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		c, err := caller()
		if err != nil {
			return err
		}
		req := freeagency.SubmitTransactionRequest{SeasonID: seasonID, TeamID: c.TeamID, Kind: kind}
		if addAsset != "" {
			if req.AddAssetID, err = parseID(addAsset, "asset id"); err != nil {
				return err
			}
		}
		if dropAsset != "" {
			if req.DropAssetID, err = parseID(dropAsset, "asset id"); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("refund") {
			req.RefundPoints = &refund
		}
		if cmd.Flags().Changed("week") {
			req.Week = &week
		}
		res, err := invoke[freeagency.SubmitTransactionRequest, freeagency.SubmitTransactionResponse](cmd.Context(), freeagency.SubmitTransactionProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	}
}

var faAddCmd = &cobra.Command{
	Use:   "add <season-id> --add <asset-id>",
	Short: "Sign a free agent for --team",
	Args:  cobra.ExactArgs(1),
	RunE:  submit(models.TransactionKindAdd),
}

var faDropCmd = &cobra.Command{
	Use:   "drop <season-id> --drop <asset-id>",
	Short: "Release a rostered asset from --team",
	Args:  cobra.ExactArgs(1),
	RunE:  submit(models.TransactionKindDrop),
}

var faTradeCmd = &cobra.Command{
	Use:   "trade <season-id> --drop <asset-id> --add <asset-id>",
	Short: "Swap a rostered asset for a free agent",
	Args:  cobra.ExactArgs(1),
	RunE:  submit(models.TransactionKindTrade),
}

var faListCmd = &cobra.Command{
	Use:   "list <season-id>",
	Short: "List transactions, newest first (only --team's when set)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seasonID, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		c, err := caller()
		if err != nil {
			return err
		}
		req := freeagency.ListTransactionsRequest{SeasonID: seasonID, TeamID: c.TeamID, Limit: listLimit}
		res, err := invoke[freeagency.ListTransactionsRequest, freeagency.ListTransactionsResponse](cmd.Context(), freeagency.ListTransactionsProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Transactions)
	},
}

var faStatusCmd = &cobra.Command{
	Use:   "status <season-id> <team-id>",
	Short: "Show a team's budget, roster and remaining transactions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seasonID, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		teamID, err := parseID(args[1], "team id")
		if err != nil {
			return err
		}
		req := freeagency.GetTeamStatusRequest{SeasonID: seasonID, TeamID: teamID}
		res, err := invoke[freeagency.GetTeamStatusRequest, freeagency.GetTeamStatusResponse](cmd.Context(), freeagency.GetTeamStatusProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Status)
	},
}

func init() {
	rootCmd.AddCommand(faCmd)
	faCmd.AddCommand(faAddCmd, faDropCmd, faTradeCmd, faListCmd, faStatusCmd)

	for _, c := range []*cobra.Command{faAddCmd, faDropCmd, faTradeCmd} {
		f := c.Flags()
		f.IntVar(&refund, "refund", 0, "admin: settle the dropped asset for fewer points than were paid")
		f.IntVar(&week, "week", 0, "admin: league week to record instead of the season's current week")
	}
	faAddCmd.Flags().StringVar(&addAsset, "add", "", "asset to sign")
	faDropCmd.Flags().StringVar(&dropAsset, "drop", "", "asset to release")
	faTradeCmd.Flags().StringVar(&addAsset, "add", "", "asset to sign")
	faTradeCmd.Flags().StringVar(&dropAsset, "drop", "", "asset to release")
	faListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum transactions to show")
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/clients/pokeapi"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/season"
)

var seasonCmd = &cobra.Command{
	Use:   "season",
	Short: "Manage seasons, their teams and the draft pool",
}

var (
	createSeason season.CreateSeasonRequest
	seasonPolicy string
	teamIDFlag   string
	poolFilter   pool.Filter
	lookupGens   bool
	pokeAPIURL   string
)

var seasonCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a season (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := createSeason
		req.Name = args[0]
		req.DefaultTimeoutPolicy = models.TimeoutPolicy(seasonPolicy)
		res, err := invoke[season.CreateSeasonRequest, season.SeasonResponse](cmd.Context(), season.CreateSeasonProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Season)
	},
}

var seasonGetCmd = &cobra.Command{
	Use:   "get <season-id>",
	Short: "Show a season and its teams",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		res, err := invoke[season.GetSeasonRequest, season.GetSeasonResponse](cmd.Context(), season.GetSeasonProcedure, &season.GetSeasonRequest{SeasonID: id})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var seasonAddTeamCmd = &cobra.Command{
	Use:   "add-team <season-id> <team-name>",
	Short: "Add a team to a season (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		req := season.AddTeamRequest{SeasonID: id, TeamName: args[1]}
		if teamIDFlag != "" {
			if req.TeamID, err = parseID(teamIDFlag, "team id"); err != nil {
				return err
			}
		}
		res, err := invoke[season.AddTeamRequest, season.AddTeamResponse](cmd.Context(), season.AddTeamProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Team)
	},
}

var seasonWeekCmd = &cobra.Command{
	Use:   "set-week <season-id> <week>",
	Short: "Set the season's current week (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		week, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid week %q: %w", args[1], err)
		}
		res, err := invoke[season.SetCurrentWeekRequest, season.SeasonResponse](cmd.Context(), season.SetCurrentWeekProcedure, &season.SetCurrentWeekRequest{SeasonID: id, Week: week})
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Season)
	},
}

var seasonImportCmd = &cobra.Command{
	Use:   "import <season-id> <pool.yaml>",
	Short: "Append assets from a YAML file to the draft pool (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read pool file: %w", err)
		}
		var assets []season.AssetInput
		if err := yaml.Unmarshal(data, &assets); err != nil {
			return fmt.Errorf("failed to parse pool file: %w", err)
		}
		if lookupGens {
			if err := fillGenerations(cmd, pokeapi.NewClient(pokeAPIURL), assets); err != nil {
				return err
			}
		}
		res, err := invoke[season.ImportAssetsRequest, season.ImportAssetsResponse](cmd.Context(), season.ImportAssetsProcedure, &season.ImportAssetsRequest{SeasonID: id, Assets: assets})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d assets\n", len(res.Assets))
		return nil
	},
}

var seasonAssetStatusCmd = &cobra.Command{
	Use:   "asset-status <asset-id> <available|banned|tera_banned>",
	Short: "Change an undrafted asset's status (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "asset id")
		if err != nil {
			return err
		}
		req := season.SetAssetStatusRequest{AssetID: id, Status: models.AssetStatus(args[1])}
		res, err := invoke[season.SetAssetStatusRequest, season.AssetResponse](cmd.Context(), season.SetAssetStatusProcedure, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res.Asset)
	},
}

var seasonPoolCmd = &cobra.Command{
	Use:   "pool <season-id>",
	Short: "List the assets still available to draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "season id")
		if err != nil {
			return err
		}
		req := season.ListAvailableAssetsRequest{SeasonID: id, Filter: poolFilter}
		res, err := invoke[season.ListAvailableAssetsRequest, season.ListAvailableAssetsResponse](cmd.Context(), season.ListAvailableAssetsProcedure, &req)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, a := range res.Assets {
			fmt.Fprintf(w, "%4d  %-24s %3d pts  %s  %s\n", a.PoolIndex, a.Name, a.PointValue, a.Status, a.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seasonCmd)
	seasonCmd.AddCommand(seasonCreateCmd)
	seasonCmd.AddCommand(seasonGetCmd)
	seasonCmd.AddCommand(seasonAddTeamCmd)
	seasonCmd.AddCommand(seasonWeekCmd)
	seasonCmd.AddCommand(seasonImportCmd)
	seasonCmd.AddCommand(seasonAssetStatusCmd)
	seasonCmd.AddCommand(seasonPoolCmd)

	f := seasonCreateCmd.Flags()
	f.IntVar(&createSeason.PointBudgetPerTeam, "budget", 0, "point budget per team")
	f.IntVar(&createSeason.TeraBudget, "tera-budget", 0, "tera captain budget")
	f.IntVar(&createSeason.MinRosterSize, "min-roster", 0, "minimum roster size")
	f.IntVar(&createSeason.MaxRosterSize, "max-roster", 0, "maximum roster size")
	f.IntVar(&createSeason.MaxFreeAgencyTransactions, "transactions", 0, "free agency transactions per team")
	f.IntVar(&createSeason.FreeAgencyDeadline, "deadline-week", 0, "last week free agency is open")
	f.IntVar(&createSeason.TotalTeams, "teams", 0, "number of teams")
	f.IntVar(&createSeason.DefaultPickTimeLimitSec, "pick-seconds", 0, "default pick clock in seconds")
	f.StringVar(&seasonPolicy, "timeout-policy", "", "auto_skip or auto_pick")

	seasonImportCmd.Flags().BoolVar(&lookupGens, "lookup-generations", false, "fill missing generations from PokeAPI")
	seasonImportCmd.Flags().StringVar(&pokeAPIURL, "pokeapi-url", pokeapi.BaseURL, "PokeAPI base URL")

	seasonAddTeamCmd.Flags().StringVar(&teamIDFlag, "team-id", "", "team id (generated when empty)")

	f = seasonPoolCmd.Flags()
	f.IntVar(&poolFilter.MinPoints, "min-points", 0, "minimum point value")
	f.IntVar(&poolFilter.MaxPoints, "max-points", 0, "maximum point value")
	f.IntVar(&poolFilter.Generation, "generation", 0, "only this generation")
	f.StringVar(&poolFilter.Search, "search", "", "name substring")
}

// fillGenerations sets the generation of entries that have none. Unknown
// species are left unset.
func fillGenerations(cmd *cobra.Command, api *pokeapi.Client, assets []season.AssetInput) error {
	for i := range assets {
		if assets[i].Generation != 0 {
			continue
		}
		gen, err := api.Generation(cmd.Context(), assets[i].Name)
		if errors.Is(err, pokeapi.ErrUnknownSpecies) {
			fmt.Fprintf(cmd.ErrOrStderr(), "no species for %q, generation left unset\n", assets[i].Name)
			continue
		}
		if err != nil {
			return err
		}
		assets[i].Generation = gen
	}
	return nil
}

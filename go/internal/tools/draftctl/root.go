package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/client"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

var (
	serverURL string
	teamFlag  string
	adminFlag bool
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "draftctl",
	Short: "Draft league command line client",
	Long: `draftctl talks to a draft league server. Coach commands act for the
team given by --team; league administration needs --admin.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultURL := os.Getenv("DRAFT_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultURL, "draft server URL (env DRAFT_SERVER_URL)")
	rootCmd.PersistentFlags().StringVarP(&teamFlag, "team", "t", os.Getenv("DRAFT_TEAM_ID"), "team to act for (env DRAFT_TEAM_ID)")
	rootCmd.PersistentFlags().BoolVar(&adminFlag, "admin", false, "act with the admin role")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
}

func caller() (rpcutil.Caller, error) {
	c := rpcutil.Caller{Admin: adminFlag}
	if teamFlag != "" {
		id, err := uuid.Parse(teamFlag)
		if err != nil {
			return rpcutil.Caller{}, fmt.Errorf("invalid --team: %w", err)
		}
		c.TeamID = id
	}
	return c, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func draftClient() (*client.Client, error) {
	c, err := caller()
	if err != nil {
		return nil, err
	}
	return client.New(httpClient(), serverURL, c), nil
}

// invoke makes one unary call to procedure as the configured caller.
func invoke[Req, Res any](ctx context.Context, procedure string, msg *Req) (*Res, error) {
	c, err := caller()
	if err != nil {
		return nil, err
	}
	cl := connect.NewClient[Req, Res](httpClient(), serverURL+procedure, rpcutil.ClientOptions()...)
	req := connect.NewRequest(msg)
	rpcutil.SetCaller(req.Header(), c)
	res, err := cl.CallUnary(ctx, req)
	if err != nil {
		return nil, rpcutil.FromConnectError(err)
	}
	return res.Msg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return id, nil
}

func parseIDs(ss []string, what string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := parseID(s, what)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

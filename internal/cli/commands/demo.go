package commands

import (
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/pkg/eval"
	"github.com/itsneelabh/orchestron/pkg/mockapi"
)

// NewDemoCommand returns the `orchestron demo` command: starts an
// in-process mock API, runs a canned fetch-and-summarize goal against
// it, and prints the resulting trace — the Go analogue of
// original_source/main.py's `main()` smoke-test entrypoint.
func NewDemoCommand() *cobra.Command {
	var goal string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a canned goal against an in-process mock API",
		Long:  "Starts pkg/mockapi on an ephemeral local port, points the orchestrator at it, and runs one goal end to end.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer bs.Store.Close()

			listener, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("start mock API listener: %w", err)
			}
			server := &http.Server{Handler: mockapi.New().Handler()}
			go func() { _ = server.Serve(listener) }()
			defer server.Close()

			demoCfg := *bs.Config
			demoCfg.MockAPIBaseURL = fmt.Sprintf("http://%s", listener.Addr().String())

			trace, err := eval.RunOrchestration(ctx, &demoCfg, bs.Store, bs.Logger, goal, nil, true, "demo")
			if err != nil {
				return err
			}
			return printJSON(cmd, trace)
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "Fetch mock data and summarize the result", "goal to run against the mock API")

	return cmd
}

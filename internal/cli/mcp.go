package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ironsheep/pii-redactor/internal/server"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdin/stdout",
		Long: `Runs a Model Context Protocol server on stdin/stdout. Configure it in an
MCP client (e.g. Claude Desktop) as the command "pii-redactor mcp".
Logs are written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			engine, cleanup, err := buildEngine(a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			log.Debug().Str("version", resolvedVersion()).Msg("mcp server starting")
			srv := server.New(engine, server.Defaults{
				Options:    detectionOptions(a.cfg),
				SampleSize: a.cfg.SampleSize,
				Seed:       a.cfg.Seed,
			}, resolvedVersion())
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

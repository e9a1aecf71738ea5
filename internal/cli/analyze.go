package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/config"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/report"
)

type analyzeFlags struct {
	anonymize bool
	output    string
	jsonFile  string
	noSummary bool
	format    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a PDF, HTML, text, CSV or image file for PII",
		Example: `  pii-redactor analyze contract.pdf
  pii-redactor analyze customers.csv -s 500 -e EMAIL_ADDRESS,PHONE_NUMBER
  pii-redactor analyze scan.png -a -o scan_redacted.png -j report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.anonymize, "anonymize", "a", false, "write a masked copy of the file")
	flags.StringVarP(&f.output, "output", "o", "", "masked file path (default: <name>_masked<ext>)")
	flags.StringVarP(&f.jsonFile, "json", "j", "", "also save the JSON report to this file")
	flags.BoolVar(&f.noSummary, "no-summary", false, "do not print the console summary")
	flags.StringVarP(&f.format, "format", "f", "text", "stdout format (text, json)")
	flags.IntP("sample-size", "s", 0, "CSV only: rows to sample (0 = all)")
	flags.Float64P("threshold", "t", pii.DefaultThreshold, "minimum confidence score (0-1)")
	flags.StringSliceP("entities", "e", nil, "entity types to detect (default: all)")
	flags.Uint64("seed", 42, "CSV only: sampling seed")
	_ = a.v.BindPFlag(config.KeySampleSize, flags.Lookup("sample-size"))
	_ = a.v.BindPFlag(config.KeyThreshold, flags.Lookup("threshold"))
	_ = a.v.BindPFlag(config.KeyEntities, flags.Lookup("entities"))
	_ = a.v.BindPFlag(config.KeySeed, flags.Lookup("seed"))
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, f analyzeFlags) error {
	if f.format != "text" && f.format != "json" {
		return pii.NewInputError("format", "%q is not text or json", f.format)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	engine, cleanup, err := buildEngine(a.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	req := analyzer.NewFileRequest(path)
	req.Options = detectionOptions(a.cfg)
	req.Anonymize = f.anonymize
	req.Output = f.output
	req.SampleSize = a.cfg.SampleSize
	req.Seed = a.cfg.Seed

	res, err := engine.AnalyzeFile(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case f.format == "json":
		if err := report.WriteJSON(out, res); err != nil {
			return err
		}
	case !f.noSummary:
		report.WriteSummary(out, res)
	}

	if f.jsonFile != "" {
		if err := report.SaveJSON(f.jsonFile, res); err != nil {
			return err
		}
		log.Info().Str("file", f.jsonFile).Msg("report saved")
	}
	return nil
}

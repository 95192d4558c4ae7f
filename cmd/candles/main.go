package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-candles/internal/config"
	"github.com/rxtech-lab/argo-candles/internal/logger"
	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/internal/version"
	"github.com/rxtech-lab/argo-candles/pkg/candles"
	"github.com/rxtech-lab/argo-candles/pkg/candles/provider"
	"github.com/rxtech-lab/argo-candles/pkg/candles/writer"
)

const dateLayout = "2006-01-02"

// fetchAction retrieves, validates, and assembles candles, then writes the
// series to the requested output format.
func fetchAction(ctx context.Context, cmd *cli.Command) error {
	pair := cmd.String("pair")
	intervalFlag := cmd.String("interval")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")
	sourceFlag := cmd.String("source")
	output := cmd.String("output")
	format := cmd.String("format")
	configPath := cmd.String("config")

	interval, err := types.ParseInterval(intervalFlag)
	if err != nil {
		return err
	}

	source, err := provider.NewRawBarSource(provider.SourceType(sourceFlag), os.Getenv("POLYGON_API_KEY"))
	if err != nil {
		return err
	}

	engineCfg := candles.DefaultConfig()
	engineCfg.MaxBars = cmd.Int("max-bars")
	engineCfg.ValidatePair = cmd.Bool("validate-pair")

	// An exchange profile overrides the source defaults for page size and
	// request spacing.
	if configPath != "" {
		cfg, loadErr := config.Load(configPath)
		if loadErr != nil {
			return loadErr
		}

		profile, profileErr := cfg.Profile(sourceFlag)
		if profileErr != nil {
			return profileErr
		}

		engineCfg.PageSizeOverride = optional.Some(profile.PageSize)
		engineCfg.MinRequestSpacing = profile.MinRequestSpacing()
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	engine, err := candles.NewEngine(source, engineCfg, candles.WithLogger(appLogger))
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(1,
		progressbar.OptionSetDescription(fmt.Sprintf("Fetching %s %s", pair, interval)),
		progressbar.OptionShowCount(),
	)

	result, err := engine.GetCandlesWithProgress(ctx, candles.FetchRequest{
		Pair:     pair,
		Interval: interval,
		Start:    start.Unix(),
		End:      end.Unix(),
	}, func(completed, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(completed)
	})
	if err != nil {
		return err
	}

	_ = bar.Finish()
	fmt.Println()

	if err := writeSeries(output, format, result.Series); err != nil {
		return err
	}

	printSummary(result, output)

	return nil
}

// writeSeries persists the series through the writer for the chosen format.
func writeSeries(output, format string, series types.Series) (err error) {
	var w writer.SeriesWriter

	switch format {
	case "parquet":
		w = writer.NewDuckDBWriter(output, series.Pair, series.Interval)
	case "csv":
		w = writer.NewCSVWriter(output, series.Pair, series.Interval)
	default:
		return fmt.Errorf("unsupported output format: %s (want parquet or csv)", format)
	}

	if err = w.Initialize(); err != nil {
		return err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, b := range series.Bars {
		if err = w.Write(b); err != nil {
			return err
		}
	}

	_, err = w.Finalize()

	return err
}

// printSummary reports the fetch outcome including soft diagnostics.
func printSummary(result candles.Result, output string) {
	fmt.Printf("Wrote %d bars to %s\n", result.Series.Len(), output)

	if result.DuplicateCount > 0 {
		fmt.Printf("Duplicates resolved: %d\n", result.DuplicateCount)
	}

	if len(result.Rejections) > 0 {
		fmt.Printf("Rejected bars: %d\n", len(result.Rejections))

		for _, rejection := range result.Rejections {
			fmt.Printf("  - open_time=%d reason=%s\n", rejection.Bar.OpenTime, rejection.Reason)
		}
	}

	if len(result.Gaps) > 0 {
		fmt.Printf("Gaps detected: %d (%d bars missing)\n", len(result.Gaps), result.Gaps.TotalMissing())

		for _, gap := range result.Gaps {
			fmt.Printf("  - [%d, %d] missing=%d\n", gap.GapStart, gap.GapEnd, gap.MissingCount)
		}
	}
}

// pairsAction lists the tradeable pairs of a source.
func pairsAction(ctx context.Context, cmd *cli.Command) error {
	sourceFlag := cmd.String("source")

	source, err := provider.NewRawBarSource(provider.SourceType(sourceFlag), os.Getenv("POLYGON_API_KEY"))
	if err != nil {
		return err
	}

	lister, ok := source.(candles.PairLister)
	if !ok {
		return fmt.Errorf("source %s cannot enumerate pairs", sourceFlag)
	}

	pairs, err := lister.ListPairs(ctx)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		fmt.Printf("%s\t%s/%s\t%s\n", pair.ID, pair.BaseCurrency, pair.QuoteCurrency, pair.Status)
	}

	return nil
}

// sourcesAction lists the supported data sources.
func sourcesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range provider.GetSupportedSources() {
		info, err := provider.GetSourceInfo(name)
		if err != nil {
			return err
		}

		auth := ""
		if info.RequiresAuth {
			auth = " (requires API key)"
		}

		fmt.Printf("%s\t%s%s\n\t%s\n", info.Name, info.DisplayName, auth, info.Description)
	}

	return nil
}

// schemaAction prints the JSON schema for the engine configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	cfg := candles.DefaultConfig()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "candles",
		Usage:   "Fetch, validate, and normalize exchange candlestick data",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Fetch candles for a pair over a time window",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "pair",
						Aliases:  []string{"p"},
						Usage:    "Trading pair, e.g. BTC-USD (coinbase) or BTCUSDT (binance)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   fmt.Sprintf("Bar interval, one of %v", types.SupportedIntervals()),
						Value:   string(types.Interval1h),
					},
					&cli.TimestampFlag{
						Name:     "start",
						Aliases:  []string{"s"},
						Usage:    "Window start in `YYYY-MM-DD` format (or other RFC3339 compatible)",
						Required: true,
						Config: cli.TimestampConfig{
							Layouts: []string{dateLayout, time.RFC3339},
						},
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "Window end (exclusive) in `YYYY-MM-DD` format. Defaults to now.",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{dateLayout, time.RFC3339},
						},
					},
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"S"},
						Usage:   fmt.Sprintf("Data source to use (e.g., %s, %s, %s)", provider.SourceCoinbase, provider.SourceBinance, provider.SourcePolygon),
						Value:   string(provider.SourceCoinbase),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "candles.parquet",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: parquet or csv",
						Value:   "parquet",
					},
					&cli.IntFlag{
						Name:  "max-bars",
						Usage: "Reject requests spanning more than this many bars (0 = unlimited)",
						Value: 5000,
					},
					&cli.BoolFlag{
						Name:  "validate-pair",
						Usage: "Check the pair against the exchange's product list before fetching",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to an exchange configuration YAML file",
					},
				},
				Action: fetchAction,
			},
			{
				Name:  "pairs",
				Usage: "List the tradeable pairs of a source",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"S"},
						Usage:   "Data source to query",
						Value:   string(provider.SourceCoinbase),
					},
				},
				Action: pairsAction,
			},
			{
				Name:   "sources",
				Usage:  "List supported data sources",
				Action: sourcesAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the engine configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

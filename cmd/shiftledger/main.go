// Command shiftledger fills the gas-station shift workbook from
// screenshots and exported tables.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shiftledger/constants"
	"shiftledger/internal/batch"
	"shiftledger/internal/config"
	"shiftledger/internal/history"
	"shiftledger/internal/update"
	"shiftledger/internal/vision"
)

var (
	workbookPath string
	dateStr      string
	startStr     string
	endStr       string
	gasPrice     float64
	noHistory    bool

	recognizeCategory string
	historyLimit      int
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "shiftledger",
		Short: "Fill the shift accounting workbook from receipts and table exports",
	}

	runCmd := &cobra.Command{
		Use:   "run <category>=<file> [<category>=<file> ...]",
		Short: "Process source files and update the workbook",
		Long: `Processes every source file concurrently, collects the update
instructions, applies them to the workbook as one batch, and saves it.

Source arguments pair a category label with a file, e.g.
  shiftledger run --workbook shift.xlsx --date 2026-08-30 --price 7.1 \
      货车帮=hcb.png 油品优惠=discounts.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}
	runCmd.Flags().StringVar(&workbookPath, "workbook", "", "path to the shift workbook (required)")
	runCmd.Flags().StringVar(&dateStr, "date", "", "accounting date YYYY-MM-DD (default: today)")
	runCmd.Flags().StringVar(&startStr, "start", "08:00", "work start time HH:MM")
	runCmd.Flags().StringVar(&endStr, "end", "08:00", "shift end time HH:MM (next day when not after start)")
	runCmd.Flags().Float64Var(&gasPrice, "price", 0, "fuel price per liter (required)")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording the run in the history store")
	_ = runCmd.MarkFlagRequired("workbook")
	_ = runCmd.MarkFlagRequired("price")

	recognizeCmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Run one image through the vision extractor and print the raw fields",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecognize,
	}
	recognizeCmd.Flags().StringVar(&recognizeCategory, "category", "", "source category label (required)")
	_ = recognizeCmd.MarkFlagRequired("category")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")

	rootCmd.AddCommand(runCmd, recognizeCmd, historyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()

	sources, needVision, err := parseSources(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(needVision); err != nil {
		return err
	}

	shift, err := buildShift()
	if err != nil {
		return err
	}

	logger := slog.Default()
	ctx := context.Background()

	var recognizer vision.Recognizer
	if needVision {
		recognizer, err = vision.NewClient(ctx, cfg.Vision, logger)
		if err != nil {
			return err
		}
	}

	var store *history.Store
	if !noHistory {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()
	}

	engine := update.NewEngine(logger)
	if err := engine.Open(workbookPath); err != nil {
		return err
	}
	defer func() {
		_ = engine.Close()
	}()

	report := batch.NewRunner(logger, engine, recognizer, store).Run(ctx, shift, workbookPath, sources)

	for _, sr := range report.Sources {
		if sr.Err != nil {
			fmt.Printf("%-10s %s: error: %v\n", sr.Source.Category, sr.Source.Path, sr.Err)
		} else {
			fmt.Printf("%-10s %s: %d instruction(s)\n", sr.Source.Category, sr.Source.Path, sr.Instructions)
		}
	}
	if report.ApplyErr != nil {
		return fmt.Errorf("apply updates: %w", report.ApplyErr)
	}
	if report.SaveErr != nil {
		return fmt.Errorf("save workbook (close it in other applications and retry): %w", report.SaveErr)
	}
	fmt.Printf("applied %d instruction(s), workbook saved: %s\n", report.Batch, workbookPath)
	return nil
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(true); err != nil {
		return err
	}
	cat, ok := constants.ParseCategory(recognizeCategory)
	if !ok || !cat.IsVision() {
		return fmt.Errorf("unknown vision category %q (known: %s)",
			recognizeCategory, strings.Join(constants.AllCategories(), ", "))
	}

	img, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := vision.NewClient(ctx, cfg.Vision, slog.Default())
	if err != nil {
		return err
	}
	fields, err := client.Recognize(ctx, vision.Request{
		Category:  cat,
		ImageName: args[0],
		Image:     img,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  shift=%s  price=%.2f  %d instruction(s)  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID[:8], r.ShiftDate, r.GasPrice, r.Instructions, r.Status)
		if r.ErrorMessage != "" {
			line += "  error: " + r.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

// parseSources turns "category=path" arguments into batch sources and
// reports whether any of them needs the vision client.
func parseSources(args []string) ([]batch.Source, bool, error) {
	var sources []batch.Source
	needVision := false
	for _, arg := range args {
		label, path, found := strings.Cut(arg, "=")
		if !found {
			return nil, false, fmt.Errorf("source %q must be <category>=<file>", arg)
		}
		cat, ok := constants.ParseCategory(label)
		if !ok {
			return nil, false, fmt.Errorf("unknown category %q (known: %s)",
				label, strings.Join(constants.AllCategories(), ", "))
		}
		if _, err := os.Stat(path); err != nil {
			return nil, false, fmt.Errorf("source file %s: %w", path, err)
		}
		if cat.IsVision() {
			needVision = true
		}
		sources = append(sources, batch.Source{Path: path, Category: cat})
	}
	return sources, needVision, nil
}

func buildShift() (*config.Shift, error) {
	date := time.Now()
	if dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --date, use YYYY-MM-DD: %w", err)
		}
		date = parsed
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)

	start, err := atTime(date, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --start, use HH:MM: %w", err)
	}
	end, err := atTime(date, endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --end, use HH:MM: %w", err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return config.NewShift(date, start, end, gasPrice)
}

func atTime(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}

// The underwrite command runs a single deal through the engine from the
// command line: read assumptions from a JSON file, print the headline
// metrics, and optionally write the full projection and a sensitivity
// sweep as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dealpulse/internal/services"
	"dealpulse/internal/underwriting"
	"dealpulse/internal/validation"
)

func main() {
	dealPath := flag.String("deal", "", "path to deal assumptions JSON (required unless -sample)")
	outDir := flag.String("out", "", "directory to write result JSON into (optional)")
	name := flag.String("name", "", "deal name override")
	sensitivity := flag.Bool("sensitivity", false, "also run the sensitivity sweep")
	sample := flag.Bool("sample", false, "print sample deal assumptions and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *sample {
		data, err := json.MarshalIndent(underwriting.DefaultDealInput(), "", "  ")
		if err != nil {
			slog.Error("marshal sample deal", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	if *dealPath == "" {
		slog.Error("missing -deal flag", "hint", "use -sample to print a starting point")
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*dealPath)
	if err != nil {
		slog.Error("read deal file", "path", *dealPath, "error", err)
		os.Exit(1)
	}

	svc := services.NewUnderwritingService(underwriting.NewCalculator(logger), nil, logger)
	ctx := context.Background()

	report, err := svc.Underwrite(ctx, *name, raw)
	if err != nil {
		slog.Error("underwriting failed", "error", err)
		os.Exit(1)
	}

	printSummary(report)

	var sweep *underwriting.SensitivityResult
	if *sensitivity {
		sweep, err = svc.RunSensitivity(ctx, raw, nil)
		if err != nil {
			slog.Error("sensitivity sweep failed", "error", err)
			os.Exit(1)
		}
		printSweep(sweep)
	}

	if *outDir != "" {
		if err := writeOutputs(*outDir, report, sweep, logger); err != nil {
			slog.Error("write outputs", "error", err)
			os.Exit(1)
		}
	}
}

func printSummary(report *services.UnderwriteReport) {
	m := report.Result.Metrics

	fmt.Printf("Deal: %s\n", orUnnamed(report.Result.DealName))
	fmt.Printf("Recommendation: %s\n", report.Recommendation.Action)
	for _, reason := range report.Recommendation.Rationale {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Println()
	fmt.Printf("  Initial equity      %14.0f\n", m.InitialEquity)
	fmt.Printf("  Total profit        %14.0f\n", m.TotalProfit)
	fmt.Printf("  Equity multiple     %13.2fx\n", m.EquityMultiple)
	if m.IRRSolved {
		fmt.Printf("  IRR                 %13.2f%%\n", m.IRR*100)
		fmt.Printf("  After-tax IRR       %13.2f%%\n", m.AfterTaxIRR*100)
	} else {
		fmt.Printf("  IRR                 %14s\n", "n/a")
	}
	fmt.Printf("  Avg cash-on-cash    %13.2f%%\n", m.AverageCashOnCash*100)
	fmt.Printf("  Year-1 cash-on-cash %13.2f%%\n", m.Year1CashOnCash*100)
	if m.MinDSCR > 0 {
		fmt.Printf("  Min DSCR            %14.2f\n", m.MinDSCR)
		fmt.Printf("  Avg DSCR            %14.2f\n", m.AverageDSCR)
	}
	fmt.Printf("  Break-even occup.   %13.2f%%\n", m.BreakEvenOccupancy*100)
}

func printSweep(sweep *underwriting.SensitivityResult) {
	fmt.Println()
	fmt.Printf("Sensitivity (IRR %%, base %.2f%%)\n", sweep.BaseIRR*100)
	fmt.Printf("%12s", "rent \\ cap")
	for _, d := range sweep.CapRateDeltas {
		fmt.Printf("%10.0fbp", d*10000)
	}
	fmt.Println()

	for i, row := range sweep.Grid {
		fmt.Printf("%11.0f%%", sweep.RentDeltas[i]*100)
		for _, cell := range row {
			if cell.Valid {
				fmt.Printf("%11.2f", cell.IRR*100)
			} else {
				fmt.Printf("%11s", "-")
			}
		}
		fmt.Println()
	}
}

func writeOutputs(dir string, report *services.UnderwriteReport, sweep *underwriting.SensitivityResult, logger *slog.Logger) error {
	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(dir); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "underwriting.json"), report); err != nil {
		return err
	}
	fmt.Printf("\nwrote %s\n", filepath.Join(dir, "underwriting.json"))

	if sweep != nil {
		if err := writeJSON(filepath.Join(dir, "sensitivity.json"), sweep); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", filepath.Join(dir, "sensitivity.json"))
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func orUnnamed(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

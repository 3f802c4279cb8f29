// The rentroll command inspects a rent-roll workbook from the command
// line: parse the units, print the summary, and show the income
// assumptions the API would suggest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"dealpulse/internal/rentroll"
	"dealpulse/internal/validation"
)

func main() {
	filePath := flag.String("file", "", "path to rent-roll workbook (.xlsx, required)")
	asJSON := flag.Bool("json", false, "print the full parse result as JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *filePath == "" {
		slog.Error("missing -file flag")
		flag.Usage()
		os.Exit(1)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateWorkbook(*filePath); err != nil {
		slog.Error("invalid workbook", "path", *filePath, "error", err)
		os.Exit(1)
	}

	parser := rentroll.NewParser(logger)
	roll, err := parser.ParseFile(context.Background(), *filePath)
	if err != nil {
		slog.Error("parse rent roll", "path", *filePath, "error", err)
		os.Exit(1)
	}

	if *asJSON {
		data, err := json.MarshalIndent(roll, "", "  ")
		if err != nil {
			slog.Error("marshal result", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	s := roll.Summary
	fmt.Printf("Rent roll: %s (sheet %q)\n", roll.Filename, s.Sheet)
	fmt.Printf("  Units             %6d (%d occupied, %.1f%% vacancy)\n",
		s.UnitCount, s.OccupiedCount, s.VacancyRate*100)
	fmt.Printf("  Scheduled rent    %10.0f /month (market)\n", s.ScheduledRentMonthly)
	if s.InPlaceRentMonthly > 0 {
		fmt.Printf("  In-place rent     %10.0f /month\n", s.InPlaceRentMonthly)
	}
	fmt.Printf("  Avg market rent   %10.0f\n", s.AverageMarketRent)
	if s.TotalSquareFeet > 0 {
		fmt.Printf("  Total square feet %10.0f\n", s.TotalSquareFeet)
	}
	if s.SkippedRows > 0 {
		fmt.Printf("  Skipped rows      %6d\n", s.SkippedRows)
	}

	if len(roll.Suggestions) > 0 {
		fmt.Println("\nSuggested income assumptions:")
		for _, sg := range roll.Suggestions {
			fmt.Printf("  [%s] gross_rent_monthly=%.0f vacancy_rate=%.3f\n",
				sg.Basis, sg.GrossRentMonthly, sg.VacancyRate)
		}
	}

	for _, warning := range roll.Warnings {
		fmt.Printf("\nwarning: %s\n", warning)
	}
}

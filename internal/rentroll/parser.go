package rentroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dealpulse/pkg/contracts/domain"
)

const (
	// headerScanLimit bounds how deep into a sheet the header hunt goes.
	// Exports put the header within the first few rows; anything deeper
	// is a cover page, not a rent roll.
	headerScanLimit = 25

	// maxRowWarnings caps per-row skip warnings before they collapse
	// into a single count.
	maxRowWarnings = 8
)

// sheetCandidates are checked first, in order, before falling back to a
// header scan across every sheet.
var sheetCandidates = []string{"rent roll", "rentroll", "rent_roll", "unit mix", "units"}

// Parser reads rent-roll workbooks into domain.RentRoll results.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a rent-roll parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger.With(slog.String("component", "rentroll")),
	}
}

// ParseFile parses a rent-roll workbook on disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*domain.RentRoll, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return p.parse(ctx, f, filepath.Base(path))
}

// ParseReader parses a rent-roll workbook from a stream, typically a
// multipart upload. The filename is carried through for reporting only.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, filename string) (*domain.RentRoll, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filename, err)
	}
	defer f.Close()

	return p.parse(ctx, f, filename)
}

func (p *Parser) parse(ctx context.Context, f *excelize.File, filename string) (*domain.RentRoll, error) {
	sheet, rows, err := findUnitSheet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	p.logger.InfoContext(ctx, "parsing rent roll",
		slog.String("filename", filename),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	headerRow, cols, err := mapColumns(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: sheet %s: %w", filename, sheet, err)
	}

	units, skipped, warnings := p.parseRows(ctx, rows[headerRow+1:], headerRow+2, cols)
	if len(units) == 0 {
		return nil, fmt.Errorf("%s: sheet %s has no parsable unit rows", filename, sheet)
	}

	if cols.status < 0 && cols.current < 0 {
		warnings = append(warnings, "no status or current rent column; every unit counted occupied")
	}
	if cols.current < 0 {
		warnings = append(warnings, "no current rent column; in-place rent uses market rents for occupied units")
	}

	roll := &domain.RentRoll{
		Filename: filename,
		Units:    units,
		Warnings: warnings,
	}
	roll.Summary = summarize(units, skipped, sheet, cols.current >= 0)
	roll.Suggestions = suggest(roll.Summary)

	p.logger.InfoContext(ctx, "rent roll parsed",
		slog.String("filename", filename),
		slog.Int("units", roll.Summary.UnitCount),
		slog.Int("occupied", roll.Summary.OccupiedCount),
		slog.Int("skipped_rows", roll.Summary.SkippedRows),
		slog.Float64("scheduled_rent_monthly", roll.Summary.ScheduledRentMonthly))

	return roll, nil
}

// findUnitSheet picks the sheet holding unit rows: candidate names first,
// then the first sheet whose early rows contain a recognizable header.
func findUnitSheet(f *excelize.File) (string, [][]string, error) {
	sheets := f.GetSheetList()

	for _, cand := range sheetCandidates {
		for _, name := range sheets {
			if !strings.Contains(strings.ToLower(strings.TrimSpace(name)), cand) {
				continue
			}
			rows, err := f.GetRows(name)
			if err != nil {
				continue
			}
			if _, _, mErr := mapColumns(rows); mErr == nil {
				return name, rows, nil
			}
		}
	}

	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if _, _, mErr := mapColumns(rows); mErr == nil {
			return name, rows, nil
		}
	}

	return "", nil, fmt.Errorf("no sheet with unit and rent columns found")
}

// columnMap holds the resolved column index per field, -1 when the sheet
// does not carry that column.
type columnMap struct {
	unit    int
	market  int
	current int
	status  int
	sqft    int
}

// mapColumns locates the header row and resolves column positions from
// header text. A row qualifies as the header once it names both a unit
// column and a rent column.
func mapColumns(rows [][]string) (int, columnMap, error) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		if cols, ok := mapHeaderRow(rows[i]); ok {
			return i, cols, nil
		}
	}

	return 0, columnMap{}, fmt.Errorf("no header row with unit and rent columns in first %d rows", headerScanLimit)
}

func mapHeaderRow(row []string) (columnMap, bool) {
	cols := columnMap{unit: -1, market: -1, current: -1, status: -1, sqft: -1}
	genericRent := -1

	for j, header := range row {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		switch {
		case (strings.Contains(h, "unit") || strings.Contains(h, "apt") || strings.Contains(h, "suite")) &&
			!strings.Contains(h, "type"):
			if cols.unit == -1 {
				cols.unit = j
			}
		case strings.Contains(h, "rent") &&
			(strings.Contains(h, "market") || strings.Contains(h, "asking") ||
				strings.Contains(h, "scheduled") || strings.Contains(h, "pro forma")):
			if cols.market == -1 {
				cols.market = j
			}
		case strings.Contains(h, "in place") || strings.Contains(h, "in-place") ||
			(strings.Contains(h, "rent") && (strings.Contains(h, "current") ||
				strings.Contains(h, "actual") || strings.Contains(h, "lease"))):
			if cols.current == -1 {
				cols.current = j
			}
		case strings.Contains(h, "status") || strings.Contains(h, "occupan"):
			if cols.status == -1 {
				cols.status = j
			}
		case !strings.Contains(h, "rent") &&
			(h == "sf" || h == "sqft" || strings.Contains(h, "square") ||
				(strings.Contains(h, "sq") && strings.Contains(h, "f"))):
			if cols.sqft == -1 {
				cols.sqft = j
			}
		case strings.Contains(h, "rent") && !strings.Contains(h, "sf") && !strings.Contains(h, "per"):
			if genericRent == -1 {
				genericRent = j
			}
		}
	}

	// A roll with a single unqualified rent column treats it as market.
	if cols.market == -1 && genericRent != -1 {
		cols.market = genericRent
	}

	return cols, cols.unit >= 0 && cols.market >= 0
}

// parseRows walks the data rows below the header. startRow is the 1-based
// sheet row of the first data row, used in skip warnings.
func (p *Parser) parseRows(ctx context.Context, rows [][]string, startRow int, cols columnMap) ([]domain.RentRollUnit, int, []string) {
	units := make([]domain.RentRollUnit, 0, len(rows))
	var skipWarnings []string

	for i, row := range rows {
		sheetRow := startRow + i

		unitName := cell(row, cols.unit)
		if unitName == "" {
			continue
		}
		lower := strings.ToLower(unitName)
		if strings.Contains(lower, "total") || strings.Contains(lower, "summary") ||
			strings.Contains(lower, "average") {
			continue
		}

		market, err := parseMoney(cell(row, cols.market))
		if err != nil {
			p.logger.DebugContext(ctx, "skipping rent roll row",
				slog.Int("row", sheetRow),
				slog.String("unit", unitName),
				slog.String("reason", err.Error()))
			skipWarnings = append(skipWarnings, fmt.Sprintf("row %d: unit %q skipped: market rent %v", sheetRow, unitName, err))
			continue
		}
		if market <= 0 {
			p.logger.DebugContext(ctx, "skipping rent roll row",
				slog.Int("row", sheetRow),
				slog.String("unit", unitName),
				slog.String("reason", "market rent not positive"))
			skipWarnings = append(skipWarnings, fmt.Sprintf("row %d: unit %q skipped: market rent must be positive", sheetRow, unitName))
			continue
		}

		var current float64
		if cols.current >= 0 {
			current, _ = parseMoney(cell(row, cols.current))
			if current < 0 {
				current = 0
			}
		}

		var sqft float64
		if cols.sqft >= 0 {
			sqft, _ = parseMoney(cell(row, cols.sqft))
			if sqft < 0 {
				sqft = 0
			}
		}

		status := cell(row, cols.status)
		occupied := true
		switch {
		case status != "":
			occupied = !isVacantStatus(status)
		case cols.current >= 0:
			occupied = current > 0
		}

		units = append(units, domain.RentRollUnit{
			Unit:        unitName,
			Status:      status,
			Occupied:    occupied,
			CurrentRent: current,
			MarketRent:  market,
			SquareFeet:  sqft,
		})
	}

	skipped := len(skipWarnings)
	if skipped > maxRowWarnings {
		skipWarnings = append(skipWarnings[:maxRowWarnings],
			fmt.Sprintf("%d more rows skipped", skipped-maxRowWarnings))
	}

	return units, skipped, skipWarnings
}

func isVacantStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return strings.Contains(s, "vacant") || s == "vac" ||
		strings.Contains(s, "down") || strings.Contains(s, "model")
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMoney reads a currency-ish cell: "$1,250.00", "1250", " 980 ".
func parseMoney(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("cell is empty")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cell %q is not a number", raw)
	}
	return v, nil
}

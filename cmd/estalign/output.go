package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/mbeaufort/estalign/pkg/application/dto"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
	"github.com/mbeaufort/estalign/pkg/interfaces/cli/commands"
)

// generateOutput renders a run summary in the requested format
func generateOutput(result *commands.Result, format string) error {
	switch format {
	case "text":
		return generateTextOutput(result)
	case "json":
		return generateJSONOutput(result)
	case "csv":
		return generateCSVOutput(result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

type columnSummary struct {
	Column         string `json:"column"`
	Type           string `json:"type"`
	KnownCells     int    `json:"known_cells"`
	TotalCells     int    `json:"total_cells"`
	AdjustmentRows []int  `json:"adjustment_rows"`
	Adjustments    int    `json:"adjustments"`
}

func summarize(result *commands.Result) []columnSummary {
	names := make([]string, 0, len(result.Columns))
	for name := range result.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]columnSummary, 0, len(names))
	for _, name := range names {
		col := result.Columns[name]
		summaries = append(summaries, columnSummary{
			Column:         name,
			Type:           col.Type.String(),
			KnownCells:     countKnown(col),
			TotalCells:     len(col.Dates) * len(col.Assets),
			AdjustmentRows: col.AdjustmentRows(),
			Adjustments:    col.NumAdjustments(),
		})
	}
	return summaries
}

func countKnown(col *dto.AdjustedColumn) int {
	known := 0
	if col.Type == entities.DatetimeColumn {
		for _, row := range col.Times {
			for _, v := range row {
				if !v.IsZero() {
					known++
				}
			}
		}
		return known
	}
	for _, row := range col.Floats {
		for _, v := range row {
			if !math.IsNaN(v) {
				known++
			}
		}
	}
	return known
}

func generateTextOutput(result *commands.Result) error {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                 ESTIMATE ALIGNMENT RESULTS")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("📊 SUMMARY\n")
	fmt.Printf("  Run ID: %s\n", result.RunID)
	fmt.Printf("  Strategy: %s\n", result.Strategy)
	fmt.Printf("  Grid: %d dates x %d assets\n", result.Dates, result.Assets)
	fmt.Printf("  Columns: %d\n", len(result.Columns))
	fmt.Printf("  Duration: %v\n", result.Duration)
	fmt.Println()

	fmt.Printf("📝 COLUMNS\n")
	fmt.Println("────────────────────────────────────────────────────────────────")
	for _, s := range summarize(result) {
		fmt.Printf("  %-20s %-9s known %d/%d cells, %d overwrites at rows %v\n",
			s.Column, s.Type, s.KnownCells, s.TotalCells, s.Adjustments, s.AdjustmentRows)
	}
	return nil
}

func generateJSONOutput(result *commands.Result) error {
	payload := struct {
		RunID    string          `json:"run_id"`
		Strategy string          `json:"strategy"`
		Dates    int             `json:"dates"`
		Assets   int             `json:"assets"`
		Duration string          `json:"duration"`
		Columns  []columnSummary `json:"columns"`
	}{
		RunID:    result.RunID,
		Strategy: result.Strategy.String(),
		Dates:    result.Dates,
		Assets:   result.Assets,
		Duration: result.Duration.String(),
		Columns:  summarize(result),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func generateCSVOutput(result *commands.Result) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"column", "type", "known_cells", "total_cells", "adjustment_row", "overwrites"}); err != nil {
		return err
	}
	for _, s := range summarize(result) {
		if len(s.AdjustmentRows) == 0 {
			if err := w.Write([]string{s.Column, s.Type, strconv.Itoa(s.KnownCells), strconv.Itoa(s.TotalCells), "", "0"}); err != nil {
				return err
			}
			continue
		}
		for _, row := range s.AdjustmentRows {
			col := result.Columns[s.Column]
			if err := w.Write([]string{
				s.Column,
				s.Type,
				strconv.Itoa(s.KnownCells),
				strconv.Itoa(s.TotalCells),
				strconv.Itoa(row),
				strconv.Itoa(len(col.Adjustments[row])),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

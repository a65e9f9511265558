package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mbeaufort/estalign/pkg/application/services/estimates"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
	"github.com/mbeaufort/estalign/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	// Set up an in-memory estimate source
	schema := map[string]entities.ColumnType{
		"estimate": entities.Float64Column,
	}
	repo := memory.NewEstimateRepository(schema, 8)
	setupAcmeEstimates(repo)

	table, err := repo.Table(ctx)
	if err != nil {
		fmt.Printf("❌ loading estimates failed: %v\n", err)
		return
	}

	// Create the alignment loader. eps on the output side maps to the
	// raw "estimate" metric.
	loader, err := estimates.NewNextQuartersLoader(table, map[string]string{
		"eps": "estimate",
	})
	if err != nil {
		fmt.Printf("❌ building loader failed: %v\n", err)
		return
	}

	// Daily simulation calendar for Q1 2025
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, 90)
	for d := start; d.Before(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	assets := []entities.AssetID{1001}
	one := 1

	fmt.Println("🔭 Aligning analyst estimates for ACME...")
	fmt.Printf("Calendar: %s .. %s (%d days)\n",
		dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"), len(dates))
	fmt.Println()

	out, err := loader.LoadAdjustedArray(ctx, []entities.ColumnSpec{
		{Name: "eps", Type: entities.Float64Column, NumQuarters: &one},
	}, dates, assets, nil)
	if err != nil {
		fmt.Printf("❌ alignment failed: %v\n", err)
		return
	}

	col := out["eps"]
	fmt.Println("📊 Alignment Results:")
	fmt.Printf("  Matrix: %d dates x %d assets\n", len(col.Dates), len(col.Assets))
	fmt.Printf("  Overwrite groups: %d\n", len(col.Adjustments))
	fmt.Println()

	fmt.Println("📝 Next-quarter EPS as known on selected dates:")
	for _, day := range []int{0, 30, 45, 60, 89} {
		v := col.Floats[day][0]
		if math.IsNaN(v) {
			fmt.Printf("  %s: (no estimate yet)\n", dates[day].Format("2006-01-02"))
			continue
		}
		fmt.Printf("  %s: %.2f\n", dates[day].Format("2006-01-02"), v)
	}
	fmt.Println()

	for _, row := range col.AdjustmentRows() {
		for _, ov := range col.Adjustments[row] {
			fmt.Printf("🔁 Crossover at %s: rewrite rows %d..%d\n",
				dates[row].Format("2006-01-02"), ov.FirstRow, ov.LastRow)
		}
	}

	fmt.Println()
	fmt.Println("✅ Alignment complete!")
}

func setupAcmeEstimates(repo *memory.EstimateRepository) {
	knowledge := func(y, m, d int) time.Time {
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}

	// Two analyst revisions for the Q1 2025 report, then the first
	// estimate for Q2 arriving after the Q1 release date passes.
	repo.AddEvent(entities.EstimateEvent{
		Asset:         1001,
		EventDate:     knowledge(2025, 2, 14),
		Knowledge:     knowledge(2025, 1, 5),
		FiscalYear:    2025,
		FiscalQuarter: 1,
		Values: map[string]entities.MetricValue{
			"estimate": entities.FloatValue(1.20),
		},
	})
	repo.AddEvent(entities.EstimateEvent{
		Asset:         1001,
		EventDate:     knowledge(2025, 2, 14),
		Knowledge:     knowledge(2025, 2, 1),
		FiscalYear:    2025,
		FiscalQuarter: 1,
		Values: map[string]entities.MetricValue{
			"estimate": entities.FloatValue(1.35),
		},
	})
	repo.AddEvent(entities.EstimateEvent{
		Asset:         1001,
		EventDate:     knowledge(2025, 5, 15),
		Knowledge:     knowledge(2025, 2, 20),
		FiscalYear:    2025,
		FiscalQuarter: 2,
		Values: map[string]entities.MetricValue{
			"estimate": entities.FloatValue(1.50),
		},
	})
}

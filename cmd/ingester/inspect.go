package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/internal/services"
)

// dayReport summarises one day file
type dayReport struct {
	day     int
	status  string
	samples int
	min     float64
	max     float64
	mean    float64
	err     error
}

func inspectCmd(opts *options) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate the day files and print per-day sample statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cal := models.Calendar{Year: cfg.Data.Year}
			source := fileSource(cfg, cal)

			fmt.Println(strings.Repeat("═", 64))
			fmt.Printf("LST DAY FILES - %s\n", source.Describe())
			fmt.Println(strings.Repeat("═", 64))

			ctx := cmd.Context()
			var ok, missing, invalid, totalSamples int
			for day := 1; day <= cfg.Data.Days; day++ {
				r := inspectDay(ctx, source, day)
				switch r.status {
				case "ok":
					ok++
					totalSamples += r.samples
				case "missing":
					missing++
				default:
					invalid++
				}
				if verbose || r.status != "ok" {
					printDay(cal, r)
				}
			}

			fmt.Println(strings.Repeat("═", 64))
			fmt.Println("SUMMARY")
			fmt.Println(strings.Repeat("═", 64))
			fmt.Printf("Days checked:       %d\n", cfg.Data.Days)
			fmt.Printf("Readable days:      %d\n", ok)
			fmt.Printf("Missing days:       %d\n", missing)
			fmt.Printf("Invalid days:       %d\n", invalid)
			fmt.Printf("Total samples:      %d\n", totalSamples)

			if invalid > 0 {
				return fmt.Errorf("%d day files failed validation", invalid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every day, not only the problem ones")
	return cmd
}

func inspectDay(ctx context.Context, source repository.SnapshotSource, day int) dayReport {
	snap, err := source.FetchDay(ctx, day)
	if err != nil {
		status := "invalid"
		if repository.IsNotFound(err) {
			status = "missing"
		}
		return dayReport{day: day, status: status, err: err}
	}

	r := dayReport{day: day, status: "ok", samples: len(snap.Samples), min: math.Inf(1), max: math.Inf(-1)}
	for _, s := range snap.Samples {
		r.min = math.Min(r.min, s.LST)
		r.max = math.Max(r.max, s.LST)
	}
	r.mean = services.ComputeDailyMeans([]models.DaySnapshot{*snap})[0].MeanLST
	return r
}

func printDay(cal models.Calendar, r dayReport) {
	fmt.Printf("  [%s] %-18s", cal.Key(r.day), cal.LongLabel(r.day))
	switch {
	case r.err != nil:
		fmt.Printf(" %s: %v\n", strings.ToUpper(r.status), r.err)
	case r.samples == 0:
		fmt.Printf(" no samples\n")
	default:
		fmt.Printf(" samples: %6d | min: %.1f K | max: %.1f K | mean: %.2f K\n", r.samples, r.min, r.max, r.mean)
	}
}

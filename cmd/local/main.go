package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jusunglee/ciphertrack-go/internal/logging"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/pkg/ciphertrack"
)

func main() {
	var (
		train          = flag.String("train", "", "Train number to track")
		updateInterval = flag.Duration("update-interval", 30*time.Second, "Background refresh interval")
		noProxy        = flag.Bool("no-proxy", false, "Request the upstream directly instead of through the proxy")
		once           = flag.Bool("once", false, "Print the first result and exit")
	)
	flag.Parse()

	// Fallback to the first argument if the flag is not provided
	if *train == "" && flag.NArg() > 0 {
		*train = flag.Arg(0)
	}
	if strings.TrimSpace(*train) == "" {
		fmt.Fprintln(os.Stderr, "Train number required (use -train flag or pass it as an argument)")
		os.Exit(1)
	}

	logger := logging.GetLogger()

	config := ciphertrack.DefaultConfig()
	config.UpdateInterval = *updateInterval
	config.Logger = logger
	if *noProxy {
		config.ProxyURL = ""
	}

	code := run(config, *train, *once)
	logging.SyncLogger()
	os.Exit(code)
}

// run tracks train until interrupted and returns the process exit code
func run(config ciphertrack.Config, train string, once bool) int {
	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	client, err := ciphertrack.NewLocal(config)
	if err != nil {
		logger.Errorw("Failed to create tracking client", "error", err)
		return 1
	}
	defer client.Close()

	views, cancel := client.Subscribe()
	defer cancel()

	if _, err := client.SubmitSearch(train); err != nil {
		logger.Errorw("Failed to start search", "train", train, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case view := <-views:
			switch view.State.Phase {
			case models.PhaseFetchingForeground:
				fmt.Printf("Searching for train %s...\n", view.State.EntityID)
			case models.PhaseFetchingBackground:
				if view.State.Manual {
					fmt.Println("Refreshing...")
				}
			case models.PhaseErrorShown:
				fmt.Println(view.State.Err.Message)
				return 2
			case models.PhaseReady:
				printView(view)
				if once {
					return 0
				}
			}
		}
	}
}

func printView(view models.View) {
	snap := view.State.Snapshot

	fmt.Printf("\n%s (%s)  %s → %s\n", snap.DisplayName, snap.EntityID, snap.OriginName, snap.DestinationName)
	fmt.Printf("  Now at: %s", view.CurrentLocation)
	if snap.AheadDistanceText != "" {
		fmt.Printf(" (%s)", snap.AheadDistanceText)
	}
	fmt.Println()

	delay := "On time"
	if snap.DelayMinutes > 0 {
		delay = fmt.Sprintf("%d min late", snap.DelayMinutes)
	}
	if view.Delayed {
		delay += " !"
	}
	fmt.Printf("  Delay: %s   Progress: %.0f%% of %.0f km\n", delay, view.ProgressPercent, snap.TotalDistance)
	if snap.NextStop != nil {
		fmt.Printf("  Next stop: %s in %s\n", snap.NextStop.Name, snap.NextStop.ETAText)
	}

	fmt.Println()
	for i, station := range view.Route {
		marker := "  "
		switch view.Statuses[i] {
		case models.StationPassed:
			marker = "✓ "
		case models.StationNext:
			marker = "→ "
		}
		if i == view.Position.SegmentIndex {
			marker = "● "
		}

		platform := ""
		if station.Platform != nil {
			platform = fmt.Sprintf("  PF %d", *station.Platform)
		}
		fmt.Printf("  %s%-24s %6.0f km  arr %-8s dep %-8s%s\n",
			marker, station.Name, station.DistanceFromSource,
			station.EstimatedArrival, station.EstimatedDeparture, platform)
	}

	// Show update time
	fmt.Printf("\nLast updated: %s\n", view.State.LastUpdatedAt.Format("3:04:05 PM"))
}

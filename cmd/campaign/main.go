// Package main creates a ThruText campaign from a YAML definition, together
// with its saved replies and surveys.
//
// Usage:
//
//	go run ./cmd/campaign spring-canvass.yaml
//	go run ./cmd/campaign -launch spring-canvass.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/di"
	"github.com/GetThruTools/ThruText-API/internal/di/providers"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/thrutext"
)

var launch = flag.Bool("launch", false, "Launch the campaign once everything is created")

func main() {
	injector := di.NewContainer()
	defer injector.Shutdown() //nolint:errcheck // Exit path

	log := do.MustInvoke[*logger.Logger](injector)
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: campaign [-launch] FILE.yaml")
		os.Exit(2)
	}

	file, err := thrutext.LoadCampaignFile(flag.Arg(0))
	if err != nil {
		log.Fatal("Failed to read campaign file", "error", err)
	}

	client := do.MustInvoke[*providers.ThruTextClientHandle](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := client.CreateCampaignFromFile(ctx, file)
	if result != nil {
		for _, w := range result.Warnings {
			log.Warn("Campaign warning", "warning", w)
		}
		if result.Campaign != nil {
			fmt.Printf("Campaign %q: %s\n", result.Campaign.Name, client.DisplayURL("campaigns", result.Campaign.ID))
			fmt.Printf("  %d saved replies, %d surveys\n", len(result.SavedReplies), len(result.Surveys))
		}
	}
	if err != nil {
		log.Fatal("Campaign creation incomplete", "error", err)
	}

	if *launch {
		if err := client.LaunchCampaign(ctx, result.Campaign.ID); err != nil {
			log.Fatal("Failed to launch campaign", "campaign_id", result.Campaign.ID, "error", err)
		}
		fmt.Println("  launched")
	}
}

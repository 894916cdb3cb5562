// Package main runs field mapping setup once and reports its diagnostics.
//
// It loads the synonym file, loads or refreshes the custom field code registry,
// and reconciles the two. The exit status is non-zero if any stage failed.
//
// Usage:
//
//	go run ./cmd/fieldsetup
//	go run ./cmd/fieldsetup -refresh   # ignore the cached registry
//	go run ./cmd/fieldsetup -map first,last,phone,zip
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/di"
	"github.com/GetThruTools/ThruText-API/internal/di/providers"
	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
	"github.com/GetThruTools/ThruText-API/internal/logger"
)

var (
	refresh = flag.Bool("refresh", false, "Ask ThruText for the current custom fields instead of using the cache")
	header  = flag.String("map", "", "Comma separated header row to map after setup")
)

func main() {
	injector := di.NewContainer()
	defer injector.Shutdown() //nolint:errcheck // Exit path

	cfg := do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	fields := do.MustInvoke[*providers.FieldServiceHandle](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := fields.Reload(ctx, *refresh)

	fmt.Printf("Synonyms file: %s\n", cfg.SynonymsPath())
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
	if err != nil {
		log.Fatal("Field mapping setup failed", "error", err)
	}

	fmt.Printf("Setup complete: %d synonyms, %d codes\n", result.Synonyms, result.Codes)
	printCodes(fields.Status().Codes)

	if *header == "" {
		return
	}

	mapped, err := fields.Map(ctx, strings.Split(*header, ","))
	if mapped != nil {
		for _, s := range mapped.Suggestions {
			names := make([]string, 0, len(s.Suggestions))
			for _, candidate := range s.Suggestions {
				names = append(names, fmt.Sprintf("%s (%s)", candidate.Synonym, candidate.Code))
			}
			fmt.Printf("  column %d %q: did you mean %s?\n", s.Column, s.Header, strings.Join(names, ", "))
		}
	}
	if err != nil {
		log.Fatal("Header does not map", "error", err)
	}
	fmt.Printf("Critical: %v\nCustom:   %v\n", mapped.Mapping.Critical, mapped.Mapping.Custom)
}

func printCodes(codes map[fieldmap.FieldCode]fieldmap.FieldID) {
	keys := make([]fieldmap.FieldCode, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	slices.Sort(keys)
	for _, code := range keys {
		id := codes[code]
		if id.IsSentinel() {
			fmt.Printf("  %-24s (critical)\n", code)
			continue
		}
		fmt.Printf("  %-24s %s\n", code, id)
	}
}

// Package main imports one contact CSV file as a new ThruText group.
//
// Field mapping setup runs first. The file is refused if its header does not
// map or if the same content already produced a group, unless -force is set.
//
// Usage:
//
//	go run ./cmd/groupimport -group-name "Volunteers" contacts.csv
//	go run ./cmd/groupimport -group-name "Volunteers 2" -force contacts.csv
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
	"github.com/GetThruTools/ThruText-API/internal/service"
)

var (
	groupName = flag.String("group-name", "", "Name of the group to create (required)")
	countryID = flag.String("country", "", "Country for phone numbers (default US)")
	force     = flag.Bool("force", false, "Import even if the same content already imported or is being imported")
)

func main() {
	injector := di.NewContainer()
	defer injector.Shutdown() //nolint:errcheck // Exit path

	log := do.MustInvoke[*logger.Logger](injector)
	if flag.NArg() != 1 || *groupName == "" {
		fmt.Fprintln(os.Stderr, "usage: groupimport -group-name NAME [-force] FILE.csv")
		os.Exit(2)
	}
	path := flag.Arg(0)

	fields := do.MustInvoke[*providers.FieldServiceHandle](injector)
	imports := do.MustInvoke[*service.ImportService](injector)
	client := do.MustInvoke[*providers.ThruTextClientHandle](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := fields.Reload(ctx, false); err != nil {
		log.Fatal("Field mapping setup failed", "error", err)
	}

	result, err := imports.ImportFile(ctx, path, service.ImportRequest{
		GroupName: *groupName,
		CountryID: *countryID,
		Force:     *force,
	})
	if result != nil && result.Mapping != nil {
		for _, s := range result.Mapping.Suggestions {
			if len(s.Suggestions) > 0 {
				fmt.Printf("  column %d %q is not mapped, closest synonym %q (%s)\n",
					s.Column, s.Header, s.Suggestions[0].Synonym, s.Suggestions[0].Code)
			}
		}
	}
	if err != nil {
		log.Fatal("Import failed", "file", path, "error", err)
	}

	fmt.Printf("Created group %s (%d contacts)\n", result.Group.Name, result.Import.Rows)
	fmt.Println(client.DisplayURL("groups", result.Group.ID))
}

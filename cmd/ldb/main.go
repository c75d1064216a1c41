package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"ldb/internal/config"
	"ldb/internal/erp"
	"ldb/internal/httpapi"
	"ldb/internal/productinfo"
	"ldb/internal/refdata"
	"ldb/internal/search"
	"ldb/internal/storage"
	"ldb/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ldb").Logger()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		engine := search.NewEngine(db, cfg.SearchDefaultLimit, cfg.ClarifyThreshold)
		display := productinfo.NewDisplay(db, productinfo.FullOptions())
		server := httpapi.NewServer(engine, display, logger)

		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info().Str("addr", addr).Msg("api listening")
		must(http.ListenAndServe(addr, server.Router()))
	case "catalog:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		prune := fs.Bool("prune", cfg.SyncPruneMissing, "remove products absent from the feed")
		_ = fs.Parse(os.Args[2:])

		must(cfg.Require("ERP_API_BASE_URL", cfg.ERPAPIBaseURL))
		must(cfg.Require("ERP_API_TOKEN", cfg.ERPAPIToken))

		importer := erp.NewImporter(db, erp.NewClient(cfg), logger, *prune)
		stats, err := importer.Run(context.Background())
		must(err)
		fmt.Printf("sync complete products=%d skipped=%d characteristics=%d pruned=%d\n",
			stats.Products, stats.Skipped, stats.Characteristics, stats.Pruned)
	case "refdata:update":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sourceName := fs.String("source", "sheets", "sheets|xlsx")
		file := fs.String("file", cfg.RefDataXLSXPath, "workbook path for --source=xlsx")
		_ = fs.Parse(os.Args[2:])

		source, err := makeRefSource(cfg, *sourceName, *file)
		must(err)

		report, err := refdata.NewUpdater(source, db, cfg, logger).Run(context.Background())
		must(err)
		fmt.Printf("refdata update complete classes=%d/%d characteristics=%d/%d\n",
			report.ClassesUpdated, report.ClassesUpdated+report.ClassesUnmatched,
			report.CharacteristicsUpdated, report.CharacteristicsUpdated+report.CharacteristicsUnmatched)
	case "product:lookup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		article := fs.String("article", "", "product article")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*article) == "" {
			must(fmt.Errorf("--article is required"))
		}

		display := productinfo.NewDisplay(db, productinfo.FullOptions())
		card, err := display.Card(context.Background(), *article)
		must(err)
		blob, err := json.MarshalIndent(card, "", "  ")
		must(err)
		fmt.Println(string(blob))
	case "sync:watch":
		must(cfg.Require("ERP_API_BASE_URL", cfg.ERPAPIBaseURL))
		must(cfg.Require("ERP_API_TOKEN", cfg.ERPAPIToken))

		importer := erp.NewImporter(db, erp.NewClient(cfg), logger, cfg.SyncPruneMissing)
		syncJob := func(ctx context.Context) error {
			_, err := importer.Run(ctx)
			return err
		}

		var refreshJob func(ctx context.Context) error
		if cfg.SpreadsheetID != "" || cfg.RefDataXLSXPath != "" {
			sourceName := "sheets"
			if cfg.SpreadsheetID == "" {
				sourceName = "xlsx"
			}
			source, err := makeRefSource(cfg, sourceName, cfg.RefDataXLSXPath)
			must(err)
			updater := refdata.NewUpdater(source, db, cfg, logger)
			refreshJob = func(ctx context.Context) error {
				_, err := updater.Run(ctx)
				return err
			}
		}

		svc := watcher.NewService(syncJob, refreshJob, cfg, logger)
		must(svc.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeRefSource(cfg config.Config, source, file string) (refdata.Source, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "sheets":
		return refdata.NewSheetsSource(context.Background(), cfg)
	case "xlsx":
		if strings.TrimSpace(file) == "" {
			return nil, fmt.Errorf("--file is required for --source=xlsx")
		}
		return refdata.NewXLSXSource(file), nil
	default:
		return nil, fmt.Errorf("unsupported refdata source: %s", source)
	}
}

func usage() {
	fmt.Println("usage: ldb <command>")
	fmt.Println("commands:")
	fmt.Println("  serve")
	fmt.Println("  catalog:sync [--prune=true]")
	fmt.Println("  refdata:update [--source=sheets|xlsx] [--file=./refdata.xlsx]")
	fmt.Println("  product:lookup --article=01-0023")
	fmt.Println("  sync:watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

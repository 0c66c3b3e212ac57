package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"quantbot/internal/config"
	"quantbot/internal/domain"
	"quantbot/internal/report"
	"quantbot/internal/store"
	"quantbot/pkg/quantbot"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quantbot-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version       Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  positions     Show open positions of a running trader\n")
		fmt.Fprintf(os.Stderr, "  ranking       Show the trader's latest ranking\n")
		fmt.Fprintf(os.Stderr, "  intents       Show simulated order and exit intents\n")
		fmt.Fprintf(os.Stderr, "  runs [N]      List the last N recorded backtest runs\n")
		fmt.Fprintf(os.Stderr, "  run ID        Show the results of one backtest run\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "version" {
		fmt.Printf("quantbot-cli %s\n", version)
		return
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := quantbot.NewClient("http://" + cfg.Server.Addr())

	switch cmd {
	case "positions":
		positions, err := client.GetPositions(ctx)
		if err != nil {
			log.Fatalf("positions: %v", err)
		}
		out := make([]domain.Position, len(positions))
		for i, p := range positions {
			out[i] = domain.Position(p)
		}
		report.RenderPositions(os.Stdout, out)

	case "ranking":
		ranking, err := client.GetRanking(ctx)
		if err != nil {
			log.Fatalf("ranking: %v", err)
		}
		scores := make([]domain.SymbolScore, len(ranking.Scores))
		for i, s := range ranking.Scores {
			scores[i] = domain.SymbolScore(s)
		}
		report.RenderRanking(os.Stdout, scores)
		if !ranking.UpdatedAt.IsZero() {
			fmt.Printf("updated %s\n", ranking.UpdatedAt.Local().Format(time.DateTime))
		}

	case "intents":
		intents, err := client.GetIntents(ctx)
		if err != nil {
			log.Fatalf("intents: %v", err)
		}
		for _, o := range intents.Orders {
			fmt.Printf("%s  %-4s %-12s qty=%.8f price=%s\n",
				o.CreatedAt.Local().Format(time.DateTime), o.Side, o.Symbol, o.Qty, report.FormatPrice(o.Price))
		}
		for _, e := range intents.Exits {
			fmt.Printf("%s  exit %-12s qty=%.8f target=%s stop=%s\n",
				e.CreatedAt.Local().Format(time.DateTime), e.Symbol, e.Qty,
				report.FormatPrice(e.TargetPrice), report.FormatPrice(e.StopPrice))
		}
		fmt.Printf("%d orders, %d exits\n", len(intents.Orders), len(intents.Exits))

	case "runs":
		limit := 20
		if len(os.Args) > 2 {
			if limit, err = strconv.Atoi(os.Args[2]); err != nil {
				log.Fatalf("invalid run count %q", os.Args[2])
			}
		}
		db := openRuns(cfg)
		defer db.Close()
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			log.Fatalf("listing runs: %v", err)
		}
		report.RenderRuns(os.Stdout, runs)

	case "run":
		if len(os.Args) < 3 {
			flag.Usage()
			os.Exit(1)
		}
		id, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("invalid run id %q", os.Args[2])
		}
		db := openRuns(cfg)
		defer db.Close()
		results, err := db.RunResults(ctx, id)
		if err != nil {
			log.Fatalf("run %d: %v", id, err)
		}
		report.RenderBacktest(os.Stdout, results)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
}

func openRuns(cfg *config.Config) *store.SQLiteStore {
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run store: %v", err)
	}
	return db
}

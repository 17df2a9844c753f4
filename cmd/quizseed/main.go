// Command quizseed loads synthetic submissions into the configured store and
// reports throughput and the resulting stats.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/config"
	"github.com/Nomankaif/debtprotection-quiz/internal/db"
	"github.com/Nomankaif/debtprotection-quiz/internal/repository"
	"github.com/Nomankaif/debtprotection-quiz/internal/seed"
	"github.com/Nomankaif/debtprotection-quiz/internal/service"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

func main() {
	total := flag.Int("n", 10000, "number of submissions to insert")
	rngSeed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if err := run(*total, *rngSeed); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(total int, rngSeed int64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	fmt.Printf("Store:       %s\n", cfg.Store)
	fmt.Printf("Submissions: %d\n\n", total)

	gen := seed.NewGenerator(rngSeed, zipcode.Default(), time.Now().Add(-time.Duration(total)*time.Second))
	start := time.Now()
	lastReport := start
	for i := 0; i < total; i++ {
		sub := gen.Next(i)
		if err := validation.Submission(sub, validation.Options{StrictConsent: true}); err != nil {
			return fmt.Errorf("generated submission %d: %w", i, err)
		}
		if _, err := store.Create(ctx, sub); err != nil {
			return fmt.Errorf("insert at %d: %w", i, err)
		}
		if done := i + 1; time.Since(lastReport) >= 3*time.Second || done == total {
			elapsed := time.Since(start)
			fmt.Printf("  %7d / %d  (%5.1f%%)  %8.0f docs/s  %s\n",
				done, total, float64(done)/float64(total)*100, float64(done)/elapsed.Seconds(), elapsed.Round(time.Millisecond))
			lastReport = time.Now()
		}
	}

	st, err := service.NewSubmissionService(store, nil, validation.Options{}, nil).Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal stored: %d\n", st.Total)
	for _, b := range st.Buckets {
		fmt.Printf("  %-22s %d\n", b.Label, b.Count)
	}
	for code, n := range st.Countries {
		fmt.Printf("  %-22s %d\n", code, n)
	}
	return nil
}

func open(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Store == config.StoreSQLite {
		return repository.OpenSQLite(cfg.SQLitePath)
	}
	pool, err := db.NewPool(ctx, cfg.OxiDBAddr, 1)
	if err != nil {
		return nil, err
	}
	return repository.NewSubmissionRepo(pool), nil
}

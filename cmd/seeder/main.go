// cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/unclebandit/audience-campaigns/internal/config"
	"github.com/unclebandit/audience-campaigns/internal/db"
	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	seedDir  string
	generate int
)

var rootCmd = &cobra.Command{
	Use:          "seeder",
	Short:        "Apply SQL fixtures and optionally generate random customers",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generate < 0 {
			return fmt.Errorf("--generate must not be negative, got %d", generate)
		}
		if err := run(cmd.Context(), seedDir, generate); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database seeding completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&seedDir, "dir", "seed", "directory of *.sql fixtures to apply")
	rootCmd.Flags().IntVar(&generate, "generate", 0, "additionally create this many random customers")
}

func run(ctx context.Context, dir string, generate int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg)
	if err := id.Init(cfg.NodeID); err != nil {
		return err
	}

	conn, err := db.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", file, err)
		}
		log.Info("seeded", "file", file)
	}

	customers := &repository.CustomerRepository{DB: conn}
	for i := 0; i < generate; i++ {
		if err := customers.Create(ctx, randomCustomer(i)); err != nil {
			return fmt.Errorf("generate customer %d: %w", i, err)
		}
	}
	if generate > 0 {
		log.Info("generated customers", "count", generate)
	}
	return nil
}

var firstNames = []string{"Achieng", "Baraka", "Chege", "Daudi", "Eunice", "Faith", "Gitau", "Halima", "Imani", "Jabari"}

func randomCustomer(i int) *model.Customer {
	name := firstNames[rand.IntN(len(firstNames))]
	c := &model.Customer{
		Name:       fmt.Sprintf("%s %d", name, i),
		Email:      fmt.Sprintf("customer%d@example.com", i),
		Phone:      fmt.Sprintf("+2547%08d", rand.IntN(100_000_000)),
		TotalSpend: float64(rand.IntN(5_000_000)) / 100,
		Visits:     rand.IntN(60),
	}
	if c.Visits > 0 {
		lv := time.Now().UTC().AddDate(0, 0, -rand.IntN(365)).Truncate(time.Second)
		c.LastVisit = &lv
	}
	return c
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/eshop-backend/internal/products"
	"github.com/angelmondragon/eshop-backend/pkg/config"
	"github.com/angelmondragon/eshop-backend/pkg/db"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "stock-audit"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "report", "audit command: report|fix-negative")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "stock-audit",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	auditor, err := products.NewAuditor(products.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "auditor", err)

	switch *cmd {
	case "report":
		report, err := auditor.Report(ctx)
		if err != nil {
			logg.Error(ctx, "stock report failed", err)
			os.Exit(1)
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				logg.Error(ctx, "encode report", err)
				os.Exit(1)
			}
			return
		}
		printReport(os.Stdout, report)

	case "fix-negative":
		n, err := auditor.FixNegative(ctx)
		if err != nil {
			logg.Error(ctx, "fix negative stock failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "products_fixed", n), "negative stock reset")
		fmt.Printf("reset %d product(s) with negative stock to 0\n", n)

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func printReport(out io.Writer, report *products.StockReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tQUANTITY\tSOLD\tPRODUCT\tID")
	for _, line := range report.Lines {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", line.Status.Label(), line.Quantity, line.Sold, line.Title, line.ProductID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d product(s): %d negative, %d out of stock, %d low\n",
		report.Total, report.Negative, report.OutOfStock, report.Low)
	if report.Negative > 0 {
		fmt.Fprintln(out, "run with -cmd=fix-negative to reset negative quantities")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

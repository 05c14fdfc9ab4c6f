package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bookable/internal/config"
	"bookable/internal/database"
	"bookable/internal/export"
	"bookable/internal/logging"
	"bookable/internal/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		fromFlag   = flag.String("from", "", "first date, YYYY-MM-DD")
		toFlag     = flag.String("to", "", "last date, YYYY-MM-DD (defaults to from)")
	)
	flag.Parse()

	if *fromFlag == "" {
		return fmt.Errorf("-from is required")
	}
	from, err := time.Parse(models.DateFormat, *fromFlag)
	if err != nil {
		return fmt.Errorf("parse -from: %w", err)
	}
	to := from
	if *toFlag != "" {
		if to, err = time.Parse(models.DateFormat, *toFlag); err != nil {
			return fmt.Errorf("parse -to: %w", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger = logging.Component(logger, "export")

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	bookings, err := db.ListBookings(ctx, models.BookingFilter{From: from, To: to})
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	services, err := db.ListServices(ctx, false)
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}

	path, err := export.SaveBookings(cfg.Exports.Path, export.Report{From: from, To: to, Bookings: bookings, Services: services})
	if err != nil {
		return err
	}

	logger.Info().Str("path", path).Int("bookings", len(bookings)).Msg("export written")
	fmt.Println(path)
	return nil
}

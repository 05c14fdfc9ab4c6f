package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"bookable/internal/database"
	"bookable/internal/domain"
	"bookable/internal/models"
	"bookable/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Services []models.ServiceDefinition `yaml:"services"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		dbPath      = flag.String("db", "./data/bookable.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var cfg catalogFile
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if len(cfg.Services) == 0 {
		return fmt.Errorf("no services in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for i := range cfg.Services {
		svc := cfg.Services[i]
		if err = service.ValidateService(&svc); err != nil {
			return fmt.Errorf("service %q: %w", svc.Name, err)
		}
		existing, err := db.GetServiceByName(ctx, svc.Name)
		if err == nil {
			svc.ID = existing.ID
			if err = db.UpdateService(ctx, &svc); err != nil {
				return fmt.Errorf("update %s: %w", svc.Name, err)
			}
			updated++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get %s: %w", svc.Name, err)
		}
		if err = db.CreateService(ctx, &svc); err != nil {
			return fmt.Errorf("create %s: %w", svc.Name, err)
		}
		created++
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}

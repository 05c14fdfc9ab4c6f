package config

import (
	"os"
	"path/filepath"
	"testing"

	"bookable/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("BOOKABLE_DB_PATH", "test.db")

	yamlContent := `
app:
  name: "bookable-test"
database:
  path: "${BOOKABLE_DB_PATH}"
scheduling:
  timezone: "Europe/Berlin"
  slot_generation: "buffered"
api:
  enabled: true
  auth:
    api_keys:
      - key: "k1"
        name: "shop"
        permissions: ["read:availability"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected env-expanded database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Scheduling.SlotGeneration != models.SlotGenerationBuffered {
		t.Errorf("expected buffered slot generation, got %s", cfg.Scheduling.SlotGeneration)
	}
	if !cfg.API.HTTP.Enabled || cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected http enabled on 8080 by default, got %v/%d", cfg.API.HTTP.Enabled, cfg.API.HTTP.Port)
	}
	if cfg.Cache.TTLSeconds != models.DefaultSlotCacheTTL {
		t.Errorf("expected default cache ttl, got %d", cfg.Cache.TTLSeconds)
	}
	if len(cfg.API.Auth.APIKeys) != 1 || cfg.API.Auth.APIKeys[0].Name != "shop" {
		t.Errorf("expected 1 api key for shop")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		c := Config{Database: DatabaseConfig{Path: "path"}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Scheduling.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "unknown slot generation",
			mutate:  func(c *Config) { c.Scheduling.SlotGeneration = "v3" },
			wantErr: true,
		},
		{
			name: "port clash",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.HTTP.Enabled = true
				c.API.GRPC.Enabled = true
				c.API.GRPC.Port = c.API.HTTP.Port
			},
			wantErr: true,
		},
		{
			name: "duplicate api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: "a", Name: "one"}, {Key: "a", Name: "two"}}
			},
			wantErr: true,
		},
		{
			name: "empty api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: " ", Name: "blank"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchedulingLocation(t *testing.T) {
	loc, err := SchedulingConfig{}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("expected UTC default, got %s", loc)
	}
}

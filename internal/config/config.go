package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string `json:"port"`
	ConfigDir   string `json:"configDir"` // YAML с формами и seed-данными
	DBURL       string `json:"dbUrl"`     // пусто — in-memory
	AutoMigrate bool   `json:"autoMigrate"`
	PageSize    int    `json:"pageSize"`

	LogLevel string `json:"logLevel"`
	LogDev   bool   `json:"logDev"`
}

const DefaultPath = "formdeck.json"

func def() Config {
	return Config{
		Port:        "8080",
		ConfigDir:   "config/forms",
		DBURL:       "",
		AutoMigrate: false,
		PageSize:    7,
		LogLevel:    "info",
		LogDev:      false,
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func parseBool(v string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// fromFile: defaults, затем JSON (если файл существует), затем ENV.
func fromFile(jsonPath string) (Config, error) {
	cfg := def()
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		c2, err := loadJSON(jsonPath)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", jsonPath, err)
		}
		cfg = c2
	}

	cfg.Port = getenv("FORMDECK_PORT", cfg.Port)
	cfg.ConfigDir = getenv("FORMDECK_CONFIG_DIR", cfg.ConfigDir)
	cfg.DBURL = getenv("FORMDECK_DB_URL", cfg.DBURL)
	cfg.AutoMigrate = getenvBool("FORMDECK_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.PageSize = getenvInt("FORMDECK_PAGE_SIZE", cfg.PageSize)
	cfg.LogLevel = getenv("FORMDECK_LOG_LEVEL", cfg.LogLevel)
	cfg.LogDev = getenvBool("FORMDECK_LOG_DEV", cfg.LogDev)
	return cfg, nil
}

// Load собирает конфигурацию: defaults → JSON → ENV → флаги из args.
// Флаг -config меняет JSON-файл; остальные флаги всё равно применяются поверх.
func Load(jsonPath string, args []string) (Config, error) {
	fs := flag.NewFlagSet("formdeck", flag.ContinueOnError)
	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", "", "HTTP port")
	dir := fs.String("config-dir", "", "Path to YAML form configuration")
	db := fs.String("db", "", "Postgres URL (empty = in-memory)")
	auto := fs.String("auto-migrate", "", "Create metadata tables on start (true/false)")
	pageSize := fs.Int("page-size", 0, "Default table page size")
	level := fs.String("log-level", "", "Log level (debug/info/warn/error)")
	dev := fs.String("log-dev", "", "Human-readable development logs (true/false)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := fromFile(*configPath)
	if err != nil {
		return cfg, err
	}

	// Flags overrides: только явно заданные
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["port"] {
		cfg.Port = strings.TrimSpace(*port)
	}
	if set["config-dir"] {
		cfg.ConfigDir = strings.TrimSpace(*dir)
	}
	if set["db"] {
		cfg.DBURL = strings.TrimSpace(*db)
	}
	if set["auto-migrate"] {
		b, ok := parseBool(*auto)
		if !ok {
			return cfg, fmt.Errorf("auto-migrate: %q is not a boolean", *auto)
		}
		cfg.AutoMigrate = b
	}
	if set["page-size"] {
		cfg.PageSize = *pageSize
	}
	if set["log-level"] {
		cfg.LogLevel = strings.TrimSpace(*level)
	}
	if set["log-dev"] {
		b, ok := parseBool(*dev)
		if !ok {
			return cfg, fmt.Errorf("log-dev: %q is not a boolean", *dev)
		}
		cfg.LogDev = b
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = def().PageSize
	}
	return cfg, nil
}

// Addr — адрес для http.Server.
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

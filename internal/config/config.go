package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"port"`
	DBURL           string        `mapstructure:"dbUrl"` // пусто — всё в памяти
	Schema          string        `mapstructure:"schema"`
	EntityTypesFile string        `mapstructure:"entityTypesFile"`
	DSLDir          string        `mapstructure:"dslDir"`
	LogLevel        string        `mapstructure:"logLevel"`
	LogFormat       string        `mapstructure:"logFormat"` // text | json
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
}

func def() Config {
	return Config{
		Port:            "8080",
		Schema:          "hive",
		EntityTypesFile: "reference/entity_types.yaml",
		DSLDir:          "dsl",
		LogLevel:        "info",
		LogFormat:       "text",
		RequestTimeout:  30 * time.Second,
		AutoMigrate:     true,
	}
}

type binding struct {
	key  string
	flag string
	env  []string
	help string
}

var bindings = []binding{
	{"port", "port", []string{"HIVE_PORT"}, "HTTP port"},
	{"dbUrl", "db", []string{"HIVE_DB_URL"}, "Postgres URL (empty = in-memory)"},
	{"schema", "schema", []string{"HIVE_SCHEMA", "STORAGE_SCHEMA"}, "Postgres schema for entity tables"},
	{"entityTypesFile", "entity-types", []string{"HIVE_ENTITY_TYPES_FILE"}, "Entity types YAML file or directory"},
	{"dslDir", "dsl", []string{"HIVE_DSL_DIR"}, "Path to DSL directory"},
	{"logLevel", "log-level", []string{"HIVE_LOG_LEVEL"}, "Log level (debug/info/warn/error)"},
	{"logFormat", "log-format", []string{"HIVE_LOG_FORMAT"}, "Log format (text/json)"},
	{"requestTimeout", "request-timeout", []string{"HIVE_REQUEST_TIMEOUT"}, "Per-request timeout"},
	{"autoMigrate", "auto-migrate", []string{"HIVE_AUTO_MIGRATE"}, "Migrate metadata tables on start"},
}

// RegisterFlags добавляет флаги конфигурации в набор команды.
func RegisterFlags(flags *pflag.FlagSet) {
	d := def()
	flags.String("config", "", "Path to config file (json/yaml)")
	flags.String("port", d.Port, bindings[0].help)
	flags.String("db", d.DBURL, bindings[1].help)
	flags.String("schema", d.Schema, bindings[2].help)
	flags.String("entity-types", d.EntityTypesFile, bindings[3].help)
	flags.String("dsl", d.DSLDir, bindings[4].help)
	flags.String("log-level", d.LogLevel, bindings[5].help)
	flags.String("log-format", d.LogFormat, bindings[6].help)
	flags.Duration("request-timeout", d.RequestTimeout, bindings[7].help)
	flags.Bool("auto-migrate", d.AutoMigrate, bindings[8].help)
}

// Load: значения по умолчанию → файл → ENV → флаги.
// path — файл конфигурации; флаг --config его переопределяет. Отсутствующий файл не ошибка.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	d := def()
	v.SetDefault("port", d.Port)
	v.SetDefault("dbUrl", d.DBURL)
	v.SetDefault("schema", d.Schema)
	v.SetDefault("entityTypesFile", d.EntityTypesFile)
	v.SetDefault("dslDir", d.DSLDir)
	v.SetDefault("logLevel", d.LogLevel)
	v.SetDefault("logFormat", d.LogFormat)
	v.SetDefault("requestTimeout", d.RequestTimeout)
	v.SetDefault("autoMigrate", d.AutoMigrate)

	for _, b := range bindings {
		if err := v.BindEnv(append([]string{b.key}, b.env...)...); err != nil {
			return Config{}, err
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(b.flag); f != nil {
			if err := v.BindPFlag(b.key, f); err != nil {
				return Config{}, err
			}
		}
	}

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.DBURL = strings.TrimSpace(cfg.DBURL)
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if cfg.Port == "" {
		return Config{}, errors.New("port must not be empty")
	}
	if cfg.Schema == "" {
		cfg.Schema = d.Schema
	}
	return cfg, nil
}

// Addr — адрес для http.Server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

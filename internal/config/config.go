package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	Loader LoaderConfig `yaml:"loader"`
	Search SearchConfig `yaml:"search"`
}

// DBType represents database type
type DBType string

const (
	DBTypePostgreSQL DBType = "postgres"
	DBTypeMemory     DBType = "memory"
	DBTypeSQLite     DBType = "sqlite"
)

// DBConfig holds database configuration
type DBConfig struct {
	Type     DBType `yaml:"type"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// LoaderConfig holds settings for the GeoNames import
type LoaderConfig struct {
	DataDir           string   `yaml:"data_dir"`
	CitiesFile        string   `yaml:"cities_file"`
	AltNamesFile      string   `yaml:"alternate_names_file"`
	PostcodeFiles     []string `yaml:"postcode_files"`
	LocalityBatchSize int      `yaml:"locality_batch_size"`
	AltNameBatchSize  int      `yaml:"alternate_name_batch_size"`
	PostcodeBatchSize int      `yaml:"postcode_batch_size"`
	// Postcodes of these countries are stored without spaces.
	SpacelessPostcodeCountries []string `yaml:"spaceless_postcode_countries"`
	AutoLoad                   bool     `yaml:"auto_load"`
}

// SearchStrategy selects the precise phase of the proximity search
type SearchStrategy string

const (
	SearchStrategyAuto     SearchStrategy = "auto"
	SearchStrategyGeometry SearchStrategy = "geometry"
	SearchStrategyCompute  SearchStrategy = "compute"
	SearchStrategySQL      SearchStrategy = "sql"
)

// SearchConfig holds proximity search settings
type SearchConfig struct {
	Strategy     SearchStrategy `yaml:"strategy"`
	DefaultLimit int            `yaml:"default_limit"`
	MaxLimit     int            `yaml:"max_limit"`
}

// DSN returns the database connection string
func (c DBConfig) DSN() string {
	switch c.Type {
	case DBTypeMemory:
		// SQLite in-memory database
		if c.Name != "" && c.Name != "geonames" {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared", c.Name)
		}
		return "file::memory:?cache=shared"
	case DBTypeSQLite:
		name := c.Name
		if name == "" {
			name = "geonames.db"
		}
		return fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", name)
	}
	// PostgreSQL connection string
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// IsMemory returns true if using in-memory database
func (c DBConfig) IsMemory() bool {
	return c.Type == DBTypeMemory
}

// IsSQLite returns true for both in-memory and file backed SQLite
func (c DBConfig) IsSQLite() bool {
	return c.Type == DBTypeMemory || c.Type == DBTypeSQLite
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Type:     DBTypeMemory,
			Host:     "localhost",
			Port:     "5432",
			User:     "geonames",
			Password: "geonames_password",
			Name:     "geonames",
			SSLMode:  "disable",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Loader: LoaderConfig{
			DataDir:                    "data",
			CitiesFile:                 "cities500.txt",
			AltNamesFile:               "alternateNames.txt",
			PostcodeFiles:              []string{"allCountries.txt", "GB_full.txt"},
			LocalityBatchSize:          10000,
			AltNameBatchSize:           10000,
			PostcodeBatchSize:          20000,
			SpacelessPostcodeCountries: []string{"GB"},
			AutoLoad:                   true,
		},
		Search: SearchConfig{
			Strategy:     SearchStrategyAuto,
			DefaultLimit: 50,
			MaxLimit:     1000,
		},
	}
}

// Load loads configuration from an optional YAML file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	config.DB = DBConfig{
		Type:     DBType(getEnv("DB_TYPE", string(config.DB.Type))),
		Host:     getEnv("DB_HOST", config.DB.Host),
		Port:     getEnv("DB_PORT", config.DB.Port),
		User:     getEnv("DB_USER", config.DB.User),
		Password: getEnv("DB_PASSWORD", config.DB.Password),
		Name:     getEnv("DB_NAME", config.DB.Name),
		SSLMode:  getEnv("DB_SSLMODE", config.DB.SSLMode),
	}
	switch config.DB.Type {
	case DBTypePostgreSQL, DBTypeMemory, DBTypeSQLite:
	default:
		config.DB.Type = DBTypeMemory
	}

	config.Server.Port = getEnv("APP_PORT", config.Server.Port)

	l := &config.Loader
	l.DataDir = getEnv("LOADER_DATA_DIR", l.DataDir)
	l.CitiesFile = getEnv("LOADER_CITIES_FILE", l.CitiesFile)
	l.AltNamesFile = getEnv("LOADER_ALTERNATE_NAMES_FILE", l.AltNamesFile)
	l.PostcodeFiles = getEnvAsSlice("LOADER_POSTCODE_FILES", l.PostcodeFiles)
	l.LocalityBatchSize = getEnvAsInt("LOADER_LOCALITY_BATCH_SIZE", l.LocalityBatchSize)
	l.AltNameBatchSize = getEnvAsInt("LOADER_ALTERNATE_NAME_BATCH_SIZE", l.AltNameBatchSize)
	l.PostcodeBatchSize = getEnvAsInt("LOADER_POSTCODE_BATCH_SIZE", l.PostcodeBatchSize)
	l.SpacelessPostcodeCountries = getEnvAsSlice("LOADER_SPACELESS_POSTCODE_COUNTRIES", l.SpacelessPostcodeCountries)
	l.AutoLoad = getEnvAsBool("LOADER_AUTO_LOAD", l.AutoLoad)

	s := &config.Search
	s.Strategy = SearchStrategy(getEnv("SEARCH_STRATEGY", string(s.Strategy)))
	switch s.Strategy {
	case SearchStrategyAuto, SearchStrategyGeometry, SearchStrategyCompute, SearchStrategySQL:
	default:
		s.Strategy = SearchStrategyAuto
	}
	s.DefaultLimit = getEnvAsInt("SEARCH_DEFAULT_LIMIT", s.DefaultLimit)
	s.MaxLimit = getEnvAsInt("SEARCH_MAX_LIMIT", s.MaxLimit)

	return config, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parsing config %q: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

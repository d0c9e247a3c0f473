package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by the tools (AGM_INFLUX_TOKEN, ...)
const EnvPrefix = "AGM"

// Config represents the complete tool configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Influx    InfluxConfig    `yaml:"influx" envconfig:"INFLUX"`
	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Devices   DevicesConfig   `yaml:"devices" ignored:"true"`
	QA        QAConfig        `yaml:"qa" envconfig:"QA"`
	Archive   ArchiveConfig   `yaml:"archive" envconfig:"ARCHIVE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig controls tracing and the metrics textfile written at exit
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	// Tracing is one of "none", "stdout" or "file"
	Tracing     string `yaml:"tracing" envconfig:"TRACING" validate:"oneof=none stdout file"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=Tracing file"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// PathsConfig contains file system locations. Empty values are derived from OperationsRoot.
type PathsConfig struct {
	OperationsRoot string `yaml:"operations_root" envconfig:"OPERATIONS_ROOT"`
	GaslogsDir     string `yaml:"gaslogs_dir" envconfig:"GASLOGS_DIR"`
	GaslogsNewDir  string `yaml:"gaslogs_new_dir" envconfig:"GASLOGS_NEW_DIR"`
	SoftwareDir    string `yaml:"software_dir" envconfig:"SOFTWARE_DIR"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// InfluxConfig contains the InfluxDB connection and write options
type InfluxConfig struct {
	URL   string `yaml:"url" envconfig:"URL" validate:"required,url"`
	Token string `yaml:"token" envconfig:"TOKEN"`
	Org   string `yaml:"org" envconfig:"ORG" validate:"required"`
	// Bucket is used for every site when set; otherwise each site writes to a bucket named after it
	Bucket string `yaml:"bucket" envconfig:"BUCKET"`

	BatchSize        uint          `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1"`
	FlushInterval    time.Duration `yaml:"flush_interval" envconfig:"FLUSH_INTERVAL" validate:"gt=0"`
	RetryInterval    time.Duration `yaml:"retry_interval" envconfig:"RETRY_INTERVAL" validate:"gt=0"`
	MaxRetries       uint          `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	MaxRetryInterval time.Duration `yaml:"max_retry_interval" envconfig:"MAX_RETRY_INTERVAL" validate:"gtefield=RetryInterval"`
	ExponentialBase  uint          `yaml:"exponential_base" envconfig:"EXPONENTIAL_BASE" validate:"min=1"`
	JitterInterval   time.Duration `yaml:"jitter_interval" envconfig:"JITTER_INTERVAL" validate:"gte=0"`
}

// HTTPConfig controls how data stations are contacted
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	Concurrency       int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// DeviceProfile selects the columns belonging to one piece of equipment
type DeviceProfile struct {
	Name     string   `yaml:"name" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"min=1"`
	// Sites limits the profile to the listed sites; empty means every site
	Sites []string `yaml:"sites"`
}

// AppliesTo reports whether the profile is used for site
func (p DeviceProfile) AppliesTo(site string) bool {
	if len(p.Sites) == 0 {
		return true
	}
	for _, s := range p.Sites {
		if s == site {
			return true
		}
	}
	return false
}

// DevicesConfig describes how a merged site log is split into device tables
type DevicesConfig struct {
	Profiles []DeviceProfile `yaml:"profiles" validate:"min=1,dive"`
	// Renames maps site -> old column name -> new column name
	Renames         map[string]map[string]string `yaml:"renames"`
	TotalizerSuffix string                       `yaml:"totalizer_suffix" validate:"required"`
}

// QAConfig contains quick QA spreadsheet settings
type QAConfig struct {
	FarmNamesFile string   `yaml:"farm_names_file" envconfig:"FARM_NAMES_FILE"`
	CulledFarms   []string `yaml:"culled_farms" envconfig:"CULLED_FARMS"`
	DateColumn    string   `yaml:"date_column" envconfig:"DATE_COLUMN"`
}

// ArchiveConfig contains the optional object-store destination for merged logs
type ArchiveConfig struct {
	Bucket string `yaml:"bucket" envconfig:"BUCKET"`
	Region string `yaml:"region" envconfig:"REGION"`
	Prefix string `yaml:"prefix" envconfig:"PREFIX"`
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
}

// Load loads configuration from defaults, the config file, .env and environment variables.
// Environment variables take precedence over the config file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set overwrite the file values
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile is like Load but reads an explicit config file
func LoadFile(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadDotEnv loads .env from the working directory when present. Existing variables win.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Always JSON, matching what the log shippers expect
	c.Logging.Format = "json"
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/agmethane.log"
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/agmethane.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "ag-methane-tools",
			Tracing:     "none",
		},
		Influx: InfluxConfig{
			URL:              "http://localhost:8086",
			Org:              "Ag Methane",
			BatchSize:        500,
			FlushInterval:    10 * time.Second,
			RetryInterval:    5 * time.Second,
			MaxRetries:       5,
			MaxRetryInterval: 30 * time.Second,
			ExponentialBase:  2,
			JitterInterval:   2 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:           60 * time.Second,
			RequestsPerSecond: 4,
			Burst:             1,
			Concurrency:       2,
			UserAgent:         "ag-methane-tools",
		},
		Devices: DefaultDevices(),
		QA: QAConfig{
			FarmNamesFile: "Farm_Names.txt",
			CulledFarms:   []string{"fourhills", "gallo", "Verweyhanford"},
			DateColumn:    "Date",
		},
		Archive: ArchiveConfig{
			Region: "us-west-2",
			Prefix: "gaslogs",
		},
	}
}

// DefaultDevices returns the engine/flare/boiler split used for the dairy digesters
func DefaultDevices() DevicesConfig {
	return DevicesConfig{
		Profiles: []DeviceProfile{
			{Name: "Engine", Keywords: []string{"Timestamp", "Tag", "Engine", "engine", "G1", "G2", "G3", "Gen"}},
			{Name: "Flare", Keywords: []string{"Timestamp", "Tag", "Flare", "flare", "F1", "Thermocouple"}},
			{Name: "Boiler", Keywords: []string{"Timestamp", "Tag", "Boiler"}, Sites: []string{"Four Hills"}},
		},
		Renames: map[string]map[string]string{
			"Hanford": {
				"KWH Output":   "Engine 1 KWH Output",
				"KWH Output.1": "Engine 2 KWH Output",
				"KWH Output.2": "Engine 3 KWH Output",
			},
		},
		TotalizerSuffix: "_SCF_15min",
	}
}

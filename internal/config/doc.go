// Package config provides configuration loading for the Ag Methane operator tools.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. .env file in the working directory (does not override set variables)
//	3. YAML configuration file (config.yaml, configs/config.yaml or AGM_CONFIG_FILE)
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the AGM_ prefix:
//
//	AGM_INFLUX_TOKEN=...
//	AGM_INFLUX_BUCKET="Gas Flow Data"
//	AGM_LOGGING_LEVEL=debug
//	AGM_PATHS_OPERATIONS_ROOT=/data/_operations
//
// The InfluxDB token should only ever come from the environment or .env.
//
// # Source Lists
//
// Each tool also reads a small source list that operators maintain by hand:
//
//	LoadServerLocations  project -> {url, username, password, secondary}
//	LoadLogLocations     farm -> [directory, filename]
//	LoadFarmNames        one farm per line
//
// # Path Management
//
// Paths resolves every directory from the operations root, which defaults to the
// synced operations folder under the user's home directory.
package config

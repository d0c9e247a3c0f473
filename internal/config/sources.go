package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// ServerLocation describes how to reach one project's data-station file server
type ServerLocation struct {
	URL      string `yaml:"url" validate:"required,url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Secondary replaces URL as the base for file links when set. Some stations
	// serve files under a different path than the index page.
	Secondary string `yaml:"secondary" validate:"omitempty,url"`
}

// UnmarshalYAML accepts `secondary: 0` as "no secondary base"
func (s *ServerLocation) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		URL       string      `yaml:"url"`
		Username  string      `yaml:"username"`
		Password  string      `yaml:"password"`
		Secondary interface{} `yaml:"secondary"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	s.URL = strings.TrimSpace(raw.URL)
	s.Username = raw.Username
	s.Password = raw.Password
	s.Secondary = ""

	switch v := raw.Secondary.(type) {
	case nil:
	case string:
		if v = strings.TrimSpace(v); v != "0" {
			s.Secondary = v
		}
	case int:
		if v != 0 {
			return fmt.Errorf("secondary must be 0 or a URL, got %d", v)
		}
	default:
		return fmt.Errorf("secondary must be 0 or a URL, got %v", v)
	}
	return nil
}

// LinkBase returns the base URL file links are joined onto
func (s ServerLocation) LinkBase() string {
	if s.Secondary != "" {
		return s.Secondary
	}
	return s.URL
}

// LoadServerLocations reads the project -> server YAML used by the log fetcher
func LoadServerLocations(path string) (map[string]ServerLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read server locations", err).WithContext("path", path)
	}

	locations := make(map[string]ServerLocation)
	if err := yaml.Unmarshal(data, &locations); err != nil {
		return nil, apperrors.NewConfigError("failed to parse server locations", err).WithContext("path", path)
	}

	v := validator.New()
	for project, loc := range locations {
		if err := v.Struct(loc); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("invalid server location for %s", project), err)
		}
	}
	return locations, nil
}

// LoadLogLocations reads the farm -> [directory, filename] YAML used by the InfluxDB import
// and returns farm -> full path of the merged log
func LoadLogLocations(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read log locations", err).WithContext("path", path)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewConfigError("failed to parse log locations", err).WithContext("path", path)
	}

	paths := make(map[string]string, len(raw))
	for farm, parts := range raw {
		if len(parts) != 2 {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("log location for %s must be [directory, filename], got %d elements", farm, len(parts)), nil)
		}
		paths[farm] = filepath.Join(parts[0], parts[1])
	}
	return paths, nil
}

// LoadFarmNames reads one farm name per line, skipping blank lines
func LoadFarmNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to open farm list", err).WithContext("path", path)
	}
	defer f.Close()

	var farms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		farms = append(farms, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewConfigError("failed to read farm list", err).WithContext("path", path)
	}
	return farms, nil
}

// SelectFarms applies an operator answer to the farm list. "y" selects everything,
// anything else is read as space-separated indices into farms. A negative index
// counts back from the end, so -1 is the last farm.
func SelectFarms(farms []string, answer string) ([]string, error) {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "y") {
		return farms, nil
	}

	fields := strings.Fields(answer)
	if len(fields) == 0 {
		return nil, apperrors.ErrNoSelection
	}

	selected := make([]string, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("farm selection %q is not a number", field))
		}
		pos := idx
		if pos < 0 {
			pos += len(farms)
		}
		if pos < 0 || pos >= len(farms) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("farm selection %d out of range [-%d, %d)", idx, len(farms), len(farms)))
		}
		selected = append(selected, farms[pos])
	}
	return selected, nil
}

// SortedKeys returns map keys in lexical order so runs are reproducible
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsCulled reports whether farm is listed in the QA culled farms
func (q QAConfig) IsCulled(farm string) bool {
	for _, f := range q.CulledFarms {
		if f == farm {
			return true
		}
	}
	return false
}

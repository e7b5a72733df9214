package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigSource defines an interface for loading configuration from various sources.
type ConfigSource interface {
	Get(key string) (string, bool)
	GetWithDefault(key, defaultValue string) string
}

// EnvConfigSource loads configuration from environment variables.
type EnvConfigSource struct{}

// Get retrieves an environment variable.
func (e *EnvConfigSource) Get(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

// GetWithDefault retrieves an environment variable or returns a default value.
func (e *EnvConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := e.Get(key); ok {
		return val
	}
	return defaultValue
}

// MapConfigSource serves values from a fixed map. Handy in tests.
type MapConfigSource map[string]string

// Get retrieves a value from the map.
func (m MapConfigSource) Get(key string) (string, bool) {
	val, ok := m[key]
	return val, ok && val != ""
}

// GetWithDefault retrieves a value from the map or returns a default.
func (m MapConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := m.Get(key); ok {
		return val
	}
	return defaultValue
}

// FileConfigSource loads configuration from a JSON or YAML file.
// Keys are the same upper-case names as the environment variables.
type FileConfigSource struct {
	data map[string]interface{}
}

// NewFileConfigSource creates a new file-based config source.
func NewFileConfigSource(filePath string) (*FileConfigSource, error) {
	data := make(map[string]interface{})

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(filePath, ".yaml"), strings.HasSuffix(filePath, ".yml"):
		if err := yaml.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case strings.HasSuffix(filePath, ".json"):
		if err := json.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format, use .json, .yaml, or .yml")
	}

	return &FileConfigSource{data: data}, nil
}

// Get retrieves a value from the config file. Lists are re-encoded as JSON
// so they parse the same way as list-valued environment variables.
func (f *FileConfigSource) Get(key string) (string, bool) {
	val, ok := f.data[key]
	if !ok || val == nil {
		return "", false
	}

	switch v := val.(type) {
	case string:
		return v, v != ""
	case []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// GetWithDefault retrieves a value from the config file or returns a default.
func (f *FileConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := f.Get(key); ok {
		return val
	}
	return defaultValue
}

// CompositeConfigSource checks multiple config sources in order.
type CompositeConfigSource struct {
	sources []ConfigSource
}

// NewCompositeConfigSource returns a source that consults sources in order.
func NewCompositeConfigSource(sources ...ConfigSource) *CompositeConfigSource {
	return &CompositeConfigSource{sources: sources}
}

// Get retrieves a value from the first source that has it.
func (c *CompositeConfigSource) Get(key string) (string, bool) {
	for _, source := range c.sources {
		if val, ok := source.Get(key); ok {
			return val, true
		}
	}
	return "", false
}

// GetWithDefault retrieves a value from sources or returns default.
func (c *CompositeConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := c.Get(key); ok {
		return val
	}
	return defaultValue
}

// loadDotEnv populates the process environment from a .env file when one
// exists. Variables already set are left alone.
func loadDotEnv(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

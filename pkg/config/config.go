package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidSettings is returned when a setting is missing or malformed.
var ErrInvalidSettings = errors.New("invalid settings")

// Secret holds a sensitive value. It never prints its content.
type Secret string

// Value returns the raw secret.
func (s Secret) Value() string {
	return string(s)
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "**********"
}

// GoString keeps %#v from leaking the value.
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Settings holds application configuration. It is built once at start-up
// and passed to the components that need it.
type Settings struct {
	// Blob Storage configuration
	StorageAccountName  Secret `validate:"required,min=3,max=24,lowercase,alphanum"`
	StorageSAS          Secret `validate:"required,sas"`
	StorageBlobEndpoint string `validate:"omitempty,url"`

	// Logging configuration
	LoggerVerbosity int    `validate:"gte=0,lte=50"`
	LogFormat       string `validate:"oneof=text json"`

	// WOPI configuration
	ValidFileExtensions   []string `validate:"min=1,dive,required"`
	EnforceFileExtensions bool

	// HTTP Server configuration
	HTTPPort         int `validate:"min=1,max=65535"`
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	MaxBodySizeBytes int64   `validate:"gt=0"`
	RateLimitRPS     float64 `validate:"gte=0"`
	RateLimitBurst   int     `validate:"gte=0"`

	// Access keys for the function-level gate
	FunctionKeys []Secret
	AdminKeys    []Secret

	// Service Bus configuration (file-updated events)
	ServiceBusNamespace string
	ServiceBusKeyName   string
	ServiceBusKeyValue  Secret
	ServiceBusQueue     string

	// Telemetry configuration
	NewRelicLicenseKey   Secret
	NewRelicAppName      string
	SlowRequestThreshold time.Duration

	AppVersion string
}

// Load builds Settings from the provided source and validates them.
func Load(source ConfigSource) (*Settings, error) {
	p := &parser{source: source}

	s := &Settings{
		StorageAccountName:  Secret(source.GetWithDefault("AZURE_STORAGE_ACCOUNT_NAME", "")),
		StorageSAS:          Secret(strings.TrimPrefix(source.GetWithDefault("AZURE_STORAGE_SAS", ""), "?")),
		StorageBlobEndpoint: source.GetWithDefault("AZURE_STORAGE_BLOB_ENDPOINT", ""),

		LoggerVerbosity: p.int("LOGGER_VERBOSITY", 20),
		LogFormat:       source.GetWithDefault("LOG_FORMAT", "text"),

		ValidFileExtensions:   normalizeExtensions(p.list("VALID_FILE_EXTENSIONS", []string{"docx"})),
		EnforceFileExtensions: p.bool("ENFORCE_FILE_EXTENSIONS", false),

		HTTPPort:         p.int("HTTP_PORT", 8080),
		HTTPReadTimeout:  time.Duration(p.int("HTTP_READ_TIMEOUT", 30)) * time.Second,
		HTTPWriteTimeout: time.Duration(p.int("HTTP_WRITE_TIMEOUT", 30)) * time.Second,
		HTTPIdleTimeout:  time.Duration(p.int("HTTP_IDLE_TIMEOUT", 120)) * time.Second,
		MaxBodySizeBytes: int64(p.int("MAX_BODY_SIZE_MB", 100)) << 20,
		RateLimitRPS:     p.float("RATE_LIMIT_RPS", 0),
		RateLimitBurst:   p.int("RATE_LIMIT_BURST", 0),

		FunctionKeys: secrets(p.list("FUNCTION_KEYS", nil)),
		AdminKeys:    secrets(p.list("ADMIN_KEYS", nil)),

		ServiceBusNamespace: source.GetWithDefault("SERVICE_BUS_NAMESPACE", ""),
		ServiceBusKeyName:   source.GetWithDefault("SERVICE_BUS_KEY_NAME", ""),
		ServiceBusKeyValue:  Secret(source.GetWithDefault("SERVICE_BUS_KEY_VALUE", "")),
		ServiceBusQueue:     source.GetWithDefault("SERVICE_BUS_QUEUE", "wopi-file-events"),

		NewRelicLicenseKey:   Secret(source.GetWithDefault("NEW_RELIC_LICENSE_KEY", "")),
		NewRelicAppName:      source.GetWithDefault("NEW_RELIC_APP_NAME", "ctk-wopi"),
		SlowRequestThreshold: time.Duration(p.int("SLOW_REQUEST_THRESHOLD_MS", 2000)) * time.Millisecond,

		AppVersion: source.GetWithDefault("APP_VERSION", "1.0.0"),
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(p.errs...))
	}

	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	if len(s.FunctionKeys) == 0 && len(s.AdminKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one of FUNCTION_KEYS or ADMIN_KEYS must be set", ErrInvalidSettings)
	}

	return s, nil
}

// LoadFromEnv loads settings from the environment. A .env file in the
// working directory is read first, and CONFIG_FILE may name a JSON or YAML
// file whose values sit below the environment.
func LoadFromEnv() (*Settings, error) {
	if _, err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	env := &EnvConfigSource{}
	filePath, ok := env.Get("CONFIG_FILE")
	if !ok {
		return Load(env)
	}

	fileSource, err := NewFileConfigSource(filePath)
	if err != nil {
		return nil, err
	}
	return Load(NewCompositeConfigSource(env, fileSource))
}

// AccountURL returns the blob service endpoint for the storage account.
func (s *Settings) AccountURL() string {
	if s.StorageBlobEndpoint != "" {
		return strings.TrimSuffix(s.StorageBlobEndpoint, "/") + "/"
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", s.StorageAccountName.Value())
}

// IsAllowedExtension reports whether the file name carries one of the
// configured extensions. Comparison is case-insensitive.
func (s *Settings) IsAllowedExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range s.ValidFileExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// ServiceBusEnabled reports whether file-updated events should be published.
func (s *Settings) ServiceBusEnabled() bool {
	return s.ServiceBusNamespace != "" && s.ServiceBusQueue != ""
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("sas", validateSAS)
}

// validateSAS accepts a shared access signature query string. The only hard
// requirement is a signature parameter.
func validateSAS(fl validator.FieldLevel) bool {
	values, err := url.ParseQuery(fl.Field().String())
	if err != nil {
		return false
	}
	return values.Get("sig") != ""
}

type parser struct {
	source ConfigSource
	errs   []error
}

func (p *parser) int(key string, defaultValue int) int {
	raw, ok := p.source.Get(key)
	if !ok {
		return defaultValue
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: expected an integer, got %q", key, raw))
		return defaultValue
	}
	return val
}

func (p *parser) float(key string, defaultValue float64) float64 {
	raw, ok := p.source.Get(key)
	if !ok {
		return defaultValue
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: expected a number, got %q", key, raw))
		return defaultValue
	}
	return val
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw, ok := p.source.Get(key)
	if !ok {
		return defaultValue
	}
	val, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: expected a boolean, got %q", key, raw))
		return defaultValue
	}
	return val
}

// list accepts either a JSON array or a comma separated string.
func (p *parser) list(key string, defaultValue []string) []string {
	raw, ok := p.source.Get(key)
	if !ok {
		return defaultValue
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: expected a JSON array of strings: %w", key, err))
			return defaultValue
		}
		return items
	}

	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return out
}

// secrets drops blank entries so a list like [""] counts as no keys.
func secrets(values []string) []Secret {
	var out []Secret
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, Secret(v))
		}
	}
	return out
}

package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/sdmx-io/fmr-client/internal/util"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultPollInterval is the wait between two load status checks.
	DefaultPollInterval = 5 * time.Second
	// DefaultOutputDir is where response archives are expanded.
	DefaultOutputDir = "."
)

// Config holds the information needed to connect to an FMR server.
type Config struct {
	Service Service `json:"service" ignored:"true"`
	Poll    Poll    `json:"poll,omitempty" ignored:"true"`

	// OutputDir is where ZIP responses are expanded.
	OutputDir string `json:"output-dir,omitempty" envconfig:"FMR_OUTPUT_DIR"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `json:"log-level,omitempty" envconfig:"FMR_LOG_LEVEL"`

	// baseDir is used to resolve relative paths
	// If baseDir is empty, the current working directory is used.
	baseDir string `json:"-"`
}

// Service contains information how to connect to and authenticate with the FMR server.
type Service struct {
	// Server is the FMR API entrypoint (the part before /ws/public/...).
	Server   string `json:"server" envconfig:"FMR_SERVER"`
	Username string `json:"username,omitempty" envconfig:"FMR_USERNAME"`
	Password string `json:"password,omitempty" envconfig:"FMR_PASSWORD"`
	// InsecureSkipVerify disables TLS certificate verification. Only meant
	// for deployments running on self-signed certificates.
	InsecureSkipVerify bool `json:"insecure-skip-tls-verify,omitempty" envconfig:"FMR_INSECURE_SKIP_TLS_VERIFY"`
}

// Poll configures the load status loop.
type Poll struct {
	Interval util.Duration `json:"interval,omitempty" envconfig:"FMR_POLL_INTERVAL"`
	// MaxAttempts bounds the number of status requests. Zero polls until
	// the job reaches a terminal state.
	MaxAttempts int `json:"max-attempts,omitempty" envconfig:"FMR_POLL_MAX_ATTEMPTS" validate:"gte=0"`
}

func (c *Config) Equal(c2 *Config) bool {
	if c == c2 {
		return true
	}
	if c == nil || c2 == nil {
		return false
	}
	return c.Service.Equal(&c2.Service) && c.Poll == c2.Poll &&
		c.OutputDir == c2.OutputDir && c.LogLevel == c2.LogLevel
}

func (s *Service) Equal(s2 *Service) bool {
	if s == s2 {
		return true
	}
	if s == nil || s2 == nil {
		return false
	}
	return *s == *s2
}

func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	c2 := *c
	return &c2
}

func (c *Config) SetBaseDir(baseDir string) {
	c.baseDir = baseDir
}

func NewDefault() *Config {
	return &Config{
		Poll:      Poll{Interval: util.Duration(DefaultPollInterval)},
		OutputDir: DefaultOutputDir,
		LogLevel:  "info",
	}
}

// ApplyEnv overlays FMR_* environment variables on the config.
func (c *Config) ApplyEnv() error {
	for _, section := range []any{c, &c.Service, &c.Poll} {
		if err := envconfig.Process("", section); err != nil {
			return fmt.Errorf("reading environment: %w", err)
		}
	}
	return nil
}

// ResolvedOutputDir returns OutputDir, relative paths being taken from the
// config file directory when the config was read from one.
func (c *Config) ResolvedOutputDir() string {
	dir := c.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}
	if filepath.IsAbs(dir) || c.baseDir == "" {
		return dir
	}
	return filepath.Join(c.baseDir, dir)
}

// NewHTTPClientFromConfig returns a new HTTP Client from the given config.
// Requests carry no client-wide timeout: synchronous calls block until the
// service answers unless the caller's context says otherwise.
func NewHTTPClientFromConfig(config *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.Service.InsecureSkipVerify,
			},
		},
	}
	return httpClient, nil
}

// DefaultClientConfigPath returns the default path to the FMR client config file.
func DefaultClientConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".fmr", "client.yaml")
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := NewDefault()
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	config.SetBaseDir(filepath.Dir(filename))
	return config, nil
}

// WriteConfig writes the service settings to the config file, keeping
// the other settings of an existing file. An unchanged file is left alone.
// It reports whether the file was written.
func WriteConfig(filename string, service Service) (bool, error) {
	current, exists := NewDefault(), false
	if _, err := os.Stat(filename); err == nil {
		parsed, err := ParseConfigFile(filename)
		if err != nil {
			return false, err
		}
		current, exists = parsed, true
	}

	updated := current.DeepCopy()
	updated.Service = service
	if err := updated.Validate(); err != nil {
		return false, err
	}
	if exists && updated.Equal(current) {
		return false, nil
	}
	return true, updated.Persist(filename)
}

func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	validationErrors := make([]error, 0)
	validationErrors = append(validationErrors, validateService(c.Service)...)
	if err := validator.New().Struct(c.Poll); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("invalid poll settings: %w", err))
	}
	if c.Poll.Interval < 0 {
		validationErrors = append(validationErrors, fmt.Errorf("poll interval must not be negative"))
	}
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func validateService(service Service) []error {
	validationErrors := make([]error, 0)
	// Make sure the server is specified and well-formed
	if len(service.Server) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("no server found"))
		return validationErrors
	}
	if err := validator.New().Var(service.Server, "url"); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: not a URL", service.Server))
		return validationErrors
	}
	u, err := url.Parse(service.Server)
	if err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: %w", service.Server, err))
	}
	if err == nil && len(u.Hostname()) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: no hostname", service.Server))
	}
	if (service.Username == "") != (service.Password == "") {
		validationErrors = append(validationErrors, fmt.Errorf("username and password must be set together"))
	}
	return validationErrors
}

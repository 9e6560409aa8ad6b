package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"qnup/internal/storage"
	"qnup/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// EnvAccessKey and EnvSecretKey are read when no credential is configured.
	EnvAccessKey = "QINIU_ACCESS_KEY"
	EnvSecretKey = "QINIU_SECRET_KEY"

	MinPartSize = 5 << 20 // S3 multipart minimum
	MaxPartSize = 1 << 30

	DefaultThreads = 5
)

// Batch failure policies for the exit status.
const (
	FailNever = "never"
	FailAny   = "any"
	FailAll   = "all"
)

// ErrMissingCredentials is returned when neither config, environment nor
// flags provide an access key and secret key.
var ErrMissingCredentials = errors.New("access key and secret key are required")

// Config represents the application configuration
type Config struct {
	Storage  Storage `yaml:"storage"`
	Upload   Upload  `yaml:"upload"`
	Output   Output  `yaml:"output"`
	LogLevel string  `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Storage describes the destination bucket and how to reach it.
type Storage struct {
	Provider  string `yaml:"provider" validate:"oneof=minio s3"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region" validate:"required"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket" validate:"required"`
	Secure    bool   `yaml:"secure"`
	PathStyle bool   `yaml:"path_style"`
}

// Upload holds what to upload and how.
type Upload struct {
	Path string `yaml:"path" validate:"required"`
	// ObjectName is the object key for a single file and the destination
	// prefix for a directory.
	ObjectName    string `yaml:"object_name"`
	PartSize      uint64 `yaml:"part_size"`
	Threads       uint   `yaml:"threads" validate:"min=1,max=64"`
	MaxWorkers    int    `yaml:"max_workers" validate:"min=1,max=256"`
	LowercaseKeys bool   `yaml:"lowercase_keys"`
	FailOn        string `yaml:"fail_on" validate:"oneof=never any all"`
}

// Output controls reporting.
type Output struct {
	Domain      string `yaml:"domain"`
	JSON        bool   `yaml:"json"`
	Quiet       bool   `yaml:"quiet"`
	Progress    bool   `yaml:"progress"`
	QRCode      bool   `yaml:"qrcode"`
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Journal     string `yaml:"journal"`
}

// Default returns the configuration used before any file or flag is applied.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Storage: Storage{
			Provider: storage.ProviderMinIO,
			Region:   storage.DefaultRegion,
			Secure:   true,
		},
		Upload: Upload{
			Threads:       DefaultThreads,
			MaxWorkers:    worker.DefaultMaxWorkers,
			LowercaseKeys: true,
			FailOn:        FailNever,
		},
		Output: Output{
			QRCode: true,
		},
	}
}

// Load loads configuration from file, environment and command line flags.
// Precedence, lowest first: defaults, config file, environment, flags.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(configFile)
	if err != nil {
		return nil, err
	}

	loadFromEnv(cfg)

	// Override with command line flags
	if flags != nil {
		if err := loadFromFlags(cfg, flags); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Read returns the defaults overlaid with configFile, without validation.
func Read(configFile string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvAccessKey); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		cfg.Storage.SecretKey = v
	}
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	str("provider", &cfg.Storage.Provider)
	str("endpoint", &cfg.Storage.Endpoint)
	str("region", &cfg.Storage.Region)
	str("access-key", &cfg.Storage.AccessKey)
	str("secret-key", &cfg.Storage.SecretKey)
	str("bucket-name", &cfg.Storage.Bucket)
	boolean("secure", &cfg.Storage.Secure)
	boolean("path-style", &cfg.Storage.PathStyle)

	str("file-path", &cfg.Upload.Path)
	str("object-name", &cfg.Upload.ObjectName)
	boolean("lowercase-keys", &cfg.Upload.LowercaseKeys)
	str("fail-on", &cfg.Upload.FailOn)

	str("domain-name", &cfg.Output.Domain)
	boolean("json", &cfg.Output.JSON)
	boolean("quiet", &cfg.Output.Quiet)
	boolean("progress", &cfg.Output.Progress)
	str("metrics-addr", &cfg.Output.MetricsAddr)
	str("journal", &cfg.Output.Journal)

	str("log-level", &cfg.LogLevel)
	if err != nil {
		return err
	}

	if flags.Changed("no-qrcode") {
		noQRCode, err := flags.GetBool("no-qrcode")
		if err != nil {
			return err
		}
		cfg.Output.QRCode = !noQRCode
	}
	if flags.Changed("part-size") {
		if cfg.Upload.PartSize, err = flags.GetUint64("part-size"); err != nil {
			return err
		}
	}
	if flags.Changed("threads") {
		if cfg.Upload.Threads, err = flags.GetUint("threads"); err != nil {
			return err
		}
	}
	if flags.Changed("max-workers") {
		if cfg.Upload.MaxWorkers, err = flags.GetInt("max-workers"); err != nil {
			return err
		}
	}

	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml names so errors match the config file.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (c *Config) validate() error {
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return ErrMissingCredentials
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		errs := make([]error, 0, len(verrs))
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
		return errors.Join(errs...)
	}

	if _, _, err := storage.ResolveEndpoint(c.Storage.Region, c.Storage.Endpoint); err != nil {
		return err
	}

	if c.Upload.PartSize != 0 && (c.Upload.PartSize < MinPartSize || c.Upload.PartSize > MaxPartSize) {
		return fmt.Errorf("part size must be between 5MiB and 1GiB, got %d", c.Upload.PartSize)
	}

	return nil
}

func fieldError(fe validator.FieldError) error {
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Errorf("%s must be %s %s, got %v", name, bound(fe.Tag()), fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s is invalid (%s)", name, fe.Tag())
	}
}

func bound(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}

// StorageConfig converts the storage section for storage.New.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Provider:  c.Storage.Provider,
		Endpoint:  c.Storage.Endpoint,
		Region:    c.Storage.Region,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		Bucket:    c.Storage.Bucket,
		Secure:    c.Storage.Secure,
		PathStyle: c.Storage.PathStyle,
	}
}

// WorkerConfig returns the worker settings. Directory uploads send each file
// with a single thread since the chunks already run in parallel.
func (c *Config) WorkerConfig(isDir bool) worker.Config {
	threads := c.Upload.Threads
	if isDir {
		threads = 1
	}
	return worker.Config{
		PartSize:   c.Upload.PartSize,
		Threads:    threads,
		Domain:     c.Output.Domain,
		MaxWorkers: c.Upload.MaxWorkers,
	}
}

// RegisterFlags defines every flag loadFromFlags reads.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()

	flags.StringP("access-key", "a", "", "Access key, or $"+EnvAccessKey)
	flags.StringP("secret-key", "s", "", "Secret key, or $"+EnvSecretKey)
	flags.StringP("bucket-name", "b", "", "Bucket name")
	flags.String("region", d.Storage.Region, "Qiniu region code (z0, cn-east-2, z1, z2, na0, as0, ap-northeast-1)")
	flags.String("endpoint", "", "S3-compatible endpoint, overrides the region endpoint")
	flags.String("provider", d.Storage.Provider, "Storage client: minio or s3")
	flags.Bool("secure", d.Storage.Secure, "Use HTTPS")
	flags.Bool("path-style", false, "Use path-style bucket addressing")

	flags.StringP("file-path", "f", "", "File or directory to upload")
	flags.StringP("object-name", "o", "", "Object key for a file, destination prefix for a directory")
	flags.Uint64("part-size", 0, "Multipart part size in bytes (5MiB-1GiB)")
	flags.Uint("threads", d.Upload.Threads, "Parallel parts for a single file upload")
	flags.IntP("max-workers", "w", d.Upload.MaxWorkers, "Maximum number of concurrent directory workers")
	flags.Bool("lowercase-keys", d.Upload.LowercaseKeys, "Lower-case object keys of directory uploads")
	flags.String("fail-on", d.Upload.FailOn, "Exit non-zero when failures occur: never, any or all")

	flags.StringP("domain-name", "d", "", "Download domain bound to the bucket")
	flags.Bool("json", false, "Print results as JSON lines")
	flags.BoolP("quiet", "q", false, "Only print failures and the summary")
	flags.Bool("progress", false, "Show a progress line on a terminal")
	flags.Bool("no-qrcode", false, "Do not print a QR code of the download link after a file upload")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the upload")
	flags.String("journal", "", "Record batches in this SQLite database")

	flags.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
}

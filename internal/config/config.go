package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. MAILTRIAGE_SERVER__PORT=9090.
const EnvPrefix = "MAILTRIAGE_"

const (
	defaultHost             = "127.0.0.1"
	defaultPort             = 8080
	defaultMaxUploadMB      = 10
	defaultRateLimit        = 30
	defaultExtractTimeout   = 60
	defaultOCRLanguage      = "por"
	defaultTesseractPath    = "tesseract"
	defaultPdftoppmPath     = "pdftoppm"
	defaultInboxDays        = 7
	defaultInboxFolder      = "INBOX"
	defaultArchiveFolder    = "Triaged"
	defaultReplySubjectPref = "Re: "
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Classifier ClassifierConfig `yaml:"classifier" koanf:"classifier"`
	Extract    ExtractConfig    `yaml:"extract" koanf:"extract"`
	Inbox      InboxConfig      `yaml:"inbox,omitempty" koanf:"inbox"`
	Email      EmailConfig      `yaml:"email,omitempty" koanf:"email"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	RateLimit      int      `yaml:"rate_limit" koanf:"rate_limit"` // uploads per minute per client
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	DisableCSRF    bool     `yaml:"disable_csrf" koanf:"disable_csrf"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// ClassifierConfig tunes the logistic regression fit at startup
type ClassifierConfig struct {
	C         float64 `yaml:"c" koanf:"c"`
	MaxIter   int     `yaml:"max_iter" koanf:"max_iter"`
	Tolerance float64 `yaml:"tolerance" koanf:"tolerance"`
}

// ExtractConfig configures text extraction from uploads
type ExtractConfig struct {
	OCRLanguage   string `yaml:"ocr_language" koanf:"ocr_language"`
	TesseractPath string `yaml:"tesseract_path" koanf:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path" koanf:"pdftoppm_path"`
	TimeoutSec    int    `yaml:"timeout_sec" koanf:"timeout_sec"`
}

// InboxConfig holds IMAP settings for triaging a mailbox
type InboxConfig struct {
	Enabled       bool   `yaml:"enabled" koanf:"enabled"`
	Provider      string `yaml:"provider" koanf:"provider"`             // "gmail", "outlook", "imap"
	Server        string `yaml:"server" koanf:"server"`                 // e.g., "imap.gmail.com"
	Port          int    `yaml:"port" koanf:"port"`                     // e.g., 993
	Email         string `yaml:"email" koanf:"email"`                   // Mailbox to triage
	Password      string `yaml:"password" koanf:"password"`             // App password (not main password)
	Folder        string `yaml:"folder" koanf:"folder"`                 // default: "INBOX"
	Days          int    `yaml:"days" koanf:"days"`                     // look-back window
	ArchiveFolder string `yaml:"archive_folder" koanf:"archive_folder"` // default: "Triaged"
}

// EmailConfig configures delivery of generated replies
type EmailConfig struct {
	Provider      string     `yaml:"provider" koanf:"provider"` // "smtp", "resend", "sendgrid"
	From          string     `yaml:"from" koanf:"from"`
	APIKey        string     `yaml:"api_key,omitempty" koanf:"api_key"`
	SubjectPrefix string     `yaml:"subject_prefix,omitempty" koanf:"subject_prefix"`
	SMTP          SMTPConfig `yaml:"smtp,omitempty" koanf:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" koanf:"host"`
	Port     int    `yaml:"port" koanf:"port"`
	Username string `yaml:"username" koanf:"username"`
	Password string `yaml:"password" koanf:"password"`
	UseTLS   bool   `yaml:"use_tls" koanf:"use_tls"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mailtriage", "config.yaml")
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// envKey maps MAILTRIAGE_SERVER__MAX_UPLOAD_MB to server.max_upload_mb.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load reads the config file at path, if it exists, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := checkFilePermissions(path); err != nil {
				fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
			}
			if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = defaultRateLimit
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	// Classifier zero values are resolved by classifier.Options.

	if c.Extract.OCRLanguage == "" {
		c.Extract.OCRLanguage = defaultOCRLanguage
	}
	if c.Extract.TesseractPath == "" {
		c.Extract.TesseractPath = defaultTesseractPath
	}
	if c.Extract.PdftoppmPath == "" {
		c.Extract.PdftoppmPath = defaultPdftoppmPath
	}
	if c.Extract.TimeoutSec == 0 {
		c.Extract.TimeoutSec = defaultExtractTimeout
	}

	// Set inbox defaults
	if c.Inbox.Folder == "" {
		c.Inbox.Folder = defaultInboxFolder
	}
	if c.Inbox.ArchiveFolder == "" {
		c.Inbox.ArchiveFolder = defaultArchiveFolder
	}
	if c.Inbox.Days == 0 {
		c.Inbox.Days = defaultInboxDays
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}

	if c.Email.Provider == "" {
		c.Email.Provider = "smtp"
	}
	if c.Email.SubjectPrefix == "" {
		c.Email.SubjectPrefix = defaultReplySubjectPref
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server: max_upload_mb must not be negative")
	}
	if c.Classifier.C < 0 {
		return fmt.Errorf("classifier: c must not be negative")
	}
	if c.Classifier.MaxIter < 0 {
		return fmt.Errorf("classifier: max_iter must not be negative")
	}
	if c.Extract.TimeoutSec < 0 {
		return fmt.Errorf("extract: timeout_sec must not be negative")
	}
	return nil
}

// ValidateInbox validates inbox configuration (only called when inbox triage is used)
func (c *Config) ValidateInbox() error {
	if !c.Inbox.Enabled {
		return fmt.Errorf("inbox: triage is not enabled in config")
	}
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}

// ValidateEmail validates reply delivery settings (only called when sending)
func (c *Config) ValidateEmail() error {
	if c.Email.From == "" {
		return fmt.Errorf("email: from address is required")
	}
	switch c.Email.Provider {
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp: host is required")
		}
		if c.Email.SMTP.Port == 0 {
			return fmt.Errorf("email.smtp: port is required")
		}
	case "resend", "sendgrid":
		if c.Email.APIKey == "" {
			return fmt.Errorf("email: api_key is required for %s", c.Email.Provider)
		}
	default:
		return fmt.Errorf("email: unknown provider %q (use smtp, resend or sendgrid)", c.Email.Provider)
	}
	return nil
}

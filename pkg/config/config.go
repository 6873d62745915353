package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prasanthmj/inboxtriage/pkg/credential"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. INBOX_TRIAGE_IMAP_SERVER
const EnvPrefix = "INBOX_TRIAGE"

const defaultTimeoutSeconds = 120

// ErrNotFound is returned when the config file does not exist
var ErrNotFound = errors.New("config file not found")

type Config struct {
	// Email account
	EmailAddress  string
	EmailPassword string
	Provider      string // gmail, outlook, ionos, icloud, yahoo, zoho, fastmail, gmx or custom

	// IMAP settings
	IMAPServer string
	IMAPPort   int

	// SMTP settings
	SMTPServer string
	SMTPPort   int

	TimeoutSeconds int
	Timeout        time.Duration

	// Reply policy applied to every run
	Policy triage.Policy
	Rules  *triage.Ruleset

	// Storage settings
	LogDir       string
	HistoryDB    string // empty disables the SQLite index
	RulesFile    string
	MessageDelay time.Duration

	// Path is the file the config was read from
	Path string
}

type serverPreset struct {
	imapServer string
	imapPort   int
	smtpServer string
	smtpPort   int
}

var providerPresets = map[string]serverPreset{
	"gmail":    {"imap.gmail.com", 993, "smtp.gmail.com", 587},
	"outlook":  {"outlook.office365.com", 993, "smtp-mail.outlook.com", 587},
	"ionos":    {"imap.ionos.de", 993, "smtp.ionos.de", 587},
	"icloud":   {"imap.mail.me.com", 993, "smtp.mail.me.com", 587},
	"yahoo":    {"imap.mail.yahoo.com", 993, "smtp.mail.yahoo.com", 587},
	"zoho":     {"imap.zoho.com", 993, "smtp.zoho.com", 587},
	"fastmail": {"imap.fastmail.com", 993, "smtp.fastmail.com", 587},
	"gmx":      {"imap.gmx.net", 993, "mail.gmx.net", 587},
}

// lookupPassword resolves a missing password from the system keyring
var lookupPassword = credential.Get

// DefaultPath returns ~/.config/inbox-triage/config.env
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.env"
	}
	return filepath.Join(home, ".config", "inbox-triage", "config.env")
}

// Load reads the KEY=VALUE config file at path. Environment variables with
// the INBOX_TRIAGE_ prefix override file values. A missing file is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("email_provider", "custom")
	v.SetDefault("timeout_seconds", defaultTimeoutSeconds)
	v.SetDefault("auto_reply_enabled", "true")
	v.SetDefault("escalation_threshold", triage.DefaultEscalationThreshold)
	v.SetDefault("max_auto_reply_per_hour", triage.DefaultMaxAutoReplies)
	v.SetDefault("from_name", triage.DefaultFromName)
	v.SetDefault("summary_language", triage.DefaultLanguage)
	v.SetDefault("auto_archive", "true")
	v.SetDefault("log_dir", "~/inbox-triage-logs")
	v.SetDefault("message_delay_ms", int(triage.DefaultMessageDelay/time.Millisecond))

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Path = path

	if cfg.EmailPassword == "" && cfg.EmailAddress != "" {
		pw, err := lookupPassword(cfg.EmailAddress)
		switch {
		case err == nil:
			cfg.EmailPassword = pw
		case !errors.Is(err, credential.ErrNotFound):
			return nil, fmt.Errorf("EMAIL_PASSWORD is empty and the keyring is unavailable: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		EmailAddress:  strings.TrimSpace(v.GetString("email_username")),
		EmailPassword: v.GetString("email_password"),
		Provider:      strings.ToLower(strings.TrimSpace(v.GetString("email_provider"))),
		HistoryDB:     expandHome(strings.TrimSpace(v.GetString("history_db"))),
		RulesFile:     expandHome(strings.TrimSpace(v.GetString("rules_file"))),
		LogDir:        expandHome(strings.TrimSpace(v.GetString("log_dir"))),
	}

	// Auto-configure for known providers
	if preset, ok := providerPresets[cfg.Provider]; ok {
		cfg.IMAPServer = preset.imapServer
		cfg.IMAPPort = preset.imapPort
		cfg.SMTPServer = preset.smtpServer
		cfg.SMTPPort = preset.smtpPort
	} else if cfg.Provider != "custom" && cfg.Provider != "" {
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}

	// Override with explicit settings if provided
	if server := strings.TrimSpace(v.GetString("imap_server")); server != "" {
		cfg.IMAPServer = server
	}
	if server := strings.TrimSpace(v.GetString("smtp_server")); server != "" {
		cfg.SMTPServer = server
	}

	var err error
	if cfg.IMAPPort, err = intValue(v, "imap_port", cfg.IMAPPort, 993); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = intValue(v, "smtp_port", cfg.SMTPPort, 587); err != nil {
		return nil, err
	}
	if cfg.TimeoutSeconds, err = intValue(v, "timeout_seconds", 0, defaultTimeoutSeconds); err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	delayMS, err := intValue(v, "message_delay_ms", 0, int(triage.DefaultMessageDelay/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.MessageDelay = time.Duration(delayMS) * time.Millisecond

	if cfg.Policy, err = policyFromViper(v); err != nil {
		return nil, err
	}

	cfg.Rules = triage.DefaultRuleset()
	if cfg.RulesFile != "" {
		if cfg.Rules, err = triage.LoadRuleset(cfg.RulesFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func policyFromViper(v *viper.Viper) (triage.Policy, error) {
	p := triage.DefaultPolicy()
	var err error

	if p.AutoReplyEnabled, err = boolValue(v, "auto_reply_enabled", true); err != nil {
		return p, err
	}
	if p.AutoArchive, err = boolValue(v, "auto_archive", true); err != nil {
		return p, err
	}

	if raw := strings.TrimSpace(v.GetString("escalation_threshold")); raw != "" {
		if p.EscalationThreshold, err = strconv.ParseFloat(raw, 64); err != nil {
			return p, fmt.Errorf("invalid ESCALATION_THRESHOLD %q: %w", raw, err)
		}
	}
	if p.MaxAutoReplies, err = intValue(v, "max_auto_reply_per_hour", 0, triage.DefaultMaxAutoReplies); err != nil {
		return p, err
	}

	p.WorkingHours, err = triage.ParseWorkingHours(
		v.GetString("working_hours_start"),
		v.GetString("working_hours_end"),
		v.GetString("working_days"),
	)
	if err != nil {
		return p, err
	}

	if name := strings.TrimSpace(v.GetString("from_name")); name != "" {
		p.FromName = name
	}
	if lang := strings.ToLower(strings.TrimSpace(v.GetString("summary_language"))); lang != "" {
		p.Language = lang
	}
	p.SchedulingLink = strings.TrimSpace(v.GetString("calendly_link"))

	return p, nil
}

// Validate checks account settings and policy ranges
func (c *Config) Validate() error {
	if c.EmailAddress == "" {
		return fmt.Errorf("EMAIL_USERNAME is required")
	}
	if c.EmailPassword == "" {
		return fmt.Errorf("EMAIL_PASSWORD is required (or store it in the system keyring)")
	}
	if c.IMAPServer == "" {
		return fmt.Errorf("IMAP_SERVER is required")
	}
	if c.SMTPServer == "" {
		return fmt.Errorf("SMTP_SERVER is required")
	}
	if c.IMAPPort <= 0 || c.IMAPPort > 65535 {
		return fmt.Errorf("invalid IMAP_PORT %d", c.IMAPPort)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP_PORT %d", c.SMTPPort)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid TIMEOUT_SECONDS %d", c.TimeoutSeconds)
	}
	if c.MessageDelay < 0 {
		return fmt.Errorf("invalid MESSAGE_DELAY_MS: must not be negative")
	}
	if c.LogDir == "" {
		return fmt.Errorf("LOG_DIR is required")
	}

	p := c.Policy
	if p.EscalationThreshold < 0 || p.EscalationThreshold > 1 {
		return fmt.Errorf("invalid ESCALATION_THRESHOLD %v: must be between 0 and 1", p.EscalationThreshold)
	}
	if p.MaxAutoReplies < 0 {
		return fmt.Errorf("invalid MAX_AUTO_REPLY_PER_HOUR %d: must not be negative", p.MaxAutoReplies)
	}
	if p.WorkingHours.Restricted() && *p.WorkingHours.End < *p.WorkingHours.Start {
		return fmt.Errorf("WORKING_HOURS_END %s is before WORKING_HOURS_START %s",
			p.WorkingHours.End, p.WorkingHours.Start)
	}
	if !triage.SupportedLanguage(p.Language) {
		return fmt.Errorf("unsupported SUMMARY_LANGUAGE %q", p.Language)
	}
	if p.SchedulingLink != "" {
		u, err := url.Parse(p.SchedulingLink)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid CALENDLY_LINK %q: must be an http(s) URL", p.SchedulingLink)
		}
	}
	return nil
}

// intValue reads an integer key. An unset or empty key falls back to
// preset when non-zero, then to def.
func intValue(v *viper.Viper, key string, preset, def int) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		if preset != 0 {
			return preset, nil
		}
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return n, nil
}

func boolValue(v *viper.Viper, key string, def bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(v.GetString(key)))
	switch raw {
	case "":
		return def, nil
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s %q: want true or false", strings.ToUpper(key), raw)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	DB            DBConfig            `mapstructure:"db"`
	Cron          CronConfig          `mapstructure:"cron"`
	Zendesk       ZendeskConfig       `mapstructure:"zendesk"`
	Sync          SyncConfig          `mapstructure:"sync"`
	Organizations OrganizationsConfig `mapstructure:"organizations"`
	Tickets       TicketsConfig       `mapstructure:"tickets"`
	Attachments   AttachmentsConfig   `mapstructure:"attachments"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	// AdminToken protects the admin API; empty disables auth.
	AdminToken string `mapstructure:"admin_token"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backup  string `mapstructure:"backup"`
}

type ZendeskConfig struct {
	Subdomain string `mapstructure:"subdomain"`
	// BaseURL overrides the subdomain-derived URL; used by tests and
	// self-hosted gateways.
	BaseURL        string        `mapstructure:"base_url"`
	Email          string        `mapstructure:"email"`
	APIToken       string        `mapstructure:"api_token"`
	PerPage        int           `mapstructure:"per_page"`
	Include        string        `mapstructure:"include"`
	ExcludeDeleted bool          `mapstructure:"exclude_deleted"`
	BootstrapHours int           `mapstructure:"bootstrap_hours"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	ClosedTicketsOnly bool `mapstructure:"closed_tickets_only"`
	UseTicketEvents   bool `mapstructure:"use_ticket_events"`
	PruneReopened     bool `mapstructure:"prune_reopened"`
	ContinueOnError   bool `mapstructure:"continue_on_error"`
	// DuplicatePageCap is the number of consecutive incremental pages
	// contributing zero new unique IDs tolerated before falling back to
	// snapshot mode. Empirical constant, kept configurable.
	DuplicatePageCap int `mapstructure:"duplicate_page_cap"`
}

type OrganizationsConfig struct {
	PerPage       int           `mapstructure:"per_page"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	RetryCap      time.Duration `mapstructure:"retry_cap"`
	ForceSnapshot bool          `mapstructure:"force_snapshot"`
}

type TicketsConfig struct {
	PageDelay time.Duration `mapstructure:"page_delay"`
	RetryCap  time.Duration `mapstructure:"retry_cap"`
}

type AttachmentsConfig struct {
	Download bool   `mapstructure:"download"`
	Dir      string `mapstructure:"dir"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.backup", "@every 1h")
	v.SetDefault("zendesk.per_page", 500)
	v.SetDefault("zendesk.exclude_deleted", false)
	v.SetDefault("zendesk.bootstrap_hours", 24)
	v.SetDefault("zendesk.timeout", "120s")
	v.SetDefault("sync.closed_tickets_only", false)
	v.SetDefault("sync.use_ticket_events", false)
	v.SetDefault("sync.prune_reopened", false)
	v.SetDefault("sync.continue_on_error", false)
	v.SetDefault("sync.duplicate_page_cap", 3)
	v.SetDefault("organizations.per_page", 100)
	v.SetDefault("organizations.page_delay", "200ms")
	v.SetDefault("organizations.retry_cap", "4s")
	v.SetDefault("organizations.force_snapshot", false)
	v.SetDefault("tickets.page_delay", "200ms")
	v.SetDefault("tickets.retry_cap", "6s")
	v.SetDefault("attachments.download", true)
	v.SetDefault("attachments.dir", "./attachments")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Zendesk.BaseURL == "" && c.Zendesk.Subdomain == "" {
		return fmt.Errorf("zendesk.subdomain or zendesk.base_url is required")
	}
	if c.Zendesk.Email == "" || c.Zendesk.APIToken == "" {
		return fmt.Errorf("zendesk.email and zendesk.api_token are required")
	}
	// The organizations endpoints reject page sizes outside this range.
	if c.Organizations.PerPage < 25 {
		c.Organizations.PerPage = 25
	}
	if c.Organizations.PerPage > 100 {
		c.Organizations.PerPage = 100
	}
	return nil
}

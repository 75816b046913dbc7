// Package conf loads and exposes application settings.
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/spf13/viper"
)

// Database driver names accepted in settings.
const (
	DatabaseDriverSQLite = "sqlite"
	DatabaseDriverMySQL  = "mysql"
)

// Settings is the root configuration for the control engine.
type Settings struct {
	Main         MainSettings         `mapstructure:"main"`
	Server       ServerSettings       `mapstructure:"server"`
	Database     DatabaseSettings     `mapstructure:"database"`
	Scoring      ScoringSettings      `mapstructure:"scoring"`
	Alerting     AlertingSettings     `mapstructure:"alerting"`
	Scheduler    SchedulerSettings    `mapstructure:"scheduler"`
	MQTT         MQTTSettings         `mapstructure:"mqtt"`
	Notification NotificationSettings `mapstructure:"notification"`
}

// MainSettings holds global options.
type MainSettings struct {
	LogLevel string `mapstructure:"loglevel"`
}

// ServerSettings holds the HTTP API configuration.
type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// LatestScoreCacheTTL bounds how long the dashboard latest-score cache
	// may serve stale entries.
	LatestScoreCacheTTL Duration `mapstructure:"latestscorecachettl"`
}

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
	// DSN is the MySQL connection string.
	DSN string `mapstructure:"dsn"`
	// ObservationRetention prunes observations older than this; zero disables.
	ObservationRetention Duration `mapstructure:"observationretention"`
}

// ScoringSettings tunes the scoring engine.
type ScoringSettings struct {
	// CalculatedBy is recorded on every computed score.
	CalculatedBy string `mapstructure:"calculatedby"`
	// WeightOverrides maps dimension → metric key → weight, replacing the
	// built-in profile weight for that metric.
	WeightOverrides map[string]map[string]float64 `mapstructure:"weightoverrides"`
}

// AlertingSettings tunes the alert dispatcher.
type AlertingSettings struct {
	// Rules extends the built-in threshold rules.
	Rules []control.ThresholdRule `mapstructure:"rules"`
	// DisableDefaultRules drops the built-in rule set, leaving only Rules.
	DisableDefaultRules bool `mapstructure:"disabledefaultrules"`
}

// SchedulerSettings controls periodic evaluation runs.
type SchedulerSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron is a robfig/cron spec; defaults to hourly.
	Cron string `mapstructure:"cron"`
}

// MQTTSettings configures optional alert publication to an MQTT broker.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"clientid"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// TopicPrefix prefixes the per-site alert topic, default "site360".
	TopicPrefix string `mapstructure:"topicprefix"`
	// ConnectTimeout bounds the initial broker connection.
	ConnectTimeout Duration `mapstructure:"connecttimeout"`
}

// NotificationSettings configures the in-app bell feed and push targets.
type NotificationSettings struct {
	// PushURLs are shoutrrr target URLs notified on high/critical alerts.
	PushURLs []string `mapstructure:"pushurls"`
	// MinPushSeverity is the lowest severity forwarded to push targets.
	MinPushSeverity string `mapstructure:"minpushseverity"`
	// BellCapacity bounds the in-memory bell feed.
	BellCapacity int `mapstructure:"bellcapacity"`
}

var (
	settingsInstance *Settings
	settingsMu       sync.RWMutex
)

// defaults returns the built-in settings.
func defaults() *Settings {
	return &Settings{
		Main: MainSettings{LogLevel: "info"},
		Server: ServerSettings{
			Host:                "0.0.0.0",
			Port:                8090,
			LatestScoreCacheTTL: Duration(30 * time.Second),
		},
		Database: DatabaseSettings{
			Driver:               DatabaseDriverSQLite,
			Path:                 "site360.db",
			ObservationRetention: Duration(90 * 24 * time.Hour),
		},
		Scoring: ScoringSettings{
			CalculatedBy: control.SystemActor,
		},
		Scheduler: SchedulerSettings{
			Enabled: true,
			Cron:    "@hourly",
		},
		MQTT: MQTTSettings{
			TopicPrefix:    "site360",
			ConnectTimeout: Duration(10 * time.Second),
		},
		Notification: NotificationSettings{
			MinPushSeverity: string(control.SeverityHigh),
			BellCapacity:    200,
		},
	}
}

// Load reads settings from the given file (or the default search path when
// empty), applies defaults, and stores the result as the process singleton.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/site360")
	}
	v.SetEnvPrefix("SITE360")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply. An explicit file
		// that cannot be read is an error.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := defaults()
	if err := v.Unmarshal(settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settingsMu.Lock()
	settingsInstance = settings
	settingsMu.Unlock()
	return settings, nil
}

// Validate checks configuration integrity; violations are startup faults.
func (s *Settings) Validate() error {
	switch s.Database.Driver {
	case DatabaseDriverSQLite, DatabaseDriverMySQL:
	default:
		return fmt.Errorf("invalid database driver: %q", s.Database.Driver)
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Server.Port)
	}
	for i := range s.Alerting.Rules {
		rule := &s.Alerting.Rules[i]
		if !rule.Dimension.Valid() {
			return fmt.Errorf("alert rule %q: unknown dimension %q", rule.Name, rule.Dimension)
		}
		if rule.MetricKey == "" {
			return fmt.Errorf("alert rule %q: metric key is required", rule.Name)
		}
		if rule.Severity.Rank() == 0 {
			return fmt.Errorf("alert rule %q: unknown severity %q", rule.Name, rule.Severity)
		}
		if !control.ValidOperator(rule.Operator) {
			return fmt.Errorf("alert rule %q: unknown operator %q", rule.Name, rule.Operator)
		}
	}
	return nil
}

// GetSettings returns the process settings singleton, or nil before Load.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsInstance
}

// SetSettingsForTesting replaces the singleton. Test use only.
func SetSettingsForTesting(s *Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsInstance = s
}

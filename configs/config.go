package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		MigrationsDir   string        `koanf:"migrations_dir"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Webhook struct {
		Secret    string        `koanf:"secret"`
		Tolerance time.Duration `koanf:"tolerance"`
		MaxBody   int64         `koanf:"max_body"`
	} `koanf:"webhook"`

	Payout struct {
		BaseURL string        `koanf:"base_url"`
		APIKey  string        `koanf:"api_key"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"payout"`

	Commission struct {
		DefaultRate string `koanf:"default_rate"` // decimal string in [0,1], e.g. "0.10"
	} `koanf:"commission"`

	Checkout struct {
		SuccessURL string `koanf:"success_url"`
		CancelURL  string `koanf:"cancel_url"`
	} `koanf:"checkout"`

	Rabbit struct {
		URL string `koanf:"url"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers       []string `koanf:"brokers"`
		TransferTopic string   `koanf:"transfer_topic"`
		GroupID       string   `koanf:"group_id"`
	} `koanf:"kafka"`

	Outbox struct {
		Tick      time.Duration `koanf:"tick"`
		BatchSize int           `koanf:"batch_size"`
	} `koanf:"outbox"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix SETTLE_, nested with __)
	// e.g. SETTLE_MYSQL__DSN, SETTLE_WEBHOOK__SECRET
	if err := k.Load(env.Provider("SETTLE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "SETTLE_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret required")
	}
	if c.Payout.BaseURL == "" {
		return fmt.Errorf("payout.base_url required")
	}
	if c.Commission.DefaultRate == "" {
		return fmt.Errorf("commission.default_rate required")
	}
	return nil
}

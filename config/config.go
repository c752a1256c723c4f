package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Application struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Port        int           `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Debug       bool          `mapstructure:"debug"`
	BaseURL     string        `mapstructure:"base_url"`
}

type Postgres struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Redis struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type Kafka struct {
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	SASLUsername     string `mapstructure:"sasl_username"`
	SASLPassword     string `mapstructure:"sasl_password"`
}

type JWT struct {
	PrivateKey []byte `mapstructure:"private_key"`
	PublicKey  []byte `mapstructure:"public_key"`
}

type GCP struct {
	ProjectID      string `mapstructure:"project_id"`
	ServiceAccount []byte `mapstructure:"service_account"`
	TasksLocation  string `mapstructure:"tasks_location"`
}

type Stripe struct {
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

type Mailer struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Sender  string `mapstructure:"sender"`
}

type WaitingList struct {
	// OfferTTL must stay within the payment collaborator's checkout
	// session lifetime; Stripe's minimum session expiry is 30 minutes.
	OfferTTL      time.Duration `mapstructure:"offer_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepBatch    int           `mapstructure:"sweep_batch"`
}

type CORS struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	MaxAge           int      `mapstructure:"max_age"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type Config struct {
	Application Application `mapstructure:"application"`
	Postgres    Postgres    `mapstructure:"postgres"`
	Redis       Redis       `mapstructure:"redis"`
	Kafka       Kafka       `mapstructure:"kafka"`
	JWT         JWT         `mapstructure:"jwt"`
	GCP         GCP         `mapstructure:"gcp"`
	Stripe      Stripe      `mapstructure:"stripe"`
	Mailer      Mailer      `mapstructure:"mailer"`
	WaitingList WaitingList `mapstructure:"waiting_list"`
	CORS        CORS        `mapstructure:"cors"`
}

var (
	c    *Config
	once sync.Once
)

// Get loads the configuration exactly once. File values may be overridden by
// environment variables, e.g. TB_POSTGRES_HOST for postgres.host.
func Get() *Config {
	once.Do(func() {
		v := viper.New()
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.SetEnvPrefix("TB")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		setDefaults(v)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				log.Fatalf("config: %v", err)
			}
		}

		c = &Config{}
		if err := v.Unmarshal(c); err != nil {
			log.Fatalf("config: unable to decode into struct: %v", err)
		}
	})

	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.name", "tb-marketplace")
	v.SetDefault("application.environment", "development")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.timeout", 30*time.Second)
	v.SetDefault("application.debug", false)
	v.SetDefault("application.base_url", "http://localhost:8080")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "tb_marketplace")
	v.SetDefault("postgres.dbname", "tb_marketplace")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 25)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("kafka.bootstrap_servers", "localhost:9092")

	v.SetDefault("gcp.tasks_location", "asia-southeast2")

	v.SetDefault("stripe.base_url", "https://api.stripe.com")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("mailer.base_url", "https://api.resend.com")
	v.SetDefault("mailer.sender", "TicketBay <tickets@ticketbay.io>")

	v.SetDefault("waiting_list.offer_ttl", 30*time.Minute)
	v.SetDefault("waiting_list.sweep_interval", 60*time.Second)
	v.SetDefault("waiting_list.sweep_batch", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 300)
}

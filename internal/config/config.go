// Package config загружает конфигурацию сервиса из YAML-файла
// с переопределением через переменные окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура настроек для API и воркера.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Region     string `yaml:"region" env:"DEPLOY_REGION" env-default:"intl"`
	HTTPServer `yaml:"http_server"`
	GRPCServer `yaml:"grpc_server"`
	Postgres   `yaml:"postgres"`
	CloudBase  `yaml:"cloudbase"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	SMTP       `yaml:"smtp"`
	JWT        `yaml:"jwt"`
	WeChat     `yaml:"wechat"`
	AI         `yaml:"ai"`
	Stripe     `yaml:"stripe"`
	PayPal     `yaml:"paypal"`
	WeChatPay  `yaml:"wechatpay"`
	Alipay     `yaml:"alipay"`
	Admin      `yaml:"admin"`
	Limits     `yaml:"limits"`
	Scheduler  `yaml:"scheduler"`
}

// HTTPServer настройки HTTP-сервера API.
type HTTPServer struct {
	AddressHTTP string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeout" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// PublicURL используется для return и notify URL платежных провайдеров.
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL" env-default:"http://localhost:8080"`
}

// GRPCServer настройки listener'а health check.
type GRPCServer struct {
	AddressGRPC string `yaml:"address" env:"GRPC_ADDRESS" env-default:":50051"`
}

// Postgres подключение к Supabase, используется в INTL.
type Postgres struct {
	StorageConnectionString string `yaml:"connection_string" env:"SUPABASE_DB_URL"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	// SupabaseJWTSecret проверяет access-токены, выданные Supabase.
	SupabaseJWTSecret string `yaml:"supabase_jwt_secret" env:"SUPABASE_JWT_SECRET"`
}

// CloudBase окружение CloudBase, используется в CN.
type CloudBase struct {
	EnvID       string        `yaml:"env_id" env:"CLOUDBASE_ENV_ID"`
	BaseURL     string        `yaml:"base_url" env:"CLOUDBASE_BASE_URL" env-default:"https://tcb-api.tencentcloudapi.com"`
	AccessToken string        `yaml:"access_token" env:"CLOUDBASE_ACCESS_TOKEN"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// Redis настройки кэша, счетчиков квоты и кэша статистики админки.
type Redis struct {
	AddressRedis string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeout" env-default:"3s"`
}

// RabbitMQ настройки брокера. Пустой URL отключает очереди, обучение
// предпочтений тогда идет в горутине внутри процесса.
type RabbitMQ struct {
	URL string `yaml:"url" env:"RABBITMQ_URL"`
}

// SMTP настройки отправки писем из воркера.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// JWT настройки токенов приложения для пользователей CN.
type JWT struct {
	JWTSecretKey string        `yaml:"secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// WeChat данные OAuth-приложения для входа через WeChat.
type WeChat struct {
	AppID     string `yaml:"app_id" env:"WECHAT_APP_ID"`
	AppSecret string `yaml:"app_secret" env:"WECHAT_APP_SECRET"`
	BaseURL   string `yaml:"base_url" env-default:"https://api.weixin.qq.com"`
}

// AI настройки OpenAI-совместимой модели. В CN BaseURL указывает
// на DeepSeek.
type AI struct {
	BaseURL     string        `yaml:"base_url" env:"AI_BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"AI_API_KEY"`
	Model       string        `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	Timeout     time.Duration `yaml:"timeout" env-default:"25s"`
	Temperature float32       `yaml:"temperature" env-default:"0.9"`
}

// Stripe ключи карточного процессинга INTL.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
}

// PayPal ключи REST API Orders v2.
type PayPal struct {
	ClientID     string `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	WebhookID    string `yaml:"webhook_id" env:"PAYPAL_WEBHOOK_ID"`
	BaseURL      string `yaml:"base_url" env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com"`
}

// WeChatPay данные мерчанта API v3.
type WeChatPay struct {
	AppID                string `yaml:"app_id" env:"WECHATPAY_APP_ID"`
	MchID                string `yaml:"mch_id" env:"WECHATPAY_MCH_ID"`
	MchCertificateSerial string `yaml:"mch_certificate_serial" env:"WECHATPAY_CERT_SERIAL"`
	MchAPIv3Key          string `yaml:"mch_apiv3_key" env:"WECHATPAY_APIV3_KEY"`
	MchPrivateKeyPath    string `yaml:"mch_private_key_path" env:"WECHATPAY_PRIVATE_KEY_PATH"`
}

// Alipay данные приложения open platform. Ключи в PEM или голом base64.
type Alipay struct {
	AppID           string `yaml:"app_id" env:"ALIPAY_APP_ID"`
	PrivateKey      string `yaml:"private_key" env:"ALIPAY_PRIVATE_KEY"`
	AlipayPublicKey string `yaml:"alipay_public_key" env:"ALIPAY_PUBLIC_KEY"`
	Production      bool   `yaml:"production" env:"ALIPAY_PRODUCTION"`
	// Gateway переопределяет адрес шлюза SDK по умолчанию.
	Gateway string `yaml:"gateway" env:"ALIPAY_GATEWAY"`
}

// Admin список аккаунтов с доступом в админку, помимо пользователей
// с ролью admin.
type Admin struct {
	Emails []string `yaml:"emails" env:"ADMIN_EMAILS" env-separator:","`
}

// Limits настройки ограничения запросов и бесплатной квоты.
type Limits struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" env-default:"5"`
	Burst             int           `yaml:"burst" env-default:"10"`
	FreeDailyQuota    int           `yaml:"free_daily_quota" env-default:"10"`
	StatusCacheTTL    time.Duration `yaml:"status_cache_ttl" env-default:"5m"`
	AdminStatsTTL     time.Duration `yaml:"admin_stats_ttl" env-default:"60s"`
}

// Scheduler настройки напоминаний об окончании подписки в воркере.
type Scheduler struct {
	Interval  time.Duration `yaml:"interval" env-default:"12h"`
	Lookahead time.Duration `yaml:"lookahead" env-default:"24h"`
}

// Load читает конфиг по пути path и применяет переменные окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if path == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("config path is empty"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг из CONFIG_PATH, при ошибке завершает процесс.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// IsAdminEmail проверяет, есть ли email в списке администраторов.
func (a Admin) IsAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range a.Emails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// String печатает настройки без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Region: %s\n"+
			"HTTPServer: %s (timeout %s, idle %s)\n"+
			"GRPCServer: %s\n"+
			"Redis: %s db=%d\n"+
			"RabbitMQ enabled: %t\n"+
			"CloudBase env: %s\n"+
			"AI model: %s\n",
		c.Env,
		c.Region,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.AddressGRPC,
		c.AddressRedis, c.DB,
		c.RabbitMQ.URL != "",
		c.EnvID,
		c.Model,
	)
}

package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath              = "config/config.yaml"
	DefaultHourlyWage  int64 = 10030
	DefaultTimeZone          = "Asia/Seoul"
	DefaultAddr              = ":8443"
	AccountKeySize           = 32

	envDBPassword = "ALBA_DB_PASSWORD"
	envJWTSecret  = "ALBA_JWT_SECRET"
	envAccountKey = "ALBA_ACCOUNT_KEY"
)

type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// ServerConfig: cert/key は config/tls/<mode>/ からの相対パス。dev で空なら平文 HTTP
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// PayrollConfig: 時給未設定時のデフォルトはここ一か所で管理する
type PayrollConfig struct {
	DefaultHourlyWage int64  `yaml:"default_hourly_wage"`
	TimeZone          string `yaml:"time_zone"`
}

type CryptoConfig struct {
	// base64 (std) の 32byte 鍵
	AccountKey string `yaml:"account_key"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Auth    AuthConfig     `yaml:"auth"`
	Payroll PayrollConfig  `yaml:"payroll"`
	Crypto  CryptoConfig   `yaml:"crypto"`
}

// Load は yaml を読み込み、.env / 環境変数で秘密情報を上書きしてから検証する。
func Load(path string) (*Config, error) {
	// .env は無くてもよい
	_ = godotenv.Load()

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envDBPassword)); v != "" {
		c.DB.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(envJWTSecret)); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(envAccountKey)); v != "" {
		c.Crypto.AccountKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Payroll.DefaultHourlyWage == 0 {
		c.Payroll.DefaultHourlyWage = DefaultHourlyWage
	}
	if c.Payroll.TimeZone == "" {
		c.Payroll.TimeZone = DefaultTimeZone
	}
}

// Validate は不正なキーをまとめて報告する。
func (c *Config) Validate() error {
	invalid := make([]string, 0, 4)

	if c.Mode != "dev" && c.Mode != "release" {
		invalid = append(invalid, "mode")
	}
	// release は TLS 必須
	if c.Mode == "release" && (c.Server.Cert == "" || c.Server.Key == "") {
		invalid = append(invalid, "server.cert/server.key")
	}
	if c.Payroll.DefaultHourlyWage < 0 {
		invalid = append(invalid, "payroll.default_hourly_wage")
	}
	if _, err := time.LoadLocation(c.Payroll.TimeZone); err != nil {
		invalid = append(invalid, "payroll.time_zone")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		invalid = append(invalid, "auth.jwt_secret")
	}
	if _, err := c.AccountKey(); err != nil {
		invalid = append(invalid, "crypto.account_key")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("設定値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Payroll.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) AccountKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Crypto.AccountKey))
	if err != nil {
		return nil, err
	}
	if len(key) != AccountKeySize {
		return nil, fmt.Errorf("account key must be %d bytes, got %d", AccountKeySize, len(key))
	}
	return key, nil
}

package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host string `mapstructure:"host" json:"host,omitempty"`
		Port int64  `mapstructure:"port" json:"port,omitempty"`
	} `mapstructure:"server" json:"server"`

	Database struct {
		DSN string `mapstructure:"dsn" json:"dsn,omitempty"`
	} `mapstructure:"database" json:"database,omitempty"`

	Redis struct {
		Host     string `mapstructure:"host" json:"host,omitempty"`
		Port     string `mapstructure:"port" json:"port,omitempty"`
		User     string `mapstructure:"user" json:"user,omitempty"`
		Password string `mapstructure:"password" json:"password,omitempty"`
		DB       int    `mapstructure:"db" json:"db,omitempty"`
	} `mapstructure:"redis" json:"redis,omitempty"`

	Router struct {
		Server string `mapstructure:"server" json:"server"`
	} `mapstructure:"router" json:"router,omitempty"`

	Tokens struct {
		Server string `mapstructure:"server" json:"server"`
	} `mapstructure:"tokens" json:"tokens,omitempty"`

	// Engine is passed through to the DCA engine as raw options
	// (contract_addr, refund_target_on_cancel, gas_per_purchase).
	Engine map[string]interface{} `mapstructure:"engine" json:"engine,omitempty"`

	Keeper struct {
		// Schedule is a standard cron expression driving the due-order sweep.
		Schedule string `mapstructure:"schedule" json:"schedule,omitempty"`
		// Executor is the address executor fees are paid to.
		Executor string `mapstructure:"executor" json:"executor,omitempty"`
	} `mapstructure:"keeper" json:"keeper,omitempty"`

	Datadog struct {
		Host string `mapstructure:"host" json:"host,omitempty"`
		Port string `mapstructure:"port" json:"port,omitempty"`
	} `mapstructure:"datadog" json:"datadog"`

	JWTSecret string `mapstructure:"jwt_secret" json:"jwt_secret,omitempty"`
}

func GetConfigure() (*Config, error) {
	configName := os.Getenv("DCA_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}

	return ReadConfig(configName)
}

func ReadConfig(configName string) (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("keeper.schedule", "@every 1m")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg Config
	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &cfg, nil
}

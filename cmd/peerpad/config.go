package main

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	HistoryFile string `mapstructure:"history_file"`
	LogLevel    string `mapstructure:"log_level"`
	MaxPending  int    `mapstructure:"max_pending"`
	User        struct {
		ID   string `mapstructure:"id"`
		Name string `mapstructure:"name"`
	} `mapstructure:"user"`
}

func LoadConfig() (cfg Config, err error) {
	v := viper.New()
	v.SetConfigName("peerpad")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/peerpad")
	v.SetEnvPrefix("peerpad")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", ".peerpad")
	v.SetDefault("history_file", ".peerpad_history")
	v.SetDefault("log_level", "warn")
	v.SetDefault("max_pending", 64)
	v.SetDefault("user.id", "local")
	v.SetDefault("user.name", "local user")

	if err = v.ReadInConfig(); err != nil {
		// the config file is optional, defaults and env cover the rest
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return
		}
		err = nil
	}
	err = v.Unmarshal(&cfg)
	return
}

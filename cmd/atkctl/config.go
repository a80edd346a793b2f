package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asset-tokenization-kit/internal/config"
)

const (
	configFileName = "atk"
	configFileType = "yaml"
	envPrefix      = "ATK"
)

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"use-memory":   "use_memory",
	"postgres-dsn": "postgres_dsn",
	"portal-url":   "portal.url",
}

// loadConfig reads the YAML config file (if any), then ATK_* environment
// variables, then flags set on cmd. Nested keys map to env names with
// underscores, e.g. portal.url -> ATK_PORTAL_URL.
func loadConfig(path string, cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	v.SetConfigType(configFileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register every key so AutomaticEnv can see it on Unmarshal.
	setDefaults(v, "", reflect.ValueOf(config.Default()))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".atk"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c config.Config
	if err := v.Unmarshal(&c); err != nil {
		return config.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// setDefaults walks a config struct and registers each leaf under its
// dotted mapstructure key.
func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			setDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

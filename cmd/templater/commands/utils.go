/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Templater commands. Provides settings
and environment loading, logging setup and the resolver construction used across all
command implementations.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-templater/pkg/actions"
	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadConfig loads .env files, environment and the settings file.
// --author and --default-attack override stored settings for this run.
func LoadConfig(cmd *cobra.Command) (*settings.Store, *settings.Settings, error) {
	if err := settings.LoadEnvFiles(viper.GetString("env_file")); err != nil {
		return nil, nil, err
	}

	viper.SetEnvPrefix(settings.EnvPrefix)
	viper.AutomaticEnv()

	store := settings.NewStore(viper.GetString("config"))
	for key, flag := range map[string]string{
		settings.KeyAuthor:        "author",
		settings.KeyDefaultAttack: "default-attack",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := store.Viper().BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}

	st, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	return store, st, nil
}

// SetupLogging creates the logger from the logging flags
func SetupLogging() (*logging.Logger, error) {
	config := logging.DefaultConfig()
	config.Level = logging.LogLevel(viper.GetString("log_level"))
	config.Format = logging.LogFormat(viper.GetString("log_format"))
	config.OutputDir = viper.GetString("log_dir")
	config.Caller = config.Level == logging.LogLevelDebug

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newResolver builds a resolver from the settings
func newResolver(st *settings.Settings, logger *logging.Logger) *actions.Resolver {
	return actions.NewResolver(actions.Config{
		Author:        st.Author,
		DefaultAttack: st.DefaultAttack,
		Logger:        logger.GetLogger(),
	})
}

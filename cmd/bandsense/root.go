package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-sod/bandsense/internal/buildinfo"
	"github.com/go-sod/bandsense/internal/integration"
)

const envPrefix = "BANDSENSE_CLI"

type cli struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), out: os.Stdout}
	var configFile string

	root := &cobra.Command{
		Use:           "bandsense",
		Short:         "Control a bandsense server",
		Version:       buildinfo.Info.Tag(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.initConfig(cmd, configFile)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/bandsense/bandsense.toml)")
	root.PersistentFlags().String("server", "localhost:8787", "server address")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		c.initCmd(),
		c.statusCmd(),
		c.collectCmd(),
		c.countsCmd(),
		c.fitCmd(),
		c.predictCmd(),
		c.resetCmd(),
		c.streamCmd(),
	)
	return root
}

// initConfig layers flags over environment over the config file.
func (c *cli) initConfig(cmd *cobra.Command, configFile string) error {
	if configFile != "" {
		c.v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(filepath.Join(home, ".config", "bandsense"))
		}
		c.v.AddConfigPath(".")
		c.v.SetConfigName("bandsense")
		c.v.SetConfigType("toml")
	}

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return c.v.BindPFlags(cmd.InheritedFlags())
}

func (c *cli) client() *integration.Client {
	return integration.NewClient(c.v.GetString("server"))
}

func (c *cli) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.v.GetDuration("timeout"))
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

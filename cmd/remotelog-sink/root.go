package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tarmac-project/remotelog/logging"
)

type app struct {
	v          *viper.Viper
	out        io.Writer
	configFile string

	// logger replaces the configured zap logger when set.
	logger *zap.Logger
}

func newApp(out io.Writer) *app {
	return &app{v: newViper(), out: out}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remotelog-sink",
		Short:         "Receive remotelog batches and log them locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configFile == "" {
				return nil
			}
			a.v.SetConfigFile(a.configFile)
			return a.v.ReadInConfig()
		},
	}
	cmd.SetOut(a.out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "read configuration from `FILE`")
	flags.String("level", "info", "lowest remote `LEVEL` written by the sink")
	flags.String("logger-name", "", "log every record under `NAME` instead of its category")
	flags.Bool("development", false, "use the human readable development logger")
	_ = a.v.BindPFlag("level", flags.Lookup("level"))
	_ = a.v.BindPFlag("logger_name", flags.Lookup("logger-name"))
	_ = a.v.BindPFlag("development", flags.Lookup("development"))

	cmd.AddCommand(newServeCmd(a), newDecodeCmd(a))
	return cmd
}

func (a *app) buildLogger(cfg Config) (*zap.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(logging.ZapLevel(cfg.Level))
	return zc.Build()
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmac-project/remotelog/server"
	"github.com/tarmac-project/remotelog/wire"
)

func newDecodeCmd(a *app) *cobra.Command {
	var format, encoding string

	cmd := &cobra.Command{
		Use:   "decode [FILE]",
		Short: "Decode a captured batch and log its records",
		Long:  "Decode reads a batch payload from FILE, or stdin when FILE is - or omitted, and logs every record as the sink would.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}

			f, err := parseFormat(format)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}

			return decode(a, cmd.OutOrStdout(), cfg, in, f, encoding)
		},
	}

	cmd.Flags().StringVar(&format, "format", "proto", "payload `FORMAT`, proto or json")
	cmd.Flags().StringVar(&encoding, "encoding", "", "payload compression, gzip or zstd")
	return cmd
}

func parseFormat(s string) (wire.Format, error) {
	switch s {
	case "proto", "protobuf":
		return wire.FormatProto, nil
	case "json":
		return wire.FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

func decode(a *app, out io.Writer, cfg Config, in io.Reader, format wire.Format, encoding string) error {
	logger, err := a.buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	payload, err := server.ReadPayload(in, encoding, cfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	b, err := wire.DecodeBatch(payload, format)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{Logger: logger, LoggerNameOverride: cfg.LoggerName, MaxBodyBytes: cfg.MaxBodyBytes})
	if err != nil {
		return err
	}

	id := b.ID
	if id == "" {
		id = "-"
	}
	fmt.Fprintf(out, "batch %s: %d records\n", id, len(b.Records))
	if msg := srv.LogOnServer(b.Records); msg != "" {
		fmt.Fprintf(out, "first failure: %s\n", msg)
	}
	return nil
}

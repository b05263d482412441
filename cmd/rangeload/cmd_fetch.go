package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newFetchCmd() *cobra.Command {
	var (
		flags  sessionFlags
		output string
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <url|file>",
		Short: "Download a document through the loader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			data, s, err := flags.session(args[0]).BytesWithStats(ctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}

			if output == "" || output == "-" {
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			} else if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			if stats {
				printStats(os.Stderr, s)
			} else if output != "" && output != "-" {
				message.NewPrinter(language.English).Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(data), output)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print loader statistics to stderr")
	return cmd
}

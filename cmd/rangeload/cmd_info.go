package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tsawler/rangeload/loader"
	"github.com/tsawler/rangeload/reader"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newInfoCmd() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "info <url|file>",
		Short: "Describe a PDF, reading as little of it as possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			info, stats, err := flags.session(args[0]).Info(ctx)
			if err != nil {
				printStats(os.Stderr, stats)
				return fmt.Errorf("info %s: %w", args[0], err)
			}
			printInfo(cmd.OutOrStdout(), info)
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printInfo(w io.Writer, info *reader.Info) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "version:    %s\n", info.Version)
	p.Fprintf(w, "size:       %d bytes\n", info.Size)
	p.Fprintf(w, "pages:      %d\n", info.Pages)
	p.Fprintf(w, "objects:    %d\n", info.Objects)
	p.Fprintf(w, "linearized: %t\n", info.Linearized)
	p.Fprintf(w, "encrypted:  %t\n", info.Encrypted)

	for _, field := range []struct{ name, value string }{
		{"title", info.Title},
		{"author", info.Author},
		{"subject", info.Subject},
		{"creator", info.Creator},
		{"producer", info.Producer},
	} {
		if field.value != "" {
			p.Fprintf(w, "%-11s %s\n", field.name+":", field.value)
		}
	}
}

func printStats(w io.Writer, s loader.Stats) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "loader:     %s", s.Mode)
	if s.Reason != loader.ReasonNone {
		p.Fprintf(w, " (%s)", s.Reason)
	}
	p.Fprintf(w, "\n")
	p.Fprintf(w, "streamed:   %d bytes\n", s.Streamed)
	p.Fprintf(w, "available:  %d bytes\n", s.Available)
	p.Fprintf(w, "fetches:    %d issued, %d coalesced, %d bytes discarded\n",
		s.FetchesIssued, s.CoalescedRequests, s.DiscardedFetchBytes)
	p.Fprintf(w, "requests:   %d completed, %d over the network\n",
		s.CompletedRangeRequests, s.CompletedNetworkRangeRequests)
}

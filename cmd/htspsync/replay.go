// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/config"
	"github.com/ManuGH/htspsync/internal/customprops"
	"github.com/ManuGH/htspsync/internal/htsp"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/session"
	"github.com/ManuGH/htspsync/internal/snapshot"
	"github.com/spf13/cobra"
)

// methodConnected is a replay-only pseudo event that starts a new connection epoch.
const methodConnected = "connected"

// errOffline answers every request during a replay.
var errOffline = errors.New("replay: no server connection")

type offlineTransport struct{}

func (offlineTransport) SendAndWait(context.Context, string, htsp.Message) (htsp.Message, error) {
	return nil, errOffline
}

type replayStats struct {
	Lines    int
	Applied  int
	Rejected int
	Invalid  int
}

// replayEvents feeds a JSONL event stream into s. Each line is one event
// object carrying its method in the "method" field.
func replayEvents(r io.Reader, s *session.Session) (replayStats, error) {
	var st replayStats
	logger := xglog.WithComponent("replay")

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		st.Lines++

		msg, err := htsp.Decode(line)
		if err != nil {
			st.Invalid++
			logger.Warn().Err(err).Int("line", st.Lines).Msg("skipping undecodable line")
			continue
		}
		method, _ := msg.Str(htsp.FieldMethod)
		if method == methodConnected {
			s.Connected()
			st.Applied++
			continue
		}
		if err := s.Dispatch(method, msg); err != nil {
			st.Rejected++
			continue
		}
		st.Applied++
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read events: %w", err)
	}
	return st, nil
}

func newReplayCmd() *cobra.Command {
	var (
		asJSON     bool
		exportPath string
		noConnect  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <events.jsonl|->",
		Short: "Apply a recorded event stream and print the resulting rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			settings := config.NewHolder(cfg, nil, "")
			s := session.New(offlineTransport{}, settings, customprops.ForAutorec(profilesFrom(cfg)))
			if !noConnect {
				s.Connected()
			}

			st, err := replayEvents(in, s)
			if err != nil {
				return err
			}
			l := xglog.WithComponent("replay")
			l.Info().
				Int("lines", st.Lines).
				Int("applied", st.Applied).
				Int("rejected", st.Rejected).
				Int("invalid", st.Invalid).
				Msg("replay finished")

			records := s.Records()
			if exportPath != "" {
				if err := snapshot.WriteJSON(cmd.Context(), exportPath, records); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s.Timers())
			}
			return printRules(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print timers as JSON")
	cmd.Flags().StringVar(&exportPath, "export", "", "also write the rules to this JSON file")
	cmd.Flags().BoolVar(&noConnect, "no-connect", false, "do not start an epoch before the first line")
	return cmd
}

func printRules(w io.Writer, records []autorec.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCAL\tSERVER ID\tENABLED\tNAME\tTITLE\tCHANNEL\tWINDOW")
	for _, r := range records {
		window := "any"
		if r.StartWindowBegin != autorec.StartAnytime {
			window = fmt.Sprintf("%s-%s", hhmm(r.StartWindowBegin), hhmm(r.StartWindowEnd))
		}
		channel := "any"
		if r.Channel > 0 {
			channel = fmt.Sprint(r.Channel)
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\t%s\t%s\n",
			r.LocalID, r.ServerID, r.Enabled, r.DisplayName(), r.Title, channel, window)
	}
	return tw.Flush()
}

func hhmm(mins int32) string {
	if mins < 0 {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

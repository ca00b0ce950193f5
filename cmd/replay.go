package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/repository"
	"enclosure_gateway/internal/service"

	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed a raw telemetry trail through a fresh core and print the entries it logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			stats, err := replay(cmd.Context(), f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "lines=%d dropped=%d entries=%d\n", stats.lines, stats.dropped, stats.entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "data.txt", "raw telemetry trail to replay")
	return cmd
}

type replayStats struct {
	lines   int
	dropped int
	entries int
}

// replay runs every line of r through an in-memory core and writes each
// appended entry to w as one JSON line.
func replay(ctx context.Context, r io.Reader, w io.Writer) (replayStats, error) {
	var stats replayStats
	core := service.NewCore(ctx, repository.NewLogMemory(), logger.Nop(), service.CoreOptions{})
	enc := json.NewEncoder(w)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.lines++
		appended, err := core.ApplyTelemetry(ctx, sc.Text())
		if errors.Is(err, service.ErrParse) {
			stats.dropped++
			continue
		}
		if err != nil {
			return stats, err
		}
		for _, e := range appended {
			if err := enc.Encode(e); err != nil {
				return stats, err
			}
			stats.entries++
		}
	}
	return stats, sc.Err()
}

package cmd

import (
	"context"
	"fmt"
	"io"

	"pixelplay/playback"
	"pixelplay/player"
	"pixelplay/upstream"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// probeCmd fetches and decodes a file to check it is playable
var probeCmd = &cobra.Command{
	Use:   "probe <id>",
	Short: "Fetch a file and report its audio format",
	Long: `Fetch a file from the upstream host, decode it and print its content type,
size and duration. Useful to check that a file will play in the embed page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := upstream.NewClient(cfg.Upstream)
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt64("limit")
		return probe(cmd.Context(), cmd.OutOrStdout(), client, args[0], limit)
	},
}

func init() {
	probeCmd.Flags().Int64("limit", playback.DefaultMaxFetch, "largest file to fetch, in bytes")
	rootCmd.AddCommand(probeCmd)
}

func probe(ctx context.Context, w io.Writer, opener playback.Opener, id string, limit int64) error {
	if ctx == nil {
		ctx = context.Background()
	}

	track, err := playback.Fetch(ctx, opener, id, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", id, err)
	}

	stream, format, err := track.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", id, err)
	}
	defer stream.Close()

	duration := "unknown"
	if n := stream.Len(); n >= 0 {
		duration = player.FormatTime(format.SampleRate.D(n).Seconds())
	}

	fmt.Fprintf(w, "ID:           %s\n", track.ID)
	fmt.Fprintf(w, "Content type: %s\n", track.ContentType)
	fmt.Fprintf(w, "Size:         %s\n", humanize.IBytes(uint64(len(track.Data))))
	fmt.Fprintf(w, "Sample rate:  %d Hz\n", format.SampleRate)
	fmt.Fprintf(w, "Channels:     %d\n", format.NumChannels)
	fmt.Fprintf(w, "Duration:     %s\n", duration)
	return nil
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pixelplay/playback"
	"pixelplay/player"
	"pixelplay/upstream"

	"github.com/spf13/cobra"
)

// seekBar is the virtual progress bar used to turn a fraction into a pointer position.
var seekBar = player.Rect{Left: 0, Width: 1000}

// playCmd previews a file on the local audio device
var playCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Play a file on the local audio device",
	Long: `Fetch a file from the upstream host and play it through the same player
state machine the embed page uses. Commands are read from stdin:

  p          toggle play/pause
  s <0..1>   seek to a fraction of the track
  v <0..1>   set the volume
  q          quit`,
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

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		limit, _ := cmd.Flags().GetInt64("limit")
		track, err := playback.Fetch(ctx, client, args[0], limit)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", args[0], err)
		}

		stream, format, err := track.Decode()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", args[0], err)
		}

		sink, err := playback.NewSpeaker(format.SampleRate)
		if err != nil {
			stream.Close()
			return err
		}
		defer sink.Close()

		engine := playback.New(sink, 250*time.Millisecond)
		defer engine.Close()

		p := player.New(engine)
		defer p.Close()

		engine.Load(stream, format)

		return runPlayer(p, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	playCmd.Flags().Int64("limit", playback.DefaultMaxFetch, "largest file to fetch, in bytes")
	rootCmd.AddCommand(playCmd)
}

// runPlayer applies stdin commands to p until q or end of input.
func runPlayer(p *player.Player, in io.Reader, out io.Writer) error {
	printStatus(out, p.Snapshot())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			printStatus(out, p.Snapshot())
			continue
		}

		switch fields[0] {
		case "p":
			p.TogglePlay()
		case "s", "v":
			if len(fields) != 2 {
				fmt.Fprintf(out, "usage: %s <0..1>\n", fields[0])
				continue
			}
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Fprintf(out, "not a number: %q\n", fields[1])
				continue
			}
			if fields[0] == "s" {
				p.Seek(seekBar.Left+f*seekBar.Width, seekBar)
			} else {
				p.SetVolume(f)
			}
		case "q":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q (p, s <0..1>, v <0..1>, q)\n", fields[0])
			continue
		}

		printStatus(out, p.Snapshot())
	}

	return scanner.Err()
}

func printStatus(w io.Writer, s player.Snapshot) {
	fmt.Fprintf(w, "[%s] %s / %s  %3.0f%%  vol %3.0f%%\n",
		s.State, s.Current, s.Duration, s.Progress, s.Volume*100)
}

// Simulates a media player appending playback samples to the spool file
// that `edumentor study` tails. Useful for demos and manual testing of the
// progress pipeline without a real player.
//
// Usage: go run ./cmd/playback-sim --spool ~/.local/state/edumentor/events.jsonl --course c-1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/progress"
)

func main() {
	spool := flag.String("spool", "", "playback spool path (required)")
	course := flag.String("course", "", "course ID to play (required)")
	duration := flag.Float64("duration", 600, "course duration in seconds")
	start := flag.Float64("start", 0, "starting position in seconds")
	speed := flag.Float64("speed", 10, "playback seconds advanced per wall-clock second")
	interval := flag.Duration("interval", time.Second, "time between samples")
	flag.Parse()

	if *spool == "" || *course == "" {
		fmt.Fprintln(os.Stderr, "usage: playback-sim --spool <path> --course <id> [--duration s] [--speed x]")
		os.Exit(2)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	position := *start

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Playing %s into %s (%.0fs at %.1fx)\n", *course, *spool, *duration, *speed)

	for position < *duration {
		select {
		case <-stop:
			fmt.Println("\nStopped.")

			return
		case <-ticker.C:
		}

		position += *speed * interval.Seconds()
		if position > *duration {
			position = *duration
		}

		if err := appendSample(*spool, *course, position, *duration); err != nil {
			fmt.Fprintf(os.Stderr, "writing sample: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\r%s: %.0f/%.0fs", *course, position, *duration)
	}

	fmt.Println("\nFinished.")
}

func appendSample(path, courseID string, position, duration float64) error {
	line, err := json.Marshal(progress.PlaybackSample{
		CourseID:        courseID,
		PositionSeconds: position,
		DurationSeconds: duration,
		At:              api.NewTime(time.Now()),
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

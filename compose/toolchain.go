package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Toolchain abstracts ffmpeg/ffprobe so composition can be exercised in
// tests without a media stack installed.
type Toolchain interface {
	// Run invokes one ffmpeg encode pass
	Run(ctx context.Context, args ...string) error
	// Probe returns a media file's duration in seconds
	Probe(ctx context.Context, file string) (float64, error)
}

// FFmpeg shells out to the system ffmpeg/ffprobe binaries
type FFmpeg struct{}

func (FFmpeg) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (FFmpeg) Probe(ctx context.Context, file string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

package compose

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"affirmation-pipeline/types"
)

// Composer renders a RenderJob into a local artifact via staged ffmpeg
// passes: base background, one text-overlay pass per affirmation, then the
// audio mux. Carousel jobs render one still card per affirmation instead.
type Composer struct {
	tools Toolchain
}

func New(tools Toolchain) *Composer {
	return &Composer{tools: tools}
}

// Window is one affirmation's on-screen time span
type Window struct {
	Start   float64
	End     float64
	FadeSec float64
}

// Windows partitions the job duration across its affirmations. SlideSec, if
// set, fixes every window's length; otherwise the total is split equally.
func Windows(job *types.RenderJob) []Window {
	n := len(job.Affirmations)
	if n == 0 {
		return nil
	}
	slide := job.SlideSec
	if slide <= 0 {
		slide = job.TotalSec / float64(n)
	}
	out := make([]Window, n)
	for i := range out {
		start := float64(i) * slide
		out[i] = Window{
			Start:   start,
			End:     start + slide,
			FadeSec: slide * job.FadeFraction,
		}
	}
	return out
}

// Compose renders the job and verifies the result before returning it
func (c *Composer) Compose(ctx context.Context, job *types.RenderJob) (*types.VideoArtifact, error) {
	if job.Mode == types.RenderModeCarousel {
		return c.composeCarousel(ctx, job)
	}
	return c.composeVideo(ctx, job)
}

func (c *Composer) composeVideo(ctx context.Context, job *types.RenderJob) (*types.VideoArtifact, error) {
	log.Printf("[compose] Rendering %dx%d video, %.0fs, %d affirmations...",
		job.Width, job.Height, job.TotalSec, len(job.Affirmations))

	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create work dir: %v", types.ErrEncoding, err)
	}

	base := filepath.Join(job.WorkDir, "base.mp4")
	if err := c.renderBase(ctx, job, base); err != nil {
		return nil, fmt.Errorf("%w: base pass: %v", types.ErrEncoding, err)
	}

	// One drawtext pass per affirmation, each consuming the previous output
	current := base
	for i, win := range Windows(job) {
		next := filepath.Join(job.WorkDir, fmt.Sprintf("overlay_%02d.mp4", i))
		if err := c.renderOverlay(ctx, job, current, next, i, win); err != nil {
			return nil, fmt.Errorf("%w: overlay %d: %v", types.ErrEncoding, i, err)
		}
		current = next
	}

	audio := filepath.Join(job.WorkDir, "audio.m4a")
	if err := c.renderAudio(ctx, job, audio); err != nil {
		return nil, fmt.Errorf("%w: audio pass: %v", types.ErrEncoding, err)
	}

	if err := c.mux(ctx, current, audio, job.OutputPath); err != nil {
		return nil, fmt.Errorf("%w: mux: %v", types.ErrEncoding, err)
	}

	dur, err := c.tools.Probe(ctx, job.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: probe output: %v", types.ErrEncoding, err)
	}
	frame := 1.0 / float64(job.FPS)
	if math.Abs(dur-job.TotalSec) > frame+1e-3 {
		return nil, fmt.Errorf("%w: output duration %.3fs, wanted %.3fs (±%.3fs)",
			types.ErrEncoding, dur, job.TotalSec, frame)
	}

	fi, err := os.Stat(job.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat output: %v", types.ErrEncoding, err)
	}

	log.Printf("[compose] ✅ Video ready: %s (%.1f MB, %.2fs)",
		job.OutputPath, float64(fi.Size())/1024/1024, dur)
	return &types.VideoArtifact{
		Path:        job.OutputPath,
		Name:        filepath.Base(job.OutputPath),
		SizeBytes:   fi.Size(),
		DurationSec: dur,
		Mode:        types.RenderModeVideo,
	}, nil
}

// renderBase loops the background image for the full duration
func (c *Composer) renderBase(ctx context.Context, job *types.RenderJob, outFile string) error {
	return c.tools.Run(ctx, "-y",
		"-loop", "1",
		"-i", job.BackgroundImage,
		"-t", fmt.Sprintf("%.3f", job.TotalSec),
		"-vf", scalePad(job.Width, job.Height)+",setsar=1",
		"-r", fmt.Sprintf("%d", job.FPS),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
}

// renderOverlay draws one affirmation with fade in/out at its window
// boundaries. The first slide skips the fade-in so the video opens with
// text already visible.
func (c *Composer) renderOverlay(ctx context.Context, job *types.RenderJob, inFile, outFile string, idx int, win Window) error {
	text := wrapText(job.Affirmations[idx], maxLineChars(job.Width, job.FontSize))

	alpha := fadeAlpha(win, idx == 0)
	filter := fmt.Sprintf(
		"drawtext=fontfile='%s':text='%s':fontsize=%d:fontcolor=black:borderw=1:bordercolor=black"+
			":x=(w-text_w)/2:y=(h-text_h)/2:alpha='%s':enable='between(t,%.3f,%.3f)'",
		escapeDrawtext(job.FontFile), escapeDrawtext(text), job.FontSize,
		alpha, win.Start, win.End,
	)

	return c.tools.Run(ctx, "-y",
		"-i", inFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
}

// renderAudio loops or trims the background music to the video duration
func (c *Composer) renderAudio(ctx context.Context, job *types.RenderJob, outFile string) error {
	return c.tools.Run(ctx, "-y",
		"-stream_loop", "-1",
		"-i", job.BackgroundMusic,
		"-t", fmt.Sprintf("%.3f", job.TotalSec),
		"-filter:a", fmt.Sprintf("volume=%.2f", job.MusicVolume),
		"-c:a", "aac",
		"-b:a", "128k",
		outFile,
	)
}

func (c *Composer) mux(ctx context.Context, videoFile, audioFile, outFile string) error {
	return c.tools.Run(ctx, "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	)
}

// composeCarousel renders one still card per affirmation for the
// swipeable-post variant. OutputPath is treated as the card directory.
func (c *Composer) composeCarousel(ctx context.Context, job *types.RenderJob) (*types.VideoArtifact, error) {
	log.Printf("[compose] Rendering %d carousel cards at %dx%d...",
		len(job.Affirmations), job.Width, job.Height)

	if err := os.MkdirAll(job.OutputPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: create card dir: %v", types.ErrEncoding, err)
	}

	var cards []string
	var total int64
	for i, affirmation := range job.Affirmations {
		card := filepath.Join(job.OutputPath, fmt.Sprintf("card_%02d.jpg", i+1))
		text := wrapText(affirmation, maxLineChars(job.Width, job.FontSize))
		filter := scalePad(job.Width, job.Height) + fmt.Sprintf(
			",drawtext=fontfile='%s':text='%s':fontsize=%d:fontcolor=black:x=(w-text_w)/2:y=(h-text_h)/2",
			escapeDrawtext(job.FontFile), escapeDrawtext(text), job.FontSize,
		)
		err := c.tools.Run(ctx, "-y",
			"-i", job.BackgroundImage,
			"-vf", filter,
			"-frames:v", "1",
			"-q:v", "2",
			card,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %v", types.ErrEncoding, i, err)
		}
		if fi, err := os.Stat(card); err == nil {
			total += fi.Size()
		}
		cards = append(cards, card)
	}

	log.Printf("[compose] ✅ %d cards ready in %s", len(cards), job.OutputPath)
	return &types.VideoArtifact{
		Path:      cards[0],
		Name:      filepath.Base(job.OutputPath),
		SizeBytes: total,
		Mode:      types.RenderModeCarousel,
		Cards:     cards,
	}, nil
}

func scalePad(w, h int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h, w, h)
}

// fadeAlpha builds the drawtext alpha expression for a window's fade
// boundaries. Fade length is FadeFraction of the window on each side.
func fadeAlpha(win Window, skipFadeIn bool) string {
	in := fmt.Sprintf("(t-%.3f)/%.3f", win.Start, win.FadeSec)
	if skipFadeIn {
		in = "1"
	}
	return fmt.Sprintf(
		"if(lt(t,%.3f),%s,if(lt(t,%.3f),1,(%.3f-t)/%.3f))",
		win.Start+win.FadeSec, in,
		win.End-win.FadeSec,
		win.End, win.FadeSec,
	)
}

// maxLineChars estimates how many characters fit in the drawable width,
// keeping a 50px margin on each side like the original layout
func maxLineChars(width, fontSize int) int {
	usable := float64(width - 100)
	perChar := float64(fontSize) * 0.55
	n := int(usable / perChar)
	if n < 8 {
		n = 8
	}
	return n
}

// wrapText inserts line breaks so no line exceeds maxChars. Words longer
// than the limit stay on their own line rather than being cut.
func wrapText(text string, maxChars int) string {
	words := strings.Fields(text)
	var lines []string
	var line string
	for _, word := range words {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= maxChars:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// escapeDrawtext escapes the characters drawtext treats specially inside a
// single-quoted filter argument
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

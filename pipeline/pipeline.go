package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"affirmation-pipeline/assets"
	"affirmation-pipeline/config"
	"affirmation-pipeline/publish"
	"affirmation-pipeline/types"
)

// Stage names the orchestrator's states. A run walks them strictly in
// order; StageFailed is reachable from any non-terminal stage.
type Stage string

const (
	StageGenerating Stage = "GENERATING"
	StageComposing  Stage = "COMPOSING"
	StageUploading  Stage = "UPLOADING"
	StagePublishing Stage = "PUBLISHING"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// Capability interfaces over the stage components. Retries live inside the
// components; the orchestrator attempts each transition exactly once.

type ContentGenerator interface {
	Generate(ctx context.Context, count, maxChars int, styleHint string) (*types.AffirmationSet, error)
}

type AssetResolver interface {
	Resolve(ctx context.Context, v config.VariantConfig) (*assets.Bundle, error)
}

type Composer interface {
	Compose(ctx context.Context, job *types.RenderJob) (*types.VideoArtifact, error)
}

// Guard wraps composition with resource monitoring and guaranteed work-dir
// cleanup on every exit path
type Guard interface {
	Guard(ctx context.Context, workDir string, fn func(context.Context) error) error
}

type Uploader interface {
	Upload(ctx context.Context, artifact *types.VideoArtifact) (*types.RemoteReference, error)
}

type Publisher interface {
	PublishAll(ctx context.Context, post *publish.Post) []types.PostResult
}

// Deps collects the stage components handed to the orchestrator
type Deps struct {
	Generator ContentGenerator
	Assets    AssetResolver
	Composer  Composer
	Monitor   Guard
	Uploader  Uploader
	Publisher Publisher
}

// Pipeline sequences one run: generate → compose → upload → publish. It
// never recovers across stages and never deletes an artifact that hasn't
// been confirmed uploaded and published.
type Pipeline struct {
	cfg     *config.Config
	variant string
	vcfg    config.VariantConfig
	deps    Deps
}

func New(cfg *config.Config, variantName string, deps Deps) (*Pipeline, error) {
	vcfg, err := cfg.Variant(variantName)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:     cfg,
		variant: variantName,
		vcfg:    vcfg,
		deps:    deps,
	}, nil
}

// run carries the artifacts flowing between stages of one execution
type run struct {
	p        *Pipeline
	state    *types.RunState
	set      *types.AffirmationSet
	artifact *types.VideoArtifact
	remote   *types.RemoteReference
}

// Run executes the full state machine once and returns the final state.
// The returned error is non-nil exactly when the run ends in StageFailed.
func (p *Pipeline) Run(ctx context.Context) (*types.RunState, error) {
	runID := uuid.NewString()[:8]
	state := &types.RunState{
		RunID:     runID,
		Variant:   p.variant,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	r := &run{p: p, state: state}

	log.Printf("🎬 Affirmation pipeline starting — Run ID: %s, variant: %s", runID, p.variant)
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		r.saveState()
	}()

	transitions := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageGenerating, r.generate},
		{StageComposing, r.compose},
		{StageUploading, r.upload},
		{StagePublishing, r.publish},
	}

	for _, t := range transitions {
		log.Printf("━━━ STAGE: %s ━━━", t.stage)
		if err := t.fn(ctx); err != nil {
			state.FailedStage = string(t.stage)
			state.Error = err.Error()
			r.record(StageFailed, fmt.Sprintf("%s: %v", t.stage, err))
			r.preserveArtifact()
			log.Printf("❌ Run failed at %s: %v", t.stage, err)
			return state, fmt.Errorf("stage %s: %w", t.stage, err)
		}
		r.record(t.stage, "ok")
	}

	r.cleanup()
	r.record(StageDone, "ok")
	log.Printf("✅ Run complete — %d post(s), artifact %s", len(state.Posts), describeArtifact(r.artifact))
	return state, nil
}

func (r *run) generate(ctx context.Context) error {
	set, err := r.p.deps.Generator.Generate(ctx, r.p.vcfg.Count, r.p.vcfg.MaxChars, r.p.vcfg.StyleHint)
	if err != nil {
		return err
	}
	r.set = set
	r.state.Set = set
	return nil
}

func (r *run) compose(ctx context.Context) error {
	bundle, err := r.p.deps.Assets.Resolve(ctx, r.p.vcfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.p.cfg.Paths.Output, 0755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", types.ErrEncoding, err)
	}

	job := r.buildJob(bundle)
	err = r.p.deps.Monitor.Guard(ctx, job.WorkDir, func(ctx context.Context) error {
		artifact, err := r.p.deps.Composer.Compose(ctx, job)
		if err != nil {
			return err
		}
		r.artifact = artifact
		return nil
	})
	if err != nil {
		return err
	}
	r.state.Artifact = r.artifact
	return nil
}

func (r *run) upload(ctx context.Context) error {
	remote, err := r.p.deps.Uploader.Upload(ctx, r.artifact)
	if err != nil {
		return err
	}
	r.remote = remote
	r.state.Remote = remote
	return nil
}

func (r *run) publish(ctx context.Context) error {
	results := r.p.deps.Publisher.PublishAll(ctx, &publish.Post{
		Artifact: r.artifact,
		Remote:   r.remote,
		Caption:  r.set.Caption,
	})
	r.state.Posts = results

	if len(results) == 0 {
		log.Println("[pipeline] No platforms configured for this artifact — skipping publish")
		return nil
	}
	for _, res := range results {
		if res.Success {
			return nil // partial success still completes the run
		}
	}
	return fmt.Errorf("%w: every platform failed", types.ErrPublishTransport)
}

// buildJob turns the variant config, resolved assets and generated set
// into the composer's recipe. Output paths are date-stamped so re-running
// the same slot overwrites rather than accumulates.
func (r *run) buildJob(bundle *assets.Bundle) *types.RenderJob {
	date := time.Now().Format("2006-01-02")
	v := r.p.vcfg

	var outputPath string
	if v.Mode == "carousel" {
		outputPath = filepath.Join(r.p.cfg.Paths.Output, fmt.Sprintf("%s_%s_carousel", r.set.Theme, date))
	} else {
		outputPath = filepath.Join(r.p.cfg.Paths.Output, fmt.Sprintf("%s_%s.mp4", r.set.Theme, date))
	}

	return &types.RenderJob{
		Mode:            types.RenderMode(v.Mode),
		Width:           v.Width,
		Height:          v.Height,
		FPS:             v.FPS,
		TotalSec:        v.DurationSec,
		SlideSec:        v.SlideSec,
		FadeFraction:    v.FadeFraction,
		MusicVolume:     v.MusicVolume,
		FontSize:        v.FontSize,
		BackgroundImage: bundle.BackgroundImage,
		BackgroundMusic: bundle.BackgroundMusic,
		FontFile:        bundle.FontFile,
		Affirmations:    r.set.Affirmations,
		OutputPath:      outputPath,
		WorkDir:         filepath.Join(r.p.cfg.Paths.Output, r.state.RunID+"_work"),
	}
}

// cleanup deletes the local artifact only when retention is off and both
// upload and every attempted platform succeeded; anything less keeps the
// file and logs where it is
func (r *run) cleanup() {
	if r.artifact == nil {
		return
	}
	if r.p.cfg.Upload.KeepLocal {
		log.Printf("[pipeline] Keeping local artifact: %s", r.artifact.Path)
		return
	}
	for _, res := range r.state.Posts {
		if !res.Success {
			log.Printf("[pipeline] %s did not succeed — retaining local artifact: %s", res.Platform, r.artifact.Path)
			return
		}
	}
	r.removeArtifact()
	log.Println("[pipeline] Local artifact removed after confirmed upload and publish")
}

func (r *run) removeArtifact() {
	if r.artifact.Mode == types.RenderModeCarousel {
		for _, card := range r.artifact.Cards {
			_ = os.Remove(card)
		}
		_ = os.Remove(filepath.Dir(r.artifact.Path))
		return
	}
	_ = os.Remove(r.artifact.Path)
}

// preserveArtifact logs where a failed run's artifact survives for manual
// recovery. Nothing is ever deleted on the failure path.
func (r *run) preserveArtifact() {
	if r.artifact != nil {
		log.Printf("[pipeline] Artifact preserved for manual recovery: %s", r.artifact.Path)
	}
}

func (r *run) record(stage Stage, outcome string) {
	rec := types.RunRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stage:     string(stage),
		Outcome:   outcome,
	}
	r.state.Records = append(r.state.Records, rec)
	log.Printf("[pipeline] %s → %s", rec.Stage, rec.Outcome)
}

func (r *run) saveState() {
	if err := os.MkdirAll(r.p.cfg.Paths.Logs, 0755); err != nil {
		log.Printf("Warning: could not create logs dir: %v", err)
		return
	}
	path := filepath.Join(r.p.cfg.Paths.Logs, fmt.Sprintf("run_%s.json", r.state.RunID))
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal run state: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}

func describeArtifact(a *types.VideoArtifact) string {
	if a == nil {
		return "<none>"
	}
	return a.Name
}

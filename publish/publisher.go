package publish

import (
	"context"
	"log"

	"affirmation-pipeline/types"
)

// Post is everything a platform needs to publish one run's output
type Post struct {
	Artifact *types.VideoArtifact
	Remote   *types.RemoteReference
	Caption  string
}

// Platform is one social destination. Publish is self-contained: it
// validates, retries its own transport failures, and reports a PostResult
// rather than failing the run.
type Platform interface {
	Name() string
	Supports(mode types.RenderMode) bool
	Publish(ctx context.Context, post *Post) types.PostResult
}

// CaptionLogger records published captions for later reuse
type CaptionLogger interface {
	Append(ctx context.Context, videoName, caption string) error
}

// Publisher fans one post out to every configured platform. Platforms are
// fully independent: a validation or transport failure on one never stops
// the others, and partial success is a reportable outcome, not an error.
type Publisher struct {
	platforms []Platform
	captions  CaptionLogger // optional
}

func NewPublisher(platforms []Platform, captions CaptionLogger) *Publisher {
	return &Publisher{platforms: platforms, captions: captions}
}

// PublishAll returns one PostResult per platform that supports the
// artifact's render mode
func (p *Publisher) PublishAll(ctx context.Context, post *Post) []types.PostResult {
	var results []types.PostResult
	anySuccess := false

	for _, platform := range p.platforms {
		if !platform.Supports(post.Artifact.Mode) {
			log.Printf("[publish] %s does not support %s posts — skipping", platform.Name(), post.Artifact.Mode)
			continue
		}
		log.Printf("[publish] Posting to %s...", platform.Name())
		res := platform.Publish(ctx, post)
		if res.Success {
			anySuccess = true
			log.Printf("[publish] ✅ %s post created: %s", res.Platform, res.PostID)
		} else {
			log.Printf("[publish] ❌ %s failed: %s", res.Platform, res.Error)
		}
		results = append(results, res)
	}

	if anySuccess && p.captions != nil {
		if err := p.captions.Append(ctx, post.Artifact.Name, post.Caption); err != nil {
			log.Printf("[publish] Warning: caption log append failed: %v", err)
		}
	}
	return results
}

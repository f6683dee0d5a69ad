package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"affirmation-pipeline/types"
)

const themeSystemPrompt = "You are a professional content creator."

const themePrompt = `Generate a single word theme for daily affirmations. The theme should be:
1. Positive and uplifting
2. Universal and relatable
3. Simple and clear
4. Suitable for personal development

Examples: Growth, Courage, Peace, Joy, Strength, Balance, Wisdom, Love, Hope, Power

Return just the single word theme.`

const affirmationSystemPrompt = "You are a professional affirmation writer. Respond with ONLY valid JSON."

const captionSystemPrompt = "You are a professional social media content creator. Respond with ONLY the caption text."

const standardHashtags = "#Affirmations #DailyAffirmations #PositiveAffirmations #SelfLove #SelfCare #PositiveVibes #Motivation #Mindset #Gratitude #Positivity #Healing #Manifestation #Inspiration #Mindfulness #AffirmationOfTheDay #affirmationjournal"

// Generator produces one run's affirmation set via the completion service
type Generator struct {
	client Completer
}

func NewGenerator(client Completer) *Generator {
	return &Generator{client: client}
}

type affirmationsJSON struct {
	Affirmations []string `json:"affirmations"`
}

// Generate returns exactly count affirmations, each non-empty and at most
// maxChars long, plus a theme and caption. A malformed or short response
// gets one retry with a stricter prompt; after that the run aborts.
func (g *Generator) Generate(ctx context.Context, count, maxChars int, styleHint string) (*types.AffirmationSet, error) {
	log.Println("[content] Generating theme...")

	theme, err := g.client.Complete(ctx, themeSystemPrompt, themePrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: theme: %v", types.ErrContentGeneration, err)
	}
	theme = strings.Trim(strings.TrimSpace(theme), `"'.`)
	if theme == "" {
		return nil, fmt.Errorf("%w: empty theme", types.ErrContentGeneration)
	}
	// Single word only — keep the first if the model rambles
	if fields := strings.Fields(theme); len(fields) > 1 {
		theme = fields[0]
	}
	log.Printf("[content] Theme: %q", theme)

	affirmations, err := g.generateAffirmations(ctx, theme, count, maxChars, styleHint)
	if err != nil {
		return nil, err
	}

	caption, err := g.generateCaption(ctx, theme, affirmations)
	if err != nil {
		return nil, fmt.Errorf("%w: caption: %v", types.ErrContentGeneration, err)
	}

	log.Printf("[content] ✅ %d affirmations ready (theme %q)", len(affirmations), theme)
	return &types.AffirmationSet{
		Theme:        theme,
		Affirmations: affirmations,
		Caption:      caption,
	}, nil
}

func (g *Generator) generateAffirmations(ctx context.Context, theme string, count, maxChars int, styleHint string) ([]string, error) {
	prompt := buildAffirmationPrompt(theme, count, maxChars, styleHint, false)

	affirmations, err := g.requestAffirmations(ctx, prompt, count, maxChars)
	if err == nil {
		return affirmations, nil
	}

	// One retry with a stricter prompt before giving up
	log.Printf("[content] Affirmation response rejected (%v) — retrying with stricter prompt", err)
	strict := buildAffirmationPrompt(theme, count, maxChars, styleHint, true)
	affirmations, retryErr := g.requestAffirmations(ctx, strict, count, maxChars)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %v (after retry: %v)", types.ErrContentGeneration, err, retryErr)
	}
	return affirmations, nil
}

func (g *Generator) requestAffirmations(ctx context.Context, prompt string, count, maxChars int) ([]string, error) {
	content, err := g.client.Complete(ctx, affirmationSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var raw affirmationsJSON
	if err := json.Unmarshal([]byte(cleanJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("parse affirmations JSON: %v", err)
	}

	if len(raw.Affirmations) != count {
		return nil, fmt.Errorf("expected %d affirmations, got %d", count, len(raw.Affirmations))
	}
	out := make([]string, 0, count)
	for i, a := range raw.Affirmations {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, fmt.Errorf("affirmation %d is empty", i)
		}
		if len(a) > maxChars {
			return nil, fmt.Errorf("affirmation %d is %d chars, max %d: %q", i, len(a), maxChars, a)
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *Generator) generateCaption(ctx context.Context, theme string, affirmations []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create a short, engaging caption for a post with theme %q containing these affirmations:\n", theme))
	sb.WriteString(strings.Join(affirmations, "\n"))
	sb.WriteString("\n\nThe caption should:\n")
	sb.WriteString("1. Be 1-2 sentences and under 100 characters\n")
	sb.WriteString("2. NOT include any quotation marks\n")
	sb.WriteString("3. Be uplifting and relatable\n")
	sb.WriteString(fmt.Sprintf("4. Focus on the theme: %s\n\n", theme))
	sb.WriteString("Respond with ONLY the caption text, no additional formatting or explanation.")

	caption, err := g.client.Complete(ctx, captionSystemPrompt, sb.String())
	if err != nil {
		return "", err
	}
	caption = strings.ReplaceAll(strings.TrimSpace(caption), `"`, "")
	if caption == "" {
		return "", fmt.Errorf("empty caption")
	}

	themeHashtag := "#" + strings.ReplaceAll(theme, "-", "")
	return caption + "\n\n" + standardHashtags + "\n" + themeHashtag, nil
}

func buildAffirmationPrompt(theme string, count, maxChars int, styleHint string, strict bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate %d unique, powerful affirmations based on the theme %q that are:\n", count, theme))
	sb.WriteString(fmt.Sprintf("1. Short and concise (at most %d characters each, including spaces)\n", maxChars))
	sb.WriteString("2. Positive and uplifting\n")
	sb.WriteString("3. Personal, in first person and present tense\n")
	sb.WriteString("4. Easy to read quickly on screen\n")
	sb.WriteString("5. Avoid assumptions about health, wealth, or relationships\n")
	if styleHint != "" {
		sb.WriteString(fmt.Sprintf("6. %s\n", styleHint))
	}
	sb.WriteString("\nExamples of good length:\n")
	sb.WriteString("- \"I am strong and capable\"\n")
	sb.WriteString("- \"I choose happiness today\"\n")
	sb.WriteString("- \"I trust my inner wisdom\"\n\n")
	sb.WriteString(fmt.Sprintf("Format your response as a JSON object like this:\n{\"affirmations\": [%s]}\n", exampleArray(count)))
	if strict {
		sb.WriteString(fmt.Sprintf("\nIMPORTANT: Respond with ONLY the JSON object. The array MUST contain exactly %d strings. ", count))
		sb.WriteString(fmt.Sprintf("Every string MUST be %d characters or fewer. No markdown, no explanation, no extra fields.", maxChars))
	}
	return sb.String()
}

func exampleArray(count int) string {
	items := make([]string, count)
	for i := range items {
		items[i] = fmt.Sprintf("\"affirmation%d\"", i+1)
	}
	return strings.Join(items, ", ")
}

// cleanJSON strips markdown fences if the model wraps its response in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

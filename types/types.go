package types

// AffirmationSet holds one run's generated text, immutable after generation
type AffirmationSet struct {
	Theme        string   `json:"theme"`
	Affirmations []string `json:"affirmations"`
	Caption      string   `json:"caption"`
}

// RenderMode selects the output shape a variant produces
type RenderMode string

const (
	RenderModeVideo    RenderMode = "video"    // single vertical mp4
	RenderModeCarousel RenderMode = "carousel" // one still card per affirmation
)

// RenderJob is the full recipe for one compose call
type RenderJob struct {
	Mode            RenderMode `json:"mode"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	FPS             int        `json:"fps"`
	TotalSec        float64    `json:"total_sec"`
	SlideSec        float64    `json:"slide_sec"` // 0 means equal partition of TotalSec
	FadeFraction    float64    `json:"fade_fraction"`
	MusicVolume     float64    `json:"music_volume"`
	FontSize        int        `json:"font_size"`
	BackgroundImage string     `json:"background_image"`
	BackgroundMusic string     `json:"background_music"`
	FontFile        string     `json:"font_file"`
	Affirmations    []string   `json:"affirmations"`
	OutputPath      string     `json:"output_path"`
	WorkDir         string     `json:"work_dir"`
}

// VideoArtifact is the rendered output on local disk
type VideoArtifact struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	SizeBytes   int64      `json:"size_bytes"`
	DurationSec float64    `json:"duration_sec"`
	Mode        RenderMode `json:"mode"`
	Cards       []string   `json:"cards,omitempty"` // carousel mode only
}

// RemoteReference is the result of a successful upload
type RemoteReference struct {
	Key         string   `json:"key,omitempty"`
	URL         string   `json:"url,omitempty"`
	DriveFileID string   `json:"drive_file_id,omitempty"`
	CardURLs    []string `json:"card_urls,omitempty"`
}

// PostResult is the per-platform publish outcome
type PostResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   string `json:"post_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunRecord is one stage-transition log entry
type RunRecord struct {
	Timestamp string `json:"timestamp"`
	Stage     string `json:"stage"`
	Outcome   string `json:"outcome"`
}

// RunState tracks the full state of one pipeline run
type RunState struct {
	RunID       string           `json:"run_id"`
	Variant     string           `json:"variant"`
	StartedAt   string           `json:"started_at"`
	CompletedAt string           `json:"completed_at"`
	Set         *AffirmationSet  `json:"set,omitempty"`
	Artifact    *VideoArtifact   `json:"artifact,omitempty"`
	Remote      *RemoteReference `json:"remote,omitempty"`
	Posts       []PostResult     `json:"posts,omitempty"`
	Records     []RunRecord      `json:"records,omitempty"`
	FailedStage string           `json:"failed_stage,omitempty"`
	Error       string           `json:"error,omitempty"`
}

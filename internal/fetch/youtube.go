package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/nao1215/satyagyan/internal/model"
)

// Transcript is the spoken content of a YouTube video.
type Transcript struct {
	VideoID  string
	Title    string
	Author   string
	Duration time.Duration
	// Language is the caption language used, empty for a fallback.
	Language string
	Text     string
	// Fallback reports that no captions were available and Text holds the
	// video description instead.
	Fallback  bool
	Truncated bool
}

// Content returns the transcript as a single block for the model.
func (t *Transcript) Content() string {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "Video: %s\n", t.Title)
	}
	if t.Author != "" {
		fmt.Fprintf(&b, "Channel: %s\n", t.Author)
	}
	if t.Fallback {
		b.WriteString("Description (no transcript available):\n")
	} else {
		b.WriteString("Transcript:\n")
	}
	b.WriteString(t.Text)
	return b.String()
}

// videoSource is the part of the YouTube client TranscriptFetcher uses.
type videoSource interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

// TranscriptFetcher downloads video metadata and captions.
type TranscriptFetcher struct {
	source    videoSource
	languages []string
	maxChars  int
	logger    *slog.Logger
}

// TranscriptOption configures a TranscriptFetcher.
type TranscriptOption func(*TranscriptFetcher)

// WithLanguage sets the preferred caption language. English is always
// tried as a second choice.
func WithLanguage(lang string) TranscriptOption {
	return func(f *TranscriptFetcher) {
		if lang == "" {
			return
		}
		f.languages = []string{lang}
		if lang != "en" {
			f.languages = append(f.languages, "en")
		}
	}
}

// WithTranscriptMaxChars limits the transcript length. Zero keeps everything.
func WithTranscriptMaxChars(n int) TranscriptOption {
	return func(f *TranscriptFetcher) {
		f.maxChars = n
	}
}

// WithTranscriptLogger sets the logger.
func WithTranscriptLogger(l *slog.Logger) TranscriptOption {
	return func(f *TranscriptFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewTranscriptFetcher creates a fetcher that talks to YouTube through client.
// A nil client uses http.DefaultClient.
func NewTranscriptFetcher(client *http.Client, opts ...TranscriptOption) *TranscriptFetcher {
	return newTranscriptFetcher(&youtube.Client{HTTPClient: client}, opts...)
}

func newTranscriptFetcher(src videoSource, opts ...TranscriptOption) *TranscriptFetcher {
	f := &TranscriptFetcher{
		source:    src,
		languages: []string{"en"},
		maxChars:  DefaultMaxChars,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the transcript of the video at videoURL.
// Videos without captions fall back to their description.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoURL string) (*Transcript, error) {
	id := model.YouTubeVideoID(videoURL)
	if id == "" {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidYouTubeURL, videoURL)
	}

	video, err := f.source.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load video %s: %w", id, err)
	}

	t := &Transcript{
		VideoID:  id,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}

	for _, lang := range f.languages {
		segments, err := f.source.GetTranscriptCtx(ctx, video, lang)
		if err != nil {
			f.logger.Debug("transcript unavailable", "video", id, "language", lang, "error", err)
			continue
		}
		if text := joinSegments(segments); text != "" {
			t.Language = lang
			t.Text = text
			break
		}
	}

	if t.Text == "" {
		desc := strings.TrimSpace(video.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoTranscript, id)
		}
		t.Text = desc
		t.Fallback = true
	}

	t.Text, t.Truncated = Truncate(t.Text, f.maxChars)
	return t, nil
}

func joinSegments(segments youtube.VideoTranscript) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return CollapseWhitespace(strings.Join(parts, " "))
}

package model

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// InputKind identifies how the user supplied the content to check.
type InputKind string

const (
	// InputText is a claim typed in by the user.
	InputText InputKind = "text"

	// InputURL is a web page whose content should be checked.
	InputURL InputKind = "url"

	// InputYouTube is a YouTube video whose transcript should be checked.
	InputYouTube InputKind = "youtube"

	// InputDocument is an uploaded PDF, DOCX or TXT file that has already
	// been decoded to text.
	InputDocument InputKind = "document"
)

// String returns the kind as a plain string.
func (k InputKind) String() string {
	return string(k)
}

// youtubeVideoPattern matches the two URL shapes YouTube links come in and
// captures the video ID.
var youtubeVideoPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`)

// Input is a single piece of content submitted for fact checking.
// Exactly one of Text, URL or Content is meaningful, depending on Kind.
type Input struct {
	// Kind selects which of the other fields carries the content.
	Kind InputKind `json:"kind"`

	// Text is the claim for InputText.
	Text string `json:"text,omitempty"`

	// URL is the address for InputURL and InputYouTube.
	URL string `json:"url,omitempty"`

	// FileName is the original name of an uploaded document.
	FileName string `json:"file_name,omitempty"`

	// Content is the decoded text of an uploaded document.
	// It is excluded from JSON because documents can be large; the
	// extracted content is stored on the report instead.
	Content string `json:"-"`
}

// NewTextInput creates an input for a typed claim.
func NewTextInput(text string) Input {
	return Input{Kind: InputText, Text: text}
}

// NewURLInput creates an input for a web page.
func NewURLInput(rawURL string) Input {
	return Input{Kind: InputURL, URL: strings.TrimSpace(rawURL)}
}

// NewYouTubeInput creates an input for a YouTube video.
func NewYouTubeInput(rawURL string) Input {
	return Input{Kind: InputYouTube, URL: strings.TrimSpace(rawURL)}
}

// NewDocumentInput creates an input for a decoded document.
func NewDocumentInput(fileName, content string) Input {
	return Input{Kind: InputDocument, FileName: fileName, Content: content}
}

// DetectInput classifies free-form user input.
// YouTube links become InputYouTube, other http(s) links become InputURL,
// and anything else is treated as a claim.
func DetectInput(s string) Input {
	trimmed := strings.TrimSpace(s)
	if IsYouTubeURL(trimmed) {
		return NewYouTubeInput(trimmed)
	}
	if isHTTPURL(trimmed) {
		return NewURLInput(trimmed)
	}
	return NewTextInput(s)
}

// IsYouTubeURL reports whether s links to a YouTube video.
func IsYouTubeURL(s string) bool {
	return YouTubeVideoID(s) != ""
}

// YouTubeVideoID extracts the video ID from a YouTube URL.
// Returns an empty string when s is not a YouTube video link.
func YouTubeVideoID(s string) string {
	matches := youtubeVideoPattern.FindStringSubmatch(s)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// isHTTPURL reports whether s is an absolute http or https URL with a host.
func isHTTPURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Validate checks that the input carries usable content for its kind.
func (in Input) Validate() error {
	switch in.Kind {
	case InputText:
		if strings.TrimSpace(in.Text) == "" {
			return ErrInputRequired
		}
	case InputURL:
		if strings.TrimSpace(in.URL) == "" {
			return ErrInputRequired
		}
		if !isHTTPURL(in.URL) {
			return fmt.Errorf("%w: %s", ErrInvalidURL, in.URL)
		}
	case InputYouTube:
		if strings.TrimSpace(in.URL) == "" {
			return ErrInputRequired
		}
		if !IsYouTubeURL(in.URL) {
			return fmt.Errorf("%w: %s", ErrInvalidYouTubeURL, in.URL)
		}
	case InputDocument:
		if strings.TrimSpace(in.Content) == "" {
			return ErrInputRequired
		}
	case "":
		return ErrInputRequired
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInputKind, in.Kind)
	}
	return nil
}

// Subject returns the string handed to the pipeline as the content under
// examination: the claim, the link, or the document text.
func (in Input) Subject() string {
	switch in.Kind {
	case InputURL, InputYouTube:
		return in.URL
	case InputDocument:
		return in.Content
	default:
		return in.Text
	}
}

// Label returns a short, single-line description of the input for
// reports and history listings.
func (in Input) Label() string {
	switch in.Kind {
	case InputURL, InputYouTube:
		return in.URL
	case InputDocument:
		if in.FileName != "" {
			return in.FileName
		}
		return "uploaded document"
	default:
		return Truncate(strings.Join(strings.Fields(in.Text), " "), 80)
	}
}

// Fingerprint returns a stable BLAKE2b-256 digest of the input kind and
// subject. Two submissions of the same content share a fingerprint, which
// is what the result cache and feed deduplication key on.
func (in Input) Fingerprint() string {
	subject := strings.TrimSpace(in.Subject())
	sum := blake2b.Sum256([]byte(string(in.Kind) + "\x00" + subject))
	return hex.EncodeToString(sum[:])
}

// Truncate shortens s to at most maxLen runes, adding an ellipsis when
// anything was removed.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

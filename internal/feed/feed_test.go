package feed

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"

	"github.com/nao1215/satyagyan/internal/model"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Claims Daily</title>
  <link>https://claims.example</link>
  <description>Claims worth checking</description>
  <item>
    <title>Moon landing staged, says blog</title>
    <link>https://news.example.com/moon</link>
    <description>A blog post repeats the hoax.</description>
  </item>
  <item>
    <title>Video: vaccines and autism</title>
    <link>https://www.youtube.com/watch?v=abc123</link>
  </item>
  <item>
    <title>Drinking water cures colds</title>
    <description>&lt;p&gt;Viral &lt;b&gt;post&lt;/b&gt; claims hydration cures colds.&lt;/p&gt;</description>
  </item>
  <item>
    <title></title>
    <description></description>
  </item>
</channel>
</rss>`

const testAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom claims</title>
  <entry>
    <title>Great Wall visible from space</title>
    <link href="https://atom.example/wall"/>
    <id>urn:1</id>
    <updated>2026-01-01T00:00:00Z</updated>
  </entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSS)) //nolint:errcheck
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(testAtom)) //nolint:errcheck
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	server := newFeedServer(t)

	t.Run("rss items become inputs", func(t *testing.T) {
		t.Parallel()

		inputs, err := NewLoader(server.Client()).Load(t.Context(), server.URL+"/rss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(inputs) != 3 {
			t.Fatalf("expected 3 inputs, got %d: %+v", len(inputs), inputs)
		}

		if inputs[0].Kind != model.InputURL || inputs[0].URL != "https://news.example.com/moon" {
			t.Errorf("unexpected first input: %+v", inputs[0])
		}
		if inputs[1].Kind != model.InputYouTube {
			t.Errorf("expected YouTube input, got %+v", inputs[1])
		}
		if inputs[2].Kind != model.InputText {
			t.Fatalf("expected text input, got %+v", inputs[2])
		}
		want := "Drinking water cures colds\n\nViral post claims hydration cures colds."
		if inputs[2].Text != want {
			t.Errorf("Text = %q, want %q", inputs[2].Text, want)
		}
	})

	t.Run("atom feed", func(t *testing.T) {
		t.Parallel()

		inputs, err := NewLoader(server.Client()).Load(t.Context(), server.URL+"/atom")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(inputs) != 1 || inputs[0].URL != "https://atom.example/wall" {
			t.Errorf("unexpected inputs: %+v", inputs)
		}
	})

	t.Run("max items", func(t *testing.T) {
		t.Parallel()

		inputs, err := NewLoader(server.Client(), WithMaxItems(1)).Load(t.Context(), server.URL+"/rss")
		if err != nil {
			t.Fatal(err)
		}
		if len(inputs) != 1 {
			t.Errorf("expected 1 input, got %d", len(inputs))
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		_, err := NewLoader(server.Client()).Load(t.Context(), server.URL+"/gone")
		if err == nil || !strings.Contains(err.Error(), "410") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("local file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "feed.xml")
		if err := os.WriteFile(path, []byte(testAtom), 0o600); err != nil {
			t.Fatal(err)
		}
		inputs, err := NewLoader(nil).Load(t.Context(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(inputs) != 1 {
			t.Errorf("expected 1 input, got %d", len(inputs))
		}
	})

	t.Run("not a feed", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLoader(nil).Parse(strings.NewReader("just words")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestItemInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		item   *gofeed.Item
		wantOK bool
		want   model.Input
	}{
		{"nil item", nil, false, model.Input{}},
		{"link wins", &gofeed.Item{Title: "t", Link: " https://a.example/x "}, true, model.NewURLInput("https://a.example/x")},
		{"non-http link falls back to text", &gofeed.Item{Title: "claim", Link: "urn:x"}, true, model.NewTextInput("claim")},
		{"description equal to title", &gofeed.Item{Title: "same", Description: "same"}, true, model.NewTextInput("same")},
		{"empty item", &gofeed.Item{Title: "  "}, false, model.Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ItemInput(tt.item)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

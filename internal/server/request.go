package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/nao1215/satyagyan/internal/extract"
	"github.com/nao1215/satyagyan/internal/model"
)

// checkRequest is the JSON body of POST /api/check.
type checkRequest struct {
	Text       string `json:"text"`
	URL        string `json:"url"`
	YouTubeURL string `json:"youtube_url"`
}

// input converts the request to a model.Input. Exactly one field must be
// set.
func (c checkRequest) input() (model.Input, error) {
	var inputs []model.Input
	if strings.TrimSpace(c.Text) != "" {
		inputs = append(inputs, model.NewTextInput(c.Text))
	}
	if strings.TrimSpace(c.URL) != "" {
		inputs = append(inputs, model.NewURLInput(c.URL))
	}
	if strings.TrimSpace(c.YouTubeURL) != "" {
		inputs = append(inputs, model.NewYouTubeInput(c.YouTubeURL))
	}
	switch len(inputs) {
	case 0:
		return model.Input{}, ErrNoInput
	case 1:
		return inputs[0], nil
	default:
		return model.Input{}, ErrAmbiguousInput
	}
}

// inputError marks errors caused by the request rather than the server.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(err error) error {
	return &inputError{err: err}
}

// parseAPIRequest reads a JSON body or a multipart form with a "file"
// part.
func (s *Server) parseAPIRequest(r *http.Request) (model.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty media type falls through to JSON
	if mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded" {
		return s.parseForm(r)
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Input{}, badInput(fmt.Errorf("invalid JSON body: %w", err))
	}
	in, err := req.input()
	if err != nil {
		return model.Input{}, badInput(err)
	}
	return in, nil
}

// parseForm reads the HTML form. The "mode" field selects which field is
// used; without it the first non-empty field wins.
func (s *Server) parseForm(r *http.Request) (model.Input, error) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return model.Input{}, badInput(fmt.Errorf("invalid form: %w", err))
	}

	mode := r.FormValue("mode")
	if mode == string(model.InputDocument) || (mode == "" && hasFile(r)) {
		return s.parseUpload(r)
	}

	req := checkRequest{}
	switch mode {
	case string(model.InputText):
		req.Text = r.FormValue("text")
	case string(model.InputURL):
		req.URL = r.FormValue("url")
	case string(model.InputYouTube):
		req.YouTubeURL = r.FormValue("youtube_url")
	case "":
		req = checkRequest{
			Text:       r.FormValue("text"),
			URL:        r.FormValue("url"),
			YouTubeURL: r.FormValue("youtube_url"),
		}
	default:
		return model.Input{}, badInput(fmt.Errorf("%w: %q", model.ErrUnknownInputKind, mode))
	}

	in, err := req.input()
	if err != nil {
		return model.Input{}, badInput(err)
	}
	return in, nil
}

func hasFile(r *http.Request) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0
}

func (s *Server) parseUpload(r *http.Request) (model.Input, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return model.Input{}, badInput(ErrNoInput)
	}
	defer file.Close()

	if !extract.IsSupported(header.Filename) {
		return model.Input{}, badInput(extract.ErrUnsupportedFormat)
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		return model.Input{}, badInput(err)
	}
	if int64(len(data)) > s.maxUploadSize {
		return model.Input{}, badInput(fmt.Errorf("file exceeds the %d byte upload limit", s.maxUploadSize))
	}

	text, err := extract.FromFile(header.Filename, data)
	if err != nil {
		return model.Input{}, badInput(err)
	}
	return model.NewDocumentInput(header.Filename, text), nil
}

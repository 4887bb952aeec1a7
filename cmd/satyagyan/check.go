package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/satyagyan/internal/extract"
	"github.com/nao1215/satyagyan/internal/model"
)

// errNoInput is returned when check is run without a claim, URL, video or file.
var errNoInput = errors.New("nothing to check: pass a claim, --url, --youtube or --file")

// errAmbiguousInput is returned when more than one input source is given.
var errAmbiguousInput = errors.New("pass only one of a claim, --url, --youtube or --file")

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [claim]",
		Short: "Fact-check a claim, web page, YouTube video or document",
		Long: `Check runs the research, analysis and verification stages on one input
and prints the verdict with its evidence.

The input is one of:
  - a claim given as arguments
  - a web page (--url)
  - a YouTube video (--youtube), checked through its captions
  - a PDF, DOCX or text document (--file)

A recent identical check is answered from history unless --no-cache is set.

Examples:
  # Check a typed claim
  satyagyan check "The Great Wall of China is visible from space"

  # Check a news article and save a Markdown report
  satyagyan check --url https://example.com/article -m -o report.md

  # Check a video through Tor
  satyagyan check --youtube https://youtu.be/dQw4w9WgXcQ --tor

  # Check a document and print JSON
  satyagyan check --file claims.pdf --json`,
		RunE: runCheck,
	}

	addEngineFlags(cmd)
	flags := cmd.Flags()
	flags.String("url", "", "Web page to fact-check")
	flags.String("youtube", "", "YouTube video to fact-check")
	flags.StringP("file", "f", "", "Document to fact-check (.pdf, .docx, .txt)")
	flags.BoolP("json", "j", false, "Output report in JSON format")
	flags.BoolP("markdown", "m", false, "Output report in Markdown format")
	flags.StringP("output", "o", "", "Write report to file instead of stdout")
	flags.BoolP("quiet", "q", false, "Do not print progress")

	return cmd
}

// runCheck executes the check command.
func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	input, err := inputFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	quiet, _ := cmd.Flags().GetBool("quiet")

	a, err := newApp(cmd.Context(), cfg, logger, progressPrinter(cmd.ErrOrStderr(), quiet))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	logger.Info("starting fact check",
		"input", input.Label(),
		"kind", input.Kind,
		"model", cfg.ModelName(),
	)

	r, checkErr := a.checker.Check(cmd.Context(), input)
	if r == nil {
		return checkErr
	}

	if err := writeReport(cfg, cmd.OutOrStdout(), r); err != nil {
		return err
	}

	// The report of a failed check has been printed; the error still
	// makes the command exit non-zero.
	return checkErr
}

// inputFromFlags builds the input from the positional claim or exactly one
// of --url, --youtube and --file.
func inputFromFlags(cmd *cobra.Command, args []string) (model.Input, error) {
	flags := cmd.Flags()
	claim := strings.TrimSpace(strings.Join(args, " "))
	url := strings.TrimSpace(stringFlag(flags, "url"))
	video := strings.TrimSpace(stringFlag(flags, "youtube"))
	file := strings.TrimSpace(stringFlag(flags, "file"))

	given := 0
	for _, v := range []string{claim, url, video, file} {
		if v != "" {
			given++
		}
	}
	switch {
	case given == 0:
		return model.Input{}, errNoInput
	case given > 1:
		return model.Input{}, errAmbiguousInput
	}

	switch {
	case url != "":
		return model.NewURLInput(url), nil
	case video != "":
		return model.NewYouTubeInput(video), nil
	case file != "":
		text, err := extract.FromPath(file)
		if err != nil {
			return model.Input{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
		return model.NewDocumentInput(filepath.Base(file), text), nil
	default:
		return model.NewTextInput(claim), nil
	}
}

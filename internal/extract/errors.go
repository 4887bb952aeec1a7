package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .pdf, .docx and .txt.
	ErrUnsupportedFormat = errors.New("unsupported format: please upload a PDF, Word document, or text file")

	// ErrFileProcessing wraps any failure to parse a supported document.
	ErrFileProcessing = errors.New("error processing file")

	// ErrUndecodableText is returned when a text file matches none of the
	// supported encodings.
	ErrUndecodableText = errors.New("unable to decode text file: please ensure UTF-8 encoding")
)

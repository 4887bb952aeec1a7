package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Supported file extensions.
const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
	ExtTXT  = ".txt"
)

// SupportedExtensions lists the extensions FromFile accepts.
var SupportedExtensions = []string{ExtPDF, ExtDOCX, ExtTXT}

// IsSupported reports whether name has a supported extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// FromFile extracts the text of a document. The format is chosen from the
// extension of name; data is the raw file content.
func FromFile(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtPDF:
		text, err := fromPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileProcessing, err)
		}
		return text, nil
	case ExtDOCX:
		text, err := fromDOCX(data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileProcessing, err)
		}
		return text, nil
	case ExtTXT:
		return DecodeText(data)
	default:
		return "", ErrUnsupportedFormat
	}
}

// FromPath reads the file at path and extracts its text.
func FromPath(path string) (string, error) {
	if !IsSupported(path) {
		return "", ErrUnsupportedFormat
	}
	data, err := os.ReadFile(path) //nolint:gosec // User-provided document path is intentional
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileProcessing, err)
	}
	return FromFile(path, data)
}

// textDecoder is one candidate encoding for DecodeText.
type textDecoder struct {
	name   string
	decode func(raw []byte) (string, bool)
}

var textDecoders = []textDecoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "utf-16", decode: decodeUTF16},
	{name: "latin-1", decode: decodeLatin1},
	{name: "cp1252", decode: decodeCP1252},
}

// DecodeText decodes the raw bytes of a text file.
func DecodeText(raw []byte) (string, error) {
	text, _, err := Decode(raw)
	return text, err
}

// Decode is DecodeText that also reports the encoding that was used.
func Decode(raw []byte) (text, encodingName string, err error) {
	for _, d := range textDecoders {
		s, ok := d.decode(raw)
		if !ok {
			continue
		}
		if strings.ContainsRune(s, 0) {
			return "", "", ErrUndecodableText
		}
		return s, d.name, nil
	}
	return "", "", ErrUndecodableText
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(bytes.TrimPrefix(raw, []byte("\xEF\xBB\xBF"))), true
}

// decodeUTF16 only accepts input that starts with a byte-order mark.
// Without one almost any even-length byte string would decode.
func decodeUTF16(raw []byte) (string, bool) {
	if !bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		return "", false
	}
	return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw)
}

// decodeLatin1 rejects text that would contain C1 control characters:
// bytes 0x80-0x9F are printable punctuation in Windows-1252 and almost
// never intended as controls.
func decodeLatin1(raw []byte) (string, bool) {
	s, ok := decodeWith(charmap.ISO8859_1, raw)
	if !ok {
		return "", false
	}
	for _, r := range s {
		if r >= 0x80 && r <= 0x9F {
			return "", false
		}
	}
	return s, true
}

func decodeCP1252(raw []byte) (string, bool) {
	return decodeWith(charmap.Windows1252, raw)
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// fromPDF returns the plain text of every page, concatenated in page order.
func fromPDF(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

const docxBody = "word/document.xml"

var errNoDocumentBody = errors.New("word/document.xml not found")

// fromDOCX returns the text of every w:p paragraph joined with newlines.
func fromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return paragraphs(rc)
	}
	return "", errNoDocumentBody
}

// paragraphs returns the text of every w:p element, one per line. A
// paragraph nested inside another one (text boxes, table cells) is emitted
// on its own when it closes and does not disturb the outer paragraph.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paras  []string
		open   []*strings.Builder
		inText bool
	)
	top := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		cur := top()
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					cur.WriteString("\t")
				}
			case "br", "cr":
				if cur != nil {
					cur.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if cur != nil {
					paras = append(paras, cur.String())
					open = open[:len(open)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && cur != nil {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}

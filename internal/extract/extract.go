// Package extract pulls plain text out of uploaded study files. Office
// formats (docx, pptx, xlsx) are zip archives containing XML; the text lives
// in well-known elements, so extraction walks the XML token stream instead
// of pulling in a full document library.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinContentLength is the minimum extracted length for an upload to count
// as study material.
const MinContentLength = 10

// maxUploadSize caps how much of an upload is read.
const maxUploadSize = 16 << 20

var ErrUnsupportedType = errors.New("unsupported file type")

// ErrTooShort is returned when a file yields less than MinContentLength
// characters of text.
var ErrTooShort = errors.New("could not extract text from file or file is empty")

var allowedExtensions = []string{".txt", ".md", ".docx", ".pptx", ".xlsx"}

// Allowed reports whether the filename has a supported extension.
func Allowed(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AllowedList returns the supported extensions for error messages.
func AllowedList() string {
	return strings.Join(allowedExtensions, ", ")
}

// Text extracts the text content of an uploaded file based on its extension.
func Text(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadSize))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	var text string
	switch strings.ToLower(path.Ext(filename)) {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: not valid UTF-8 text", filename)
		}
		text = string(data)
	case ".docx":
		text, err = docxText(data)
	case ".pptx":
		text, err = pptxText(data)
	case ".xlsx":
		text, err = xlsxText(data)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}

	if len(strings.TrimSpace(text)) < MinContentLength {
		return "", ErrTooShort
	}
	return text, nil
}

func openArchive(data []byte) (*zip.Reader, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening document archive: %w", err)
	}
	return archive, nil
}

// docxText joins the paragraphs of word/document.xml. Paragraphs are w:p
// elements; the text itself sits in w:t runs.
func docxText(data []byte) (string, error) {
	archive, err := openArchive(data)
	if err != nil {
		return "", err
	}

	doc, err := readArchiveFile(archive, "word/document.xml")
	if err != nil {
		return "", err
	}

	var parts []string
	var paragraph strings.Builder

	decoder := xml.NewDecoder(bytes.NewReader(doc))
	var inText bool
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(paragraph.String()); s != "" {
					parts = append(parts, s)
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}
		}
	}
	if s := strings.TrimSpace(paragraph.String()); s != "" {
		parts = append(parts, s)
	}

	return strings.Join(parts, "\n\n"), nil
}

// pptxText joins the text of each slide, in slide order. Slide text sits in
// a:t elements under ppt/slides/slideN.xml.
func pptxText(data []byte) (string, error) {
	archive, err := openArchive(data)
	if err != nil {
		return "", err
	}

	var slides []string
	for _, f := range archive.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f.Name)
		}
	}
	// slide10.xml sorts before slide2.xml lexically; order by name length first.
	sort.Slice(slides, func(i, j int) bool {
		if len(slides[i]) != len(slides[j]) {
			return len(slides[i]) < len(slides[j])
		}
		return slides[i] < slides[j]
	})

	var parts []string
	for _, name := range slides {
		content, err := readArchiveFile(archive, name)
		if err != nil {
			return "", err
		}
		texts, err := collectElementText(content, "t")
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", name, err)
		}
		parts = append(parts, texts...)
	}

	return strings.Join(parts, "\n\n"), nil
}

// xlsxText extracts sheet names and the shared string table, which holds all
// text cells of a workbook.
func xlsxText(data []byte) (string, error) {
	archive, err := openArchive(data)
	if err != nil {
		return "", err
	}

	var parts []string

	if workbook, err := readArchiveFile(archive, "xl/workbook.xml"); err == nil {
		names, err := sheetNames(workbook)
		if err != nil {
			return "", err
		}
		for _, name := range names {
			parts = append(parts, "Sheet: "+name)
		}
	}

	if shared, err := readArchiveFile(archive, "xl/sharedStrings.xml"); err == nil {
		texts, err := collectElementText(shared, "t")
		if err != nil {
			return "", fmt.Errorf("parsing sharedStrings.xml: %w", err)
		}
		parts = append(parts, texts...)
	}

	return strings.Join(parts, "\n"), nil
}

func sheetNames(workbook []byte) ([]string, error) {
	var names []string
	decoder := xml.NewDecoder(bytes.NewReader(workbook))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing workbook.xml: %w", err)
		}
		if el, ok := token.(xml.StartElement); ok && el.Name.Local == "sheet" {
			for _, attr := range el.Attr {
				if attr.Name.Local == "name" {
					names = append(names, attr.Value)
				}
			}
		}
	}
	return names, nil
}

// collectElementText gathers the character data of every element with the
// given local name, skipping empty runs.
func collectElementText(content []byte, local string) ([]string, error) {
	var texts []string
	var current strings.Builder
	var depth int

	decoder := xml.NewDecoder(bytes.NewReader(content))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == local {
				depth++
			}
		case xml.EndElement:
			if el.Name.Local == local {
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(current.String()); s != "" {
						texts = append(texts, s)
					}
					current.Reset()
				}
			}
		case xml.CharData:
			if depth > 0 {
				current.Write(el)
			}
		}
	}
	return texts, nil
}

func readArchiveFile(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

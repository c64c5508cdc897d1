package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := docxRawText(rc)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// docxRawText walks the WordprocessingML body and emits run text only.
// Paragraphs end with a blank line. Inside a run w:tab is a tab and w:br/w:cr a newline.
func docxRawText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		buf    strings.Builder
		inText bool
		inRun  int
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", docxBodyPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun++
			case "t":
				inText = inRun > 0
			case "tab":
				if inRun > 0 {
					buf.WriteString("\t")
				}
			case "br", "cr":
				if inRun > 0 {
					buf.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				if inRun > 0 {
					inRun--
				}
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

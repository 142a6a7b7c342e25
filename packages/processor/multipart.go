package processor

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"sort"
	"strings"
)

// MultipartProcessor handles multipart/form-data bodies, one part per field.
type MultipartProcessor struct{}

func NewMultipartProcessor() *MultipartProcessor {
	return &MultipartProcessor{}
}

func (p *MultipartProcessor) ContentType() string {
	return "multipart/form-data"
}

// Encode writes each field as a form part. The generated Content-Type
// header carries the boundary.
func (p *MultipartProcessor) Encode(fields map[string]string) (string, map[string]string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return "", nil, fmt.Errorf("writing part %q: %w", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", nil, err
	}

	return body.String(), map[string]string{
		"Content-Type": writer.FormDataContentType(),
	}, nil
}

// Decode reads the parts back into a field map. The boundary is recovered
// from the body's first delimiter line, since decode receives no headers.
func (p *MultipartProcessor) Decode(body string) (map[string]string, error) {
	boundary, err := detectBoundary(body)
	if err != nil {
		return nil, err
	}

	reader := multipart.NewReader(strings.NewReader(body), boundary)
	result := make(map[string]string)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading part: %w", err)
		}

		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, err
		}
		if name := part.FormName(); name != "" {
			result[name] = string(value)
		}
	}

	return result, nil
}

func detectBoundary(body string) (string, error) {
	line, _, _ := strings.Cut(body, "\r\n")
	if !strings.HasPrefix(line, "--") || len(line) <= 2 {
		return "", fmt.Errorf("no multipart boundary found")
	}
	return strings.TrimPrefix(line, "--"), nil
}

// ParseContentType extracts the bare media type from a Content-Type value,
// dropping parameters such as charset or boundary.
func ParseContentType(value string) string {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.TrimSpace(strings.Split(value, ";")[0])
	}
	return mediaType
}

package render

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/weberror"
)

const defaultJSONContentType = "application/json; charset=utf-8"

// JSON controls JSON response encoding. The zero value writes compact JSON
// with HTML escaping off.
type JSON struct {
	Indent      string
	ContentType string
	EscapeHTML  bool
	Marshal     func(any) ([]byte, error)

	clearedContentType bool
}

// ClearContentType removes the content type so Write fails until one is set.
func (j JSON) ClearContentType() JSON {
	j.ContentType = ""
	j.clearedContentType = true
	return j
}

// Write encodes v and writes it with the provided status code.
func (j JSON) Write(w http.ResponseWriter, status int, v any) error {
	if w == nil {
		return weberror.Config("render", "json response writer is required")
	}
	contentType := strings.TrimSpace(j.ContentType)
	if contentType == "" {
		if j.clearedContentType {
			return weberror.Config("render", "json content type is required")
		}
		contentType = defaultJSONContentType
	}

	body, err := j.encode(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, writeErr := w.Write(body)
	return writeErr
}

// WritePretty encodes v honoring a non-empty pretty form value by indenting
// the output.
func (j JSON) WritePretty(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if r != nil && strings.TrimSpace(r.FormValue("pretty")) != "" && j.Indent == "" {
		j.Indent = "  "
	}
	return j.Write(w, status, v)
}

func (j JSON) encode(v any) ([]byte, error) {
	if j.Marshal != nil {
		body, err := j.Marshal(v)
		if err != nil {
			return nil, err
		}
		if j.Indent == "" {
			return body, nil
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, body, "", j.Indent); err != nil {
			return body, nil
		}
		return indented.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(j.EscapeHTML)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v with default JSON encoding.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return JSON{}.Write(w, status, v)
}

// Package download serves file attachment responses.
package download

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/weberror"
)

// TimestampToken marks the filename position expanded with the handler clock.
const TimestampToken = "{timestamp}"

const (
	defaultTimestampFormat = "2006-01-02"

	excelContentType = "application/ms-excel"
	excelFilename    = "file_{timestamp}.xls"
	csvContentType   = "text/csv"
	csvFilename      = "export_{timestamp}.csv"
)

var fileNameEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Attachment describes a downloadable response.
type Attachment struct {
	ContentType string

	// Exactly one of Filename and FilenameFunc must be set. Filenames may
	// contain TimestampToken.
	Filename     string
	FilenameFunc func(ctx context.Context) string

	// TimestampFormat is the time layout for TimestampToken. Empty means
	// 2006-01-02.
	TimestampFormat string

	// Content opens the attachment body per request.
	Content func(ctx context.Context) (io.Reader, error)

	// Close releases the content reader. When nil, readers implementing
	// io.Closer are closed directly.
	Close func(ctx context.Context, r io.Reader) error

	// Now overrides the handler clock.
	Now func() time.Time
}

// Download is a GET/HEAD handler streaming one attachment.
type Download struct {
	att Attachment
}

// New validates the attachment and builds its handler.
func New(att Attachment) (*Download, error) {
	if strings.TrimSpace(att.ContentType) == "" {
		return nil, weberror.Config("download", "content type is required")
	}
	hasFilename := strings.TrimSpace(att.Filename) != ""
	if hasFilename && att.FilenameFunc != nil {
		return nil, weberror.Config("download", "filename and filename func are mutually exclusive")
	}
	if !hasFilename && att.FilenameFunc == nil {
		return nil, weberror.Config("download", "a filename or filename func is required")
	}
	if att.Content == nil {
		return nil, weberror.Config("download", "a content func is required")
	}
	return &Download{att: att}, nil
}

// Excel builds a download with the legacy Excel export defaults.
func Excel(content func(ctx context.Context) (io.Reader, error)) (*Download, error) {
	return New(Attachment{
		ContentType: excelContentType,
		Filename:    excelFilename,
		Content:     content,
	})
}

// CSV builds a download with CSV export defaults.
func CSV(content func(ctx context.Context) (io.Reader, error)) (*Download, error) {
	return New(Attachment{
		ContentType: csvContentType,
		Filename:    csvFilename,
		Content:     content,
	})
}

// Bytes adapts a byte slice into an attachment content func.
func Bytes(body []byte) func(ctx context.Context) (io.Reader, error) {
	return func(context.Context) (io.Reader, error) {
		return bytes.NewReader(body), nil
	}
}

// String adapts a string into an attachment content func.
func String(body string) func(ctx context.Context) (io.Reader, error) {
	return func(context.Context) (io.Reader, error) {
		return strings.NewReader(body), nil
	}
}

func (d *Download) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	method := http.MethodGet
	if r != nil {
		method = r.Method
	}
	if method != http.MethodGet && method != http.MethodHead {
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodHead}, ", "))
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := httpx.RequestContext(r)
	filename := d.filename(ctx)
	if filename == "" {
		httpx.WriteError(w, weberror.Config("download", "resolved filename is empty"))
		return
	}

	content, err := d.att.Content(ctx)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	defer d.close(ctx, content, filename)

	w.Header().Set("Content-Type", strings.TrimSpace(d.att.ContentType))
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileNameEscaper.Replace(filename)+`"`)
	if method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if _, err := io.Copy(w, content); err != nil {
		log.Printf("download: stream %s: %v", filename, err)
	}
}

func (d *Download) filename(ctx context.Context) string {
	name := d.att.Filename
	if d.att.FilenameFunc != nil {
		name = d.att.FilenameFunc(ctx)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.Contains(name, TimestampToken) {
		format := strings.TrimSpace(d.att.TimestampFormat)
		if format == "" {
			format = defaultTimestampFormat
		}
		name = strings.ReplaceAll(name, TimestampToken, d.now().Format(format))
	}
	return name
}

func (d *Download) now() time.Time {
	if d.att.Now != nil {
		return d.att.Now()
	}
	return time.Now()
}

func (d *Download) close(ctx context.Context, content io.Reader, filename string) {
	if d.att.Close != nil {
		if err := d.att.Close(ctx, content); err != nil {
			log.Printf("download: close %s: %v", filename, err)
		}
		return
	}
	if closer, ok := content.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("download: close %s: %v", filename, err)
		}
	}
}

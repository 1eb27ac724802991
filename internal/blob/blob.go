// Package blob defines how article attachments are handed to object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the resource class an upload is stored under.
type Kind string

const (
	KindImage Kind = "image"
	KindRaw   Kind = "raw"
)

// KindFromMIME maps PDFs to raw resources and everything else to images.
func KindFromMIME(mime string) Kind {
	if strings.HasPrefix(mime, "application/pdf") {
		return KindRaw
	}
	return KindImage
}

// File is a single uploaded attachment.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores a file and returns a stable URI for it.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// Key builds the object key for f: <folder>/<kind>/<unix-nanos>-<uuid>-<name>.
func Key(folder string, f File, now time.Time) string {
	name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	return path.Join(folder, string(KindFromMIME(f.ContentType)), fmt.Sprintf("%d-%s-%s", now.UnixNano(), uuid.New(), name))
}

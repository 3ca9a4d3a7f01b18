package email

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emersion/go-message"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// PartKind separates HTML bodies from attachments.
type PartKind int

const (
	BodyPart PartKind = iota
	AttachmentPart
)

const htmlContentType = "text/html"

// Part is one entry of the multipart/related container, in the order it was
// added to the Composer.
type Part struct {
	Kind PartKind
	// ContentType is written to the Content-Type header as given. It is not
	// validated.
	ContentType string
	// ContentID is the bare id. It is wrapped in angle brackets when written,
	// and omitted when empty.
	ContentID string
	// Filename is only set on attachments.
	Filename string
	Data     []byte
}

// header builds the MIME headers go-message writes before the part body.
func (p Part) header() message.Header {
	var h message.Header
	switch p.Kind {
	case BodyPart:
		h.SetContentType(p.ContentType, map[string]string{"charset": "utf-8"})
		h.Set("Content-Transfer-Encoding", "quoted-printable")
	default:
		h.Set("Content-Type", p.ContentType)
		h.Set("Content-Transfer-Encoding", "base64")
		if p.Filename != "" {
			h.SetContentDisposition("attachment", map[string]string{"filename": p.Filename})
		} else {
			h.SetContentDisposition("attachment", nil)
		}
	}
	if p.ContentID != "" {
		h.Set("Content-ID", "<"+p.ContentID+">")
	}
	return h
}

// check rejects attachment metadata that would not survive as a header, and
// multipart content types, which go-message would write as a nested
// multipart instead of base64.
func (p Part) check() error {
	for name, v := range map[string]string{
		"content type": p.ContentType,
		"Content-ID":   p.ContentID,
		"filename":     p.Filename,
	} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %v %q contains a line break", ErrAttachment, name, v)
		}
	}
	h := p.header()
	if mt, _, _ := h.ContentType(); strings.HasPrefix(mt, "multipart/") {
		return fmt.Errorf("%w: can't attach raw bytes as %v", ErrAttachment, mt)
	}
	return nil
}

func newBodyPart(html string) Part {
	return Part{
		Kind:        BodyPart,
		ContentType: htmlContentType,
		Data:        []byte(html),
	}
}

// newFilePart reads the whole file into memory. The content type comes from
// the extension when the mime package knows it, and is sniffed otherwise.
func newFilePart(path, contentID string, maxSize int64) (Part, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Part{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if fi.IsDir() {
		return Part{}, fmt.Errorf("%w: %v is a directory", ErrIO, path)
	}
	if maxSize > 0 && fi.Size() > maxSize {
		return Part{}, fmt.Errorf(
			"%w: %v is %v bytes, more than the limit of %v",
			ErrIO, path, fi.Size(), maxSize,
		)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Part{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	registerTypes()
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = mimetype.Detect(b).String()
	}

	return Part{
		Kind:        AttachmentPart,
		ContentType: ct,
		ContentID:   contentID,
		Filename:    filepath.Base(path),
		Data:        b,
	}, nil
}

// Types that attachments commonly carry but that not every system mime table
// lists.
var extraTypes = map[string]string{
	".ics":  "text/calendar",
	".eml":  "message/rfc822",
	".webp": "image/webp",
	".avif": "image/avif",
	".heic": "image/heic",
	".md":   "text/markdown",
}

var registerOnce sync.Once

// registerTypes adds extraTypes to the process-wide mime table. It only does
// the work the first time it is called.
func registerTypes() {
	registerOnce.Do(func() {
		for ext, ct := range extraTypes {
			if mime.TypeByExtension(ext) != "" {
				continue
			}
			if err := mime.AddExtensionType(ext, ct); err != nil {
				log.Debug().Err(err).Str("extension", ext).Msg("can't register a MIME type")
			}
		}
	})
}

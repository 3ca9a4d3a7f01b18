package smtptest

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	// Decode parts in any charset a client might pick.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ParsedPart is one decoded part of a received multipart message.
type ParsedPart struct {
	Header message.Header
	Body   []byte
}

// ParsedEmail is a received message split into its top-level headers and
// the parts of its multipart body.
type ParsedEmail struct {
	Header mail.Header
	// MediaType is the top-level media type without parameters.
	MediaType string
	Parts     []ParsedPart
}

// ParseEmail decodes a message body as received by the server. Parts of
// nested multiparts are not flattened.
func ParseEmail(body string) (ParsedEmail, error) {
	e, err := message.Read(strings.NewReader(body))
	if err != nil {
		return ParsedEmail{}, fmt.Errorf("can't read the message: %v", err)
	}

	mt, _, err := e.Header.ContentType()
	if err != nil {
		return ParsedEmail{}, fmt.Errorf("can't read the Content-Type: %v", err)
	}
	pe := ParsedEmail{
		Header:    mail.Header{Header: e.Header},
		MediaType: mt,
	}

	mr := e.MultipartReader()
	if mr == nil {
		return pe, nil
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ParsedEmail{}, fmt.Errorf("can't read a MIME part: %v", err)
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return ParsedEmail{}, fmt.Errorf("can't read a MIME part body: %v", err)
		}
		pe.Parts = append(pe.Parts, ParsedPart{Header: p.Header, Body: b})
	}
	return pe, nil
}

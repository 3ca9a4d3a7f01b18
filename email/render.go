package email

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// rendered is a message ready for the SMTP DATA command, plus the envelope
// gomail needs to open the transaction.
type rendered struct {
	messageID string
	from      string
	to        []string
	body      *bytes.Buffer
}

// render writes the headers and one multipart/related container holding
// every part in insertion order. Bcc recipients go into the envelope only.
func (c *Composer) render(now time.Time) (rendered, error) {
	var h mail.Header
	h.Set("MIME-Version", "1.0")
	h.SetDate(now)
	if err := h.GenerateMessageID(); err != nil {
		return rendered{}, fmt.Errorf("can't generate a Message-ID: %v", err)
	}
	if c.from != nil {
		h.SetAddressList("From", []*mail.Address{c.from})
	}

	var to, cc []*mail.Address
	envelope := make([]string, 0, len(c.recipients))
	for _, r := range c.recipients {
		switch r.Type {
		case To:
			to = append(to, r.Address)
		case Cc:
			cc = append(cc, r.Address)
		}
		envelope = append(envelope, envelopeAddress(r.Address))
	}
	if len(to) > 0 {
		h.SetAddressList("To", to)
	}
	if len(cc) > 0 {
		h.SetAddressList("Cc", cc)
	}
	h.SetSubject(c.subject)
	h.SetContentType("multipart/related", map[string]string{})

	buf := &bytes.Buffer{}
	mw, err := message.CreateWriter(buf, h.Header)
	if err != nil {
		return rendered{}, fmt.Errorf("can't start the MIME message: %v", err)
	}
	for i, p := range c.parts {
		pw, err := mw.CreatePart(p.header())
		if err != nil {
			return rendered{}, fmt.Errorf("can't create MIME part %v: %v", i, err)
		}
		if _, err := pw.Write(p.Data); err != nil {
			return rendered{}, fmt.Errorf("can't write MIME part %v: %v", i, err)
		}
		if err := pw.Close(); err != nil {
			return rendered{}, fmt.Errorf("can't finish MIME part %v: %v", i, err)
		}
	}
	if err := mw.Close(); err != nil {
		return rendered{}, fmt.Errorf("can't finish the MIME message: %v", err)
	}

	id, _ := h.MessageID()
	r := rendered{
		messageID: id,
		to:        envelope,
		body:      buf,
	}
	if c.from != nil {
		r.from = envelopeAddress(c.from)
	}
	return r, nil
}

// WriteTo writes the message exactly as Send would transmit it, with a fresh
// Date and Message-ID. It does not send anything and does not change the
// Composer's state.
func (c *Composer) WriteTo(w io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.render(c.now())
	if err != nil {
		return 0, err
	}
	return r.body.WriteTo(w)
}

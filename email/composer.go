package email

import (
	"fmt"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ptgott/simplemail/html"
	"github.com/ptgott/simplemail/journal"
)

// Composer holds the state of one outgoing message. Create it with New, add
// to it in any order, then call Send once. A Composer that has been sent
// rejects every further change with ErrSent.
//
// All methods are safe for concurrent use. Send holds the lock for the whole
// SMTP session, so two sends of the same Composer never interleave; the
// second one returns ErrSent once the first succeeds.
type Composer struct {
	mu sync.Mutex

	id      string
	session Session
	dialer  dialer
	journal *journal.Journal
	maxSize int64
	now     func() time.Time

	from       *Address
	recipients []Recipient
	subject    string
	parts      []Part
	sent       bool
}

// Option customizes a Composer.
type Option func(*Composer)

// WithJournal records every successful send in j.
func WithJournal(j *journal.Journal) Option {
	return func(c *Composer) {
		c.journal = j
	}
}

// WithMaxAttachmentSize rejects file attachments and byte buffers larger
// than n bytes. Zero means no limit.
func WithMaxAttachmentSize(n int64) Option {
	return func(c *Composer) {
		c.maxSize = n
	}
}

// New returns an empty Composer that will send through s. Nothing touches
// the network until Send.
func New(s Session, opts ...Option) *Composer {
	registerTypes()
	c := &Composer{
		id:      uuid.NewString(),
		session: s,
		dialer:  s.dialer(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ID identifies the Composer in logs and in the journal.
func (c *Composer) ID() string {
	return c.id
}

// SetFrom sets the sender. A malformed address leaves the previous sender in
// place.
func (c *Composer) SetFrom(address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	a, err := parseAddress(address)
	if err != nil {
		return err
	}
	c.from = a
	return nil
}

// AddRecipient adds a To recipient.
func (c *Composer) AddRecipient(address string) error {
	return c.AddRecipientAs(address, To)
}

// AddRecipientAs adds a recipient of type t.
func (c *Composer) AddRecipientAs(address string, t RecipientType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addRecipient(address, t)
}

// AddRecipients adds every address as a To recipient, in order. It stops at
// the first malformed address and returns its error. Addresses added before
// that one stay on the message.
func (c *Composer) AddRecipients(addresses []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range addresses {
		if err := c.addRecipient(a, To); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composer) addRecipient(address string, t RecipientType) error {
	if c.sent {
		return ErrSent
	}
	if t < To || t > Bcc {
		return fmt.Errorf("%w: unknown recipient type %v", ErrAddress, t)
	}
	a, err := parseAddress(address)
	if err != nil {
		return err
	}
	c.recipients = append(c.recipients, Recipient{Address: a, Type: t})
	return nil
}

// SetSubject sets the Subject header. Non-ASCII text is encoded when the
// message is written.
func (c *Composer) SetSubject(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	c.subject = text
	return nil
}

// SetMessage appends a text/html body part. It does not replace earlier
// bodies: calling it twice puts two HTML parts in the message.
func (c *Composer) SetMessage(htmlBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	c.parts = append(c.parts, newBodyPart(htmlBody))
	return nil
}

// AddFileAttachment reads the file at path and appends it as an attachment
// named after the file. A non-empty contentID lets HTML bodies reference the
// attachment as "cid:<contentID>".
func (c *Composer) AddFileAttachment(path, contentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	p, err := newFilePart(path, contentID, c.maxSize)
	if err != nil {
		return err
	}
	if err := p.check(); err != nil {
		return err
	}
	c.parts = append(c.parts, p)
	log.Debug().
		Str("composer", c.id).
		Str("file", p.Filename).
		Str("contentType", p.ContentType).
		Str("size", units.HumanSize(float64(len(p.Data)))).
		Msg("attached a file")
	return nil
}

// AddAttachment appends data as an attachment. The bytes are sent unchanged
// and contentType is used as given, except that multipart types and line
// breaks in any of the strings fail with ErrAttachment.
func (c *Composer) AddAttachment(data []byte, contentType, contentID, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	if c.maxSize > 0 && int64(len(data)) > c.maxSize {
		return fmt.Errorf(
			"%w: %v is %v bytes, more than the limit of %v",
			ErrIO, filename, len(data), c.maxSize,
		)
	}
	p := Part{
		Kind:        AttachmentPart,
		ContentType: contentType,
		ContentID:   contentID,
		Filename:    filename,
	}
	if err := p.check(); err != nil {
		return err
	}
	p.Data = make([]byte, len(data))
	copy(p.Data, data)
	c.parts = append(c.parts, p)
	return nil
}

// UnresolvedContentIDs returns the "cid:" references in the HTML bodies that
// no attachment carries, in the order they first appear.
func (c *Composer) UnresolvedContentIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.unresolvedContentIDs()
}

func (c *Composer) unresolvedContentIDs() ([]string, error) {
	have := make(map[string]struct{})
	for _, p := range c.parts {
		if p.Kind == AttachmentPart && p.ContentID != "" {
			have[p.ContentID] = struct{}{}
		}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, p := range c.parts {
		if p.Kind != BodyPart {
			continue
		}
		refs, err := html.ContentIDRefs(string(p.Data))
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if _, ok := have[r]; ok {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			missing = append(missing, r)
		}
	}
	return missing, nil
}

// Send writes the message and transmits it in one SMTP session. Any failure
// is returned wrapped in ErrMessaging and nothing is retried; the Composer
// can be sent again after a failure. After a successful send the Composer is
// finished and every further change returns ErrSent.
func (c *Composer) Send() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return ErrSent
	}
	if len(c.recipients) == 0 {
		return fmt.Errorf("%w: no recipients", ErrMessaging)
	}

	if missing, err := c.unresolvedContentIDs(); err != nil {
		log.Warn().Err(err).Str("composer", c.id).Msg("can't check the HTML body for Content-ID references")
	} else if len(missing) > 0 {
		log.Warn().
			Str("composer", c.id).
			Strs("contentIDs", missing).
			Msg("the HTML body references attachments that the message does not include")
	}

	sentAt := c.now()
	r, err := c.render(sentAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessaging, err)
	}

	log.Debug().
		Str("composer", c.id).
		Str("relay", c.session.Address()).
		Bool("auth", c.session.AuthEnabled()).
		Bool("tls", c.session.TLSEnabled()).
		Msg("dialing the SMTP relay")

	sc, err := c.dialer.Dial()
	if err != nil {
		return fmt.Errorf("%w: can't open a session with %v: %v", ErrMessaging, c.session.Address(), err)
	}
	if err := sc.Send(r.from, r.to, r.body); err != nil {
		sc.Close()
		return fmt.Errorf("%w: %v", ErrMessaging, err)
	}
	// The message has been accepted once DATA succeeds, so a failed QUIT
	// doesn't count against the send.
	if err := sc.Close(); err != nil {
		log.Debug().Err(err).Str("composer", c.id).Msg("error closing the SMTP session")
	}

	c.sent = true
	log.Debug().
		Str("composer", c.id).
		Str("messageID", r.messageID).
		Int("recipients", len(r.to)).
		Msg("sent the message")

	if c.journal != nil {
		err := c.journal.Record(journal.Record{
			ID:         c.id,
			MessageID:  r.messageID,
			From:       r.from,
			Recipients: r.to,
			Subject:    c.subject,
			Parts:      len(c.parts),
			SentAt:     sentAt,
		})
		if err != nil {
			log.Error().Err(err).Str("composer", c.id).Msg("can't record the message in the journal")
		}
	}
	return nil
}

// Sent reports whether Send has succeeded.
func (c *Composer) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// From returns the sender, or nil if none has been set.
func (c *Composer) From() *Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.from
}

// Recipients returns a copy of the recipients in insertion order.
func (c *Composer) Recipients() []Recipient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Recipient(nil), c.recipients...)
}

// Subject returns the subject.
func (c *Composer) Subject() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Parts returns a copy of the bodies and attachments in insertion order.
func (c *Composer) Parts() []Part {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Part(nil), c.parts...)
}

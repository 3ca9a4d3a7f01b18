package email

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/go-playground/validator/v10"
)

// RecipientType tells which header a recipient is listed in.
type RecipientType int

const (
	To RecipientType = iota
	Cc
	Bcc
)

func (t RecipientType) String() string {
	switch t {
	case To:
		return "To"
	case Cc:
		return "Cc"
	case Bcc:
		return "Bcc"
	default:
		return fmt.Sprintf("RecipientType(%d)", int(t))
	}
}

// Address is a parsed mailbox: an optional display name and the bare
// address used in the SMTP envelope.
type Address = mail.Address

// Recipient is a parsed address plus the header it belongs to.
type Recipient struct {
	Address *Address
	Type    RecipientType
}

var validate = validator.New()

// parseAddress accepts anything RFC 5322 calls a single mailbox, including a
// display name ("Jane <jane@example.com>"), quoted local parts and domain
// literals. The domain must also be a valid host name or IP address.
func parseAddress(s string) (*Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty address", ErrAddress)
	}

	a, err := mail.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrAddress, s, err)
	}

	if err := validateDomain(a.Address); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrAddress, s, err)
	}

	return a, nil
}

// validateDomain checks the part of addr after the last "@". The local part
// is left to the RFC parser, since it may be quoted and hold almost anything.
func validateDomain(addr string) error {
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return fmt.Errorf("no domain in %q", addr)
	}
	domain := addr[i+1:]

	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		lit := domain[1 : len(domain)-1]
		if err := validate.Var(lit, "required,ip"); err != nil {
			return fmt.Errorf("%q is not an IP address literal", domain)
		}
		return nil
	}

	if err := validate.Var(domain, "required,hostname_rfc1123"); err != nil {
		return fmt.Errorf("%q is not a valid domain", domain)
	}
	return nil
}

// envelopeAddress formats the bare address for MAIL FROM and RCPT TO,
// quoting the local part again when it needs it.
func envelopeAddress(a *Address) string {
	return strings.TrimSuffix(strings.TrimPrefix((&mail.Address{Address: a.Address}).String(), "<"), ">")
}

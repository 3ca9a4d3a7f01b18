// Package userconfig reads the simplemail config file.
package userconfig

import (
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/units"
	"github.com/rs/zerolog/log"

	"github.com/ptgott/simplemail/email"
	"github.com/ptgott/simplemail/storage"

	yaml "gopkg.in/yaml.v2"
)

// Attachments larger than this are rejected unless the config says
// otherwise. Most relays cap whole messages at 25MB, and base64 adds a third.
const defaultMaxAttachmentSize = 10 * units.MiB

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	EmailSettings email.UserConfig `yaml:"email"`
	// Journal is optional. Without it, nothing is stored.
	Journal *storage.KVConfig `yaml:"journal"`
	Limits  Limits            `yaml:"limits"`
}

// Limits contains caps applied while composing a message.
type Limits struct {
	// MaxAttachmentSize in bytes.
	MaxAttachmentSize int64
}

// UnmarshalYAML parses the "limits" section. Sizes use units such as
// "512KiB" or "10MiB".
func (l *Limits) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the limits config: %v", err)
	}

	s, ok := v["maxAttachmentSize"]
	if !ok {
		return nil
	}
	b, err := units.ParseBase2Bytes(s)
	if err != nil {
		return fmt.Errorf("can't parse maxAttachmentSize as a size: %v", err)
	}
	l.MaxAttachmentSize = int64(b)
	return nil
}

// CheckAndSetDefaults validates l and returns a copy of it with default
// settings applied.
func (l *Limits) CheckAndSetDefaults() (Limits, error) {
	if l.MaxAttachmentSize < 0 {
		return Limits{}, errors.New("maxAttachmentSize can't be negative")
	}
	if l.MaxAttachmentSize == 0 {
		l.MaxAttachmentSize = int64(defaultMaxAttachmentSize)
	}
	return *l, nil
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	c := Meta{}

	e, err := m.EmailSettings.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.EmailSettings = e

	l, err := m.Limits.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.Limits = l

	if m.Journal != nil {
		j := *m.Journal
		c.Journal = &j
	}

	return c, nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing or validation. The Reader r
// can be either JSON or YAML.
func Parse(r io.Reader) (*Meta, error) {
	var m Meta
	err := yaml.NewDecoder(r).Decode(&m)
	if err != nil {
		return &Meta{}, fmt.Errorf("can't read the config file as YAML: %v", err)
	}

	if m.EmailSettings.SMTPServerHost == "" {
		return &Meta{}, errors.New("must include an \"email\" section")
	}

	if m.Journal == nil {
		log.Debug().Msg(
			"no journal section: sent messages won't be recorded",
		)
	}

	return &m, nil
}

package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const smtpScheme string = "smtp://"

// UserConfig represents the "email" section of the config file. Not meant to
// be used for sending without calling CheckAndSetDefaults first.
type UserConfig struct {
	SMTPServerHost string
	SMTPServerPort int
	Username       string
	Password       string
	FromAddress    string
	ToAddresses    []string
	// Accept any certificate from the relay. Only for testing against a
	// relay with a self-signed certificate.
	SkipCertVerification bool
}

// UnmarshalYAML parses the "email" section of the config file. The server
// address doesn't need a scheme, but it must include a port.
func (uc *UserConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the email config: %v", err)
	}

	ra, ok := v["smtpServerAddress"]
	if !ok || ra == "" {
		return errors.New("the email config must include an smtpServerAddress")
	}

	// Don't require the user to include a scheme. If we can't
	// find one, use one for SMTP.
	m, _ := regexp.MatchString("^[a-zA-Z][a-zA-Z0-9+.-]*://", ra)
	if !m {
		ra = smtpScheme + ra
	}
	if !strings.HasPrefix(ra, smtpScheme) {
		return fmt.Errorf("the SMTP server address must use the smtp scheme, not %v", ra)
	}

	u, err := url.Parse(ra)
	if err != nil {
		return fmt.Errorf("can't parse the SMTP server address: %v", err)
	}
	if u.Port() == "" {
		return errors.New("the SMTP server address must include a port")
	}
	p, err := strconv.Atoi(u.Port())
	if err != nil {
		return fmt.Errorf("can't parse the SMTP server port: %v", err)
	}

	uc.SMTPServerHost = u.Hostname()
	uc.SMTPServerPort = p
	uc.Username = v["username"]
	uc.Password = v["password"]
	uc.FromAddress = v["fromAddress"]
	uc.ToAddresses = nil
	for _, a := range strings.Split(v["toAddress"], ",") {
		if a = strings.TrimSpace(a); a != "" {
			uc.ToAddresses = append(uc.ToAddresses, a)
		}
	}

	if s, ok := v["skipCertVerification"]; ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("skipCertVerification must be true or false: %v", err)
		}
		uc.SkipCertVerification = b
	}

	return nil
}

// CheckAndSetDefaults validates uc and returns a copy of it or an error due
// to an invalid configuration.
func (uc *UserConfig) CheckAndSetDefaults() (UserConfig, error) {
	if uc.SMTPServerHost == "" {
		return UserConfig{}, errors.New("must supply an SMTP server host")
	}
	if uc.SMTPServerPort <= 0 || uc.SMTPServerPort > 65535 {
		return UserConfig{}, fmt.Errorf("%v is not a valid SMTP server port", uc.SMTPServerPort)
	}
	if (uc.Username == "") != (uc.Password == "") {
		return UserConfig{}, errors.New("must supply both a username and a password, or neither")
	}
	if uc.FromAddress != "" {
		if _, err := parseAddress(uc.FromAddress); err != nil {
			return UserConfig{}, fmt.Errorf("invalid \"from\" address: %w", err)
		}
	}
	for _, a := range uc.ToAddresses {
		if _, err := parseAddress(a); err != nil {
			return UserConfig{}, fmt.Errorf("invalid \"to\" address: %w", err)
		}
	}

	c := *uc
	c.ToAddresses = append([]string(nil), uc.ToAddresses...)
	return c, nil
}

// Session returns the Session described by uc.
func (uc *UserConfig) Session() Session {
	var opts []SessionOption
	if uc.SkipCertVerification {
		opts = append(opts, WithTLSConfig(&tls.Config{
			ServerName:         uc.SMTPServerHost,
			InsecureSkipVerify: true,
		}))
	}
	return NewAuthSession(uc.SMTPServerHost, uc.SMTPServerPort, uc.Username, uc.Password, opts...)
}

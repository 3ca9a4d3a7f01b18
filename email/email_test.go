package email

import (
	"bytes"
	"reflect"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestUnmarshalYAML(t *testing.T) {
	testCases := []struct {
		description   string
		input         string
		shouldBeError bool
		expected      UserConfig
	}{
		{
			description: "valid case",
			input: `smtpServerAddress: smtp://0.0.0.0:123
fromAddress: sender@example.com
toAddress: recipient@example.com
username: MyUser123
password: 123456-A_BCDE
`,
			shouldBeError: false,
			expected: UserConfig{
				SMTPServerHost: "0.0.0.0",
				SMTPServerPort: 123,
				Username:       "MyUser123",
				Password:       "123456-A_BCDE",
				FromAddress:    "sender@example.com",
				ToAddresses:    []string{"recipient@example.com"},
			},
		},
		{
			description: "wrong scheme",
			input: `smtpServerAddress: https://0.0.0.0:123
fromAddress: sender@example.com
`,
			shouldBeError: true,
		},
		// We should allow this because smtp:// is self evident
		{
			description: "no scheme, several recipients, no credentials",
			input: `smtpServerAddress: smtp.example.com:25
toAddress: "a@example.com, b@example.com"
skipCertVerification: "true"
`,
			shouldBeError: false,
			expected: UserConfig{
				SMTPServerHost:       "smtp.example.com",
				SMTPServerPort:       25,
				ToAddresses:          []string{"a@example.com", "b@example.com"},
				SkipCertVerification: true,
			},
		},
		{
			description: "no port",
			input: `smtpServerAddress: smtp://0.0.0.0
fromAddress: sender@example.com
`,
			shouldBeError: true,
		},
		{
			description: "port is not a number",
			input: `smtpServerAddress: smtp://0.0.0.0:smtp
`,
			shouldBeError: true,
		},
		{
			description: "skipCertVerification is not a bool",
			input: `smtpServerAddress: smtp://0.0.0.0:123
skipCertVerification: sometimes
`,
			shouldBeError: true,
		},
		{
			description: "no server address",
			input: `fromAddress: sender@example.com
toAddress: recipient@example.com
username: MyUser123
password: 123456-A_BCDE`,
			shouldBeError: true,
		},
		{
			description:   "not a map[string]string",
			input:         `[]`,
			shouldBeError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var uc UserConfig
			buf := bytes.NewBuffer([]byte(tc.input))
			dec := yaml.NewDecoder(buf)
			err := dec.Decode(&uc)
			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status--wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}
			if err == nil && !reflect.DeepEqual(uc, tc.expected) {
				t.Errorf("expected %+v but got %+v", tc.expected, uc)
			}
		})
	}
}

func TestCheckAndSetDefaults(t *testing.T) {
	valid := UserConfig{
		SMTPServerHost: "smtp.example.com",
		SMTPServerPort: 465,
		Username:       "u",
		Password:       "p",
		FromAddress:    "a@x.com",
		ToAddresses:    []string{"b@y.com"},
	}

	testCases := []struct {
		description   string
		modify        func(*UserConfig)
		shouldBeError bool
	}{
		{description: "valid case", modify: func(*UserConfig) {}},
		{description: "no credentials", modify: func(uc *UserConfig) { uc.Username, uc.Password = "", "" }},
		{description: "no host", modify: func(uc *UserConfig) { uc.SMTPServerHost = "" }, shouldBeError: true},
		{description: "port out of range", modify: func(uc *UserConfig) { uc.SMTPServerPort = 70000 }, shouldBeError: true},
		{description: "username without password", modify: func(uc *UserConfig) { uc.Password = "" }, shouldBeError: true},
		{description: "password without username", modify: func(uc *UserConfig) { uc.Username = "" }, shouldBeError: true},
		{description: "bad from address", modify: func(uc *UserConfig) { uc.FromAddress = "nope" }, shouldBeError: true},
		{description: "bad to address", modify: func(uc *UserConfig) { uc.ToAddresses = []string{"b@y.com", "nope"} }, shouldBeError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			uc := valid
			uc.ToAddresses = append([]string(nil), valid.ToAddresses...)
			tc.modify(&uc)
			_, err := uc.CheckAndSetDefaults()
			if (err != nil) != tc.shouldBeError {
				t.Errorf("wanted error status %v but got %v with error %v", tc.shouldBeError, err != nil, err)
			}
		})
	}
}

func TestUserConfigSession(t *testing.T) {
	uc := UserConfig{
		SMTPServerHost:       "smtp.example.com",
		SMTPServerPort:       465,
		Username:             "u",
		Password:             "p",
		SkipCertVerification: true,
	}
	s := uc.Session()
	if !s.AuthEnabled() || s.Address() != "smtp.example.com:465" {
		t.Errorf("unexpected session %+v", s)
	}
	d := s.dialer()
	if d.TLSConfig == nil || !d.TLSConfig.InsecureSkipVerify {
		t.Error("expected certificate verification to be skipped")
	}
}

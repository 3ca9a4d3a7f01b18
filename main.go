package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ptgott/simplemail/email"
	"github.com/ptgott/simplemail/journal"
	"github.com/ptgott/simplemail/storage"
	"github.com/ptgott/simplemail/userconfig"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// listFlag collects a flag that may be repeated or hold comma-separated
// values.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(s string) error {
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

// attachFlag collects -attach values of the form path or path:contentID.
type attachFlag []attachment

type attachment struct {
	path      string
	contentID string
}

func (a *attachFlag) String() string {
	s := make([]string, len(*a))
	for i, v := range *a {
		s[i] = v.path
	}
	return strings.Join(s, ",")
}

func (a *attachFlag) Set(s string) error {
	if s == "" {
		return errors.New("empty attachment path")
	}
	at := attachment{path: s}
	if i := strings.LastIndex(s, ":"); i > 0 && i < len(s)-1 && !strings.ContainsAny(s[i+1:], `/\`) {
		at.path, at.contentID = s[:i], s[i+1:]
	}
	*a = append(*a, at)
	return nil
}

func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	// Intercept interrupts so we can get more visibility into them.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func(c chan os.Signal) {
		<-c
		log.Info().Msg("interrupt: exiting")
		os.Exit(1)
	}(sigCh)

	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("simplemail failed")
		os.Exit(1)
	}
}

// run parses args, composes one message and sends it, or prints it with
// -dryrun. It returns the first error encountered.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("simplemail", flag.ContinueOnError)
	configPath := fs.String(
		"config",
		"./config.yaml",
		"path to a JSON or YAML file containing your configuration",
	)
	from := fs.String("from", "", "sender address, overriding email.fromAddress")
	subject := fs.String("subject", "", "message subject")
	htmlPath := fs.String("html", "", `path to the HTML body, or "-" for stdin`)
	dryRun := fs.Bool(
		"dryrun",
		false,
		"print the MIME message to stdout instead of sending it",
	)
	show := fs.String("show", "", "print the journal record for a message id and exit")
	level := fs.String(
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	var to, cc, bcc listFlag
	fs.Var(&to, "to", "To recipients, comma-separated or repeated; added to email.toAddress")
	fs.Var(&cc, "cc", "Cc recipients, comma-separated or repeated")
	fs.Var(&bcc, "bcc", "Bcc recipients, comma-separated or repeated")
	var attachments attachFlag
	fs.Var(&attachments, "attach", "file to attach as path or path:contentID; repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("configPath", *configPath).
		Msg("starting the application")

	f, err := os.Open(*configPath)
	if err != nil {
		return fmt.Errorf("we can't open the application config file: %v", err)
	}
	defer f.Close()

	config, err := userconfig.Parse(f)
	if err != nil {
		return fmt.Errorf("problem parsing your config: %v", err)
	}

	checkedConfig, err := config.CheckAndSetDefaults()
	if err != nil {
		return fmt.Errorf("problem validating your config: %v", err)
	}
	log.Info().Str("configPath", *configPath).Msg("successfully validated the config")

	var db storage.KeyValue = &storage.NoOpDB{}
	if checkedConfig.Journal != nil && !*dryRun {
		bdb, err := storage.NewBadgerDB(checkedConfig.Journal)
		if err != nil {
			return err
		}
		db = bdb
	}
	defer func() {
		// Get rid of expired records just before we close
		if err := db.Cleanup(); err != nil {
			log.Error().Err(err).Msg("error cleaning up the journal")
		}
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the journal")
		}
	}()
	j := journal.New(db)

	if *show != "" {
		r, err := j.Lookup(*show)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(
			stdout,
			"id: %v\nmessage-id: %v\nfrom: %v\nrecipients: %v\nsubject: %v\nparts: %v\nsent: %v\n",
			r.ID, r.MessageID, r.From, strings.Join(r.Recipients, ", "), r.Subject, r.Parts, r.SentAt,
		)
		return err
	}

	es := checkedConfig.EmailSettings
	c := email.New(
		es.Session(),
		email.WithJournal(j),
		email.WithMaxAttachmentSize(checkedConfig.Limits.MaxAttachmentSize),
	)

	sender := es.FromAddress
	if *from != "" {
		sender = *from
	}
	if sender != "" {
		if err := c.SetFrom(sender); err != nil {
			return err
		}
	}
	if err := c.AddRecipients(append(append([]string{}, es.ToAddresses...), to...)); err != nil {
		return err
	}
	for _, a := range cc {
		if err := c.AddRecipientAs(a, email.Cc); err != nil {
			return err
		}
	}
	for _, a := range bcc {
		if err := c.AddRecipientAs(a, email.Bcc); err != nil {
			return err
		}
	}
	if err := c.SetSubject(*subject); err != nil {
		return err
	}

	if *htmlPath != "" {
		var b []byte
		if *htmlPath == "-" {
			b, err = io.ReadAll(stdin)
		} else {
			b, err = os.ReadFile(*htmlPath)
		}
		if err != nil {
			return fmt.Errorf("can't read the HTML body: %v", err)
		}
		if err := c.SetMessage(string(b)); err != nil {
			return err
		}
	}

	for _, a := range attachments {
		if err := c.AddFileAttachment(a.path, a.contentID); err != nil {
			return err
		}
	}

	if *dryRun {
		_, err := c.WriteTo(stdout)
		return err
	}

	log.Info().
		Str("id", c.ID()).
		Int("recipients", len(c.Recipients())).
		Msg("attempting to send an email")
	if err := c.Send(); err != nil {
		return err
	}
	log.Info().Str("id", c.ID()).Msg("sent the email")
	_, err = fmt.Fprintln(stdout, c.ID())
	return err
}

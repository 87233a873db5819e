package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/config"
	"github.com/effective-security/xpgp/gpg"
	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/x/print"
	"golang.org/x/net/context"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Cfg      string          `help:"Location of the config file" type:"path"`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx context.Context
	cfg *config.Config
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook loads config
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}

	cfg, err := config.Load(c.Cfg)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Config returns the loaded configuration
func (c *Cli) Config() *config.Config {
	if c.cfg == nil {
		c.cfg = &config.Config{}
	}
	return c.cfg
}

// Keyring loads the public keyrings, files override the configured ones,
// and the configured secret keyrings
func (c *Cli) Keyring(files []string) (*keyring.Keyring, error) {
	cfg := c.Config()
	if len(files) == 0 {
		files = cfg.Keyrings
	}
	ring, err := gpg.KeyRingFromFiles(files)
	if err != nil {
		return nil, err
	}

	if len(cfg.SecretKeyrings) > 0 {
		pass, err := cfg.LoadPassphrase()
		if err != nil {
			return nil, err
		}
		for _, f := range cfg.SecretKeyrings {
			kr, err := gpg.SecretKeyRingFromFile(f, pass)
			if err != nil {
				return nil, err
			}
			ring.Merge(kr)
		}
	}
	logger.KV(xlog.DEBUG, "reason", "keyring", "keys", ring.Len())
	return ring, nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	return print.JSON(c.Writer(), value)
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		b, err := io.ReadAll(c.Reader())
		return b, errors.WithStack(err)
	}
	b, err := os.ReadFile(filename)
	return b, errors.WithStack(err)
}

// WriteFile writes to the output if the file is empty or "-"
func (c *Cli) WriteFile(filename string, data []byte) error {
	if filename == "" || filename == "-" {
		_, err := c.Writer().Write(data)
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(filename, data, 0644))
}

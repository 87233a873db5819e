// Package config provides the configuration of xpgp-tool
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/fileutil"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/packet"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "config")

// Config provides the verification settings
type Config struct {
	// Keyrings specifies the public keyring files
	Keyrings []string `json:"keyrings" yaml:"keyrings"`
	// SecretKeyrings specifies the secret keyring files
	SecretKeyrings []string `json:"secret_keyrings" yaml:"secret_keyrings"`
	// Passphrase unlocks secret keys and symmetric session keys.
	// If it's prefixed with `file:`, then it will be loaded from the file.
	// If it's prefixed with `env:`, then it will be loaded from the environment.
	Passphrase string `json:"passphrase" yaml:"passphrase"`
	// Armor forces the armour on or off, by default it is detected
	Armor *bool `json:"armor" yaml:"armor"`
	// Subpackets specifies the subpacket mode: ignore, raw or parsed
	Subpackets string `json:"subpackets" yaml:"subpackets"`
	// UseMmap maps input files into memory
	UseMmap bool `json:"use_mmap" yaml:"use_mmap"`

	dir string
}

// Load returns configuration loaded from a file, JSON when the extension
// is .json and YAML otherwise
func Load(filename string) (*Config, error) {
	cfg := new(Config)
	if filename == "" {
		return cfg, nil
	}

	cfr, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() {
		_ = cfr.Close()
	}()

	if strings.HasSuffix(filename, ".json") {
		err = json.NewDecoder(cfr).Decode(cfg)
	} else {
		err = yaml.NewDecoder(cfr).Decode(cfg)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode file: %s", filename)
	}

	if _, err = cfg.SubpacketMode(); err != nil {
		return nil, err
	}

	cfg.dir = filepath.Dir(filename)
	cfg.Keyrings = cfg.resolve(cfg.Keyrings)
	cfg.SecretKeyrings = cfg.resolve(cfg.SecretKeyrings)
	return cfg, nil
}

// resolve returns the paths relative to the config folder, when they exist
func (c *Config) resolve(files []string) []string {
	list := make([]string, 0, len(files))
	for _, f := range files {
		list = append(list, c.resolvePath(f))
	}
	return list
}

func (c *Config) resolvePath(f string) string {
	if filepath.IsAbs(f) || c.dir == "" || fileutil.FileExists(f) == nil {
		return f
	}
	resolved := filepath.Join(c.dir, f)
	if fileutil.FileExists(resolved) == nil {
		return resolved
	}
	logger.KV(xlog.WARNING, "reason", "resolve", "file", f, "basedir", c.dir)
	return f
}

// SubpacketMode returns the configured subpacket mode
func (c *Config) SubpacketMode() (packet.SubpacketMode, error) {
	switch strings.ToLower(c.Subpackets) {
	case "", "ignore":
		return packet.SubpacketsIgnore, nil
	case "raw":
		return packet.SubpacketsRaw, nil
	case "parsed":
		return packet.SubpacketsParsed, nil
	}
	return packet.SubpacketsIgnore, errors.Errorf("invalid subpackets mode: %q", c.Subpackets)
}

// LoadPassphrase returns the passphrase, nil if not configured
func (c *Config) LoadPassphrase() ([]byte, error) {
	p := c.Passphrase
	switch {
	case p == "":
		return nil, nil
	case strings.HasPrefix(p, "env:"):
		name := p[4:]
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil, errors.Errorf("environment variable %q is not set", name)
		}
		return []byte(v), nil
	case strings.HasPrefix(p, "file:"):
		b, err := os.ReadFile(c.resolvePath(p[5:]))
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to load passphrase")
		}
		return []byte(strings.TrimRight(string(b), "\r\n")), nil
	}
	return []byte(p), nil
}

package harness

import (
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
)

// EnvironmentKind selects the session backend for an environment
type EnvironmentKind string

const (
	// EnvExec launches a fresh Chrome through chromedp's exec allocator
	EnvExec EnvironmentKind = "exec"
	// EnvLocal launches Chrome through the local leaser and attaches over CDP
	EnvLocal EnvironmentKind = "local"
	// EnvRemote attaches to an already running browser or grid endpoint
	EnvRemote EnvironmentKind = "remote"
	// EnvRod drives Chrome with go-rod
	EnvRod EnvironmentKind = "rod"
)

const (
	defaultURL      = "https://browser.blockstack.org"
	defaultErrorDir = "errors"
)

// Defaults section of the config, in milliseconds
type Defaults struct {
	TimeoutMS    int `toml:"timeout_ms"`
	PollMS       int `toml:"poll_ms"`
	DriverWaitMS int `toml:"driver_wait_ms"`
}

// Options the defaults translate to
func (d Defaults) Options() Options {
	return Options{
		Timeout:    Millis(d.TimeoutMS),
		Poll:       Millis(d.PollMS),
		DriverWait: Millis(d.DriverWaitMS),
	}.Merge(nil)
}

// Environment is one target a scenario runs against
type Environment struct {
	Name         string          `toml:"name"`
	Kind         EnvironmentKind `toml:"kind"`
	Headless     bool            `toml:"headless"`
	ChromePath   string          `toml:"chrome_path"`
	RemoteURL    string          `toml:"remote_url"`
	WindowWidth  int             `toml:"window_width"`
	WindowHeight int             `toml:"window_height"`
}

func (e *Environment) String() string {
	return e.Name + " (" + string(e.Kind) + ")"
}

// Config for a harness run
type Config struct {
	URL          string        `toml:"url"`
	ErrorDir     string        `toml:"error_dir"`
	Defaults     Defaults      `toml:"defaults"`
	Environments []Environment `toml:"environments"`
}

// DefaultConfig runs against one headless local Chrome
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a TOML config file
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeConfig(f)
}

// DecodeConfig decodes TOML and fills in anything left unset
func DecodeConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.ErrorDir == "" {
		c.ErrorDir = defaultErrorDir
	}
	if c.Defaults.TimeoutMS <= 0 {
		c.Defaults.TimeoutMS = int(DefaultTimeout.Milliseconds())
	}
	if c.Defaults.PollMS <= 0 {
		c.Defaults.PollMS = int(DefaultPoll.Milliseconds())
	}
	if len(c.Environments) == 0 {
		c.Environments = []Environment{{Name: "local-chrome", Kind: EnvExec, Headless: true}}
	}
	for i := range c.Environments {
		env := &c.Environments[i]
		if env.Kind == "" {
			env.Kind = EnvExec
		}
		if env.WindowWidth == 0 || env.WindowHeight == 0 {
			env.WindowWidth, env.WindowHeight = 1024, 768
		}
	}
}

// Validate names and kinds of every environment
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Environments))
	for _, env := range c.Environments {
		if env.Name == "" {
			return errors.New("environment without a name")
		}
		if _, dup := seen[env.Name]; dup {
			return errors.Errorf("duplicate environment %q", env.Name)
		}
		seen[env.Name] = struct{}{}

		switch env.Kind {
		case EnvExec, EnvLocal, EnvRod:
		case EnvRemote:
			if env.RemoteURL == "" {
				return errors.Errorf("environment %q: remote_url is required for kind remote", env.Name)
			}
		default:
			return errors.Errorf("environment %q: unknown kind %q", env.Name, env.Kind)
		}
	}
	return nil
}

// Select the named environments, all of them when names is empty
func (c *Config) Select(names []string) ([]Environment, error) {
	if len(names) == 0 {
		return c.Environments, nil
	}
	selected := make([]Environment, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := false
		for _, env := range c.Environments {
			if env.Name == name {
				selected = append(selected, env)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Wrap(ErrUnknownEnvironment, name)
		}
	}
	return selected, nil
}

// Copy the config so an environment can't change another's view of it
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	d, err := msgpack.Marshal(c)
	if err != nil {
		panic("failed to copy Config: " + err.Error())
	}

	cp := &Config{}
	if err = msgpack.Unmarshal(d, cp); err != nil {
		panic("failed to copy Config: " + err.Error())
	}
	return cp
}

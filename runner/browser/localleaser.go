package browser

import (
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd/v2"
)

// LocalLeaser launches Chrome processes with gcd and hands out their debug
// ports. Sessions attach to a leased browser over CDP and return it on Quit.
type LocalLeaser struct {
	browserLock    sync.RWMutex
	browsers       map[string]*gcd.Gcd
	tmp            string
	chromeLocation string
	flags          []string
}

// NewLocalLeaser for the chrome binary at chromePath, or the first one found
func NewLocalLeaser(chromePath string, headless bool, width, height int) (*LocalLeaser, error) {
	location, tmp, err := FindChrome(chromePath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("chrome", location).Str("tmp", tmp).Msg("local leaser ready")
	return &LocalLeaser{
		browsers:       make(map[string]*gcd.Gcd),
		tmp:            tmp,
		chromeLocation: location,
		flags:          flagsFor(headless, width, height),
	}, nil
}

// Acquire a new browser, returning its debugger port
func (s *LocalLeaser) Acquire() (string, error) {
	if err := os.MkdirAll(s.tmp, 0755); err != nil {
		return "", errors.Wrap(err, "creating profile dir")
	}
	b := gcd.NewChromeDebugger()
	b.DeleteProfileOnExit()

	profileDir := randProfile(s.tmp)
	port := randPort()
	log.Debug().Str("profile", profileDir).Str("port", port).Msg("starting chrome")
	b.AddFlags(s.flags)
	if err := b.StartProcess(s.chromeLocation, profileDir, port); err != nil {
		return "", errors.Wrap(err, "starting chrome")
	}
	s.browserLock.Lock()
	s.browsers[port] = b
	s.browserLock.Unlock()

	return port, nil
}

// Count how many browsers are leased
func (s *LocalLeaser) Count() string {
	s.browserLock.RLock()
	count := len(s.browsers)
	s.browserLock.RUnlock()
	return strconv.Itoa(count)
}

// Return (and kill) the browser
func (s *LocalLeaser) Return(port string) error {
	s.browserLock.Lock()
	defer s.browserLock.Unlock()

	if b, ok := s.browsers[port]; ok {
		delete(s.browsers, port)
		if err := b.ExitProcess(); err != nil {
			return errors.Wrapf(err, "stopping chrome on %s", port)
		}
		return nil
	}

	return errors.Errorf("no browser leased on port %s", port)
}

// Cleanup kills every browser still leased
func (s *LocalLeaser) Cleanup() error {
	s.browserLock.RLock()
	ports := make([]string, 0, len(s.browsers))
	for port := range s.browsers {
		ports = append(ports, port)
	}
	s.browserLock.RUnlock()

	var firstErr error
	for _, port := range ports {
		if err := s.Return(port); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

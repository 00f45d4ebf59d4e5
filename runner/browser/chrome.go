package browser

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/pkg/errors"
)

// ErrChromeNotFound no Chrome or Chromium binary could be located
var ErrChromeNotFound = errors.New("chrome not found")

var startupFlags = []string{
	"--enable-automation",
	"--test-type",
	"--disable-client-side-phishing-detection",
	"--disable-component-update",
	"--disable-infobars",
	"--disable-domain-reliability",
	"--disable-background-networking",
	"--disable-sync",
	"--disable-default-apps",
	"--disable-popup-blocking",
	"--disable-extensions",
	"--disable-features=TranslateUI",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--no-first-run",
	"--safebrowsing-disable-auto-update",
	"--password-store=basic",
}

var seeded = rand.New(rand.NewSource(time.Now().UnixNano()))

// FindChrome returns the chrome binary to use, preferring path if given, and
// the temp directory profiles are created in
func FindChrome(path string) (string, string, error) {
	tmp := filepath.Join(os.TempDir(), "browserstep")
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", "", errors.Wrapf(ErrChromeNotFound, "%s: %s", path, err)
		}
		return path, tmp, nil
	}
	if env := os.Getenv("CHROME_PATH"); env != "" {
		return env, tmp, nil
	}
	found, ok := launcher.LookPath()
	if !ok {
		return "", "", ErrChromeNotFound
	}
	return found, tmp, nil
}

// flagsFor the startup flags plus window size and headless mode
func flagsFor(headless bool, width, height int) []string {
	flags := make([]string, 0, len(startupFlags)+3)
	flags = append(flags, startupFlags...)
	flags = append(flags, fmt.Sprintf("--window-size=%d,%d", width, height))
	if headless {
		flags = append(flags, "--headless")
	}
	return append(flags, "about:blank")
}

func randProfile(tmp string) string {
	return filepath.Join(tmp, "profile-"+strconv.FormatInt(seeded.Int63(), 36))
}

// randPort asks the kernel for a free port, falling back to a random high port
func randPort() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return strconv.Itoa(20000 + seeded.Intn(20000))
	}
	defer l.Close()
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return port
}

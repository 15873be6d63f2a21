package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// FindChrome locates a Chrome/Chromium executable. An explicit path wins,
// then GUC_CHROME_PATH and CHROME_PATH, then the usual install locations and
// finally $PATH. It returns "" when nothing is found, leaving chromedp to try
// its own default.
func FindChrome(explicit string) string {
	for _, p := range []struct{ path, source string }{
		{explicit, "config"},
		{os.Getenv("GUC_CHROME_PATH"), "GUC_CHROME_PATH"},
		{os.Getenv("CHROME_PATH"), "CHROME_PATH"},
	} {
		if p.path == "" {
			continue
		}
		if isExecutable(p.path) {
			log.Debug().Str("path", p.path).Str("source", p.source).Msg("Chrome found")
			return p.path
		}
		log.Warn().Str("path", p.path).Str("source", p.source).Msg("Chrome path set but not executable")
	}

	for _, path := range candidates() {
		if isExecutable(path) {
			log.Debug().Str("path", path).Str("os", runtime.GOOS).Msg("Chrome found at standard location")
			return path
		}
	}

	if path := findInPath(); path != "" {
		log.Debug().Str("path", path).Msg("Chrome found in PATH")
		return path
	}

	log.Warn().
		Str("os", runtime.GOOS).
		Msg("Chrome not found, will use chromedp default (may fail)")
	return ""
}

func candidates() []string {
	var paths []string
	home := os.Getenv("HOME")

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
		if home != "" {
			paths = append(paths,
				filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
				filepath.Join(home, "Applications/Chromium.app/Contents/MacOS/Chromium"),
			)
		}

	case "windows":
		for _, base := range []string{
			os.Getenv("ProgramFiles"),
			os.Getenv("ProgramFiles(x86)"),
			os.Getenv("LocalAppData"),
		} {
			if base == "" {
				continue
			}
			paths = append(paths,
				filepath.Join(base, "Google\\Chrome\\Application\\chrome.exe"),
				filepath.Join(base, "Chromium\\Application\\chrome.exe"),
				filepath.Join(base, "Microsoft\\Edge\\Application\\msedge.exe"),
			)
		}

	case "linux":
		paths = []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
			"/usr/bin/microsoft-edge",
		}
		if home != "" {
			paths = append(paths,
				filepath.Join(home, ".local/share/flatpak/exports/bin/com.google.Chrome"),
				filepath.Join(home, ".local/share/flatpak/exports/bin/org.chromium.Chromium"),
			)
		}
	}
	return paths
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0111 != 0
}

func findInPath() string {
	for _, name := range []string{
		"google-chrome-stable",
		"google-chrome",
		"chromium",
		"chromium-browser",
		"chrome",
		"msedge",
	} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ChromeVersion returns the browser's --version output, "unknown" without a
// path and "detected" when the binary does not answer (Windows).
func ChromeVersion(chromePath string) string {
	if chromePath == "" {
		return "unknown"
	}
	if runtime.GOOS == "windows" {
		return "detected"
	}

	out, err := exec.Command(chromePath, "--version").Output()
	if err != nil {
		return "detected"
	}
	return strings.TrimSpace(string(out))
}

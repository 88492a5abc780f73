package cli

import (
	"os"
	"os/exec"
	goruntime "runtime"
)

// browserCommand returns the command that opens url. $BROWSER wins over
// the platform default.
func browserCommand(goos, url string) *exec.Cmd {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return exec.Command(browser, url)
	}
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("cmd", "/c", "start", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

func openBrowser(url string) error {
	return browserCommand(goruntime.GOOS, url).Run()
}

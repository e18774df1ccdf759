package utils

import (
	"context"
	"runtime"
)

/**
 * Open url in the default browser
 * @param {Runner} runner - Command runner
 * @param {string} url - Address to open
 */
func OpenBrowser(ctx context.Context, runner Runner, url string) error {
	var cmd Command
	switch runtime.GOOS {
	case "windows":
		cmd = Command{Name: "rundll32", Args: []string{"url.dll,FileProtocolHandler", url}}
	case "darwin":
		cmd = Command{Name: "open", Args: []string{url}}
	default:
		cmd = Command{Name: "xdg-open", Args: []string{url}}
	}
	_, err := runner.Run(ctx, cmd)
	return err
}

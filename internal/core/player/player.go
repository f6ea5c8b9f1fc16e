// Package player starts an external program to play converted audio.
package player

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoPlayer is returned when no known player is installed
var ErrNoPlayer = errors.New("no audio player found (set player_command in config.toml)")

// Player launches audio URLs in a local program
type Player struct {
	// Optional override from config. {url} is replaced with the quoted URL;
	// without it the URL is appended.
	CustomCommand string

	lookPath func(string) (string, error)
	goos     string
}

// New returns a player using the given custom command, if any
func New(custom string) *Player {
	return &Player{CustomCommand: custom, lookPath: exec.LookPath, goos: runtime.GOOS}
}

// Play starts playback of url without waiting for it to finish
func (p *Player) Play(url string) error {
	cmd, err := p.Command(url)
	if err != nil {
		return err
	}
	return cmd.Start()
}

// Command builds the command Play would run
func (p *Player) Command(url string) (*exec.Cmd, error) {
	// Use custom command if configured
	if strings.TrimSpace(p.CustomCommand) != "" {
		return p.custom(url), nil
	}

	// Audio-only players first, so nothing opens a window
	players := [][]string{
		{"mpv", "--no-video", "--really-quiet"},
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
		{"cvlc", "--play-and-exit", "--quiet"},
	}
	for _, args := range players {
		if _, err := p.lookPath(args[0]); err == nil {
			return exec.Command(args[0], append(args[1:], url)...), nil
		}
	}

	// Last resort: hand the URL to the desktop
	opener := "xdg-open"
	if p.goos == "darwin" {
		opener = "open"
	}
	if _, err := p.lookPath(opener); err == nil {
		return exec.Command(opener, url), nil
	}
	return nil, ErrNoPlayer
}

func (p *Player) custom(url string) *exec.Cmd {
	cmdStr := p.CustomCommand
	if strings.Contains(cmdStr, "{url}") {
		cmdStr = strings.ReplaceAll(cmdStr, "{url}", shellEscape(url))
	} else {
		cmdStr += " " + shellEscape(url)
	}
	return exec.Command("sh", "-c", cmdStr)
}

// shellEscape escapes a string for safe use in shell commands
func shellEscape(s string) string {
	// Simple escape: wrap in single quotes, escape single quotes
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

package player

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func fakeLookPath(installed ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestCommand_Detection(t *testing.T) {
	const url = "http://localhost:5000/audio/page_1.mp3?t=1"

	tests := []struct {
		name      string
		goos      string
		installed []string
		wantArgs  []string
		wantErr   error
	}{
		{"mpv preferred", "linux", []string{"xdg-open", "ffplay", "mpv"}, []string{"mpv", "--no-video", "--really-quiet", url}, nil},
		{"ffplay", "linux", []string{"ffplay"}, []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", url}, nil},
		{"xdg-open fallback", "linux", []string{"xdg-open"}, []string{"xdg-open", url}, nil},
		{"open on macOS", "darwin", []string{"open"}, []string{"open", url}, nil},
		{"nothing installed", "linux", nil, nil, ErrNoPlayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Player{lookPath: fakeLookPath(tt.installed...), goos: tt.goos}
			cmd, err := p.Command(url)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Command() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got := strings.Join(cmd.Args, " "); got != strings.Join(tt.wantArgs, " ") {
				t.Errorf("Command() args = %q, want %q", got, strings.Join(tt.wantArgs, " "))
			}
		})
	}
}

func TestCommand_Custom(t *testing.T) {
	tests := []struct {
		name   string
		custom string
		url    string
		want   string
	}{
		{"placeholder", "mplayer {url} -really-quiet", "http://x/a.mp3", "mplayer 'http://x/a.mp3' -really-quiet"},
		{"appended", "afplay", "http://x/a.mp3", "afplay 'http://x/a.mp3'"},
		{"quote in url", "play {url}", "http://x/it's.mp3", `play 'http://x/it'\''s.mp3'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Player{CustomCommand: tt.custom, lookPath: fakeLookPath()}
			cmd, err := p.Command(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if len(cmd.Args) != 3 || cmd.Args[0] != "sh" || cmd.Args[1] != "-c" {
				t.Fatalf("Args = %q, want sh -c <command>", cmd.Args)
			}
			if cmd.Args[2] != tt.want {
				t.Errorf("command = %q, want %q", cmd.Args[2], tt.want)
			}
		})
	}
}

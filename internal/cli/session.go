package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session is the locally saved pointer to the game in progress, so commands
// don't need the id repeated on every invocation.
type Session struct {
	GameID      string `json:"game_id"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
}

// sessionPath resolves the session file location. An explicit path (from
// ARTH_SESSION_FILE) wins; otherwise ~/.arth/session.json. The parent
// directory is created either way.
func sessionPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, ".arth", "session.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	return path, nil
}

func SaveSession(path string, s Session) error {
	path, err := sessionPath(path)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

func LoadSession(path string) (Session, error) {
	path, err := sessionPath(path)
	if err != nil {
		return Session{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(s.GameID) == "" {
		return Session{}, fmt.Errorf("no game in progress, run `arth start`")
	}
	if s.Language == "" {
		s.Language = "en"
	}
	return s, nil
}

func ClearSession(path string) error {
	path, err := sessionPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}

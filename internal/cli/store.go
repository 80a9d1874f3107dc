package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iliyamo/movie-explorer/internal/model"
)

// SessionFile persists the client session between invocations.
type SessionFile struct{ Path string }

// Load returns the stored session, or the zero session when none is stored.
func (f SessionFile) Load() (model.Session, error) {
	var s model.Session
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Session{}, fmt.Errorf("decode session file: %w", err)
	}
	return s, nil
}

// Save writes s, or removes the file when s carries no access token.
func (f SessionFile) Save(s model.Session) error {
	if s.AccessToken == "" {
		err := os.Remove(f.Path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const designerFile = "designer.json"

// Designer holds what the dashboard remembers between runs.
type Designer struct {
	LastRegion string    `json:"last_region"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Dir is where preference files live; empty means the user config dir.
type Dir string

func (d Dir) path() (string, error) {
	dir := string(d)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "eventdesk")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, designerFile), nil
}

// SaveLastRegion records the region whose script loaded most recently.
func (d Dir) SaveLastRegion(region string) error {
	path, err := d.path()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(Designer{LastRegion: region, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LastRegion returns "" when nothing was recorded yet.
func (d Dir) LastRegion() (string, error) {
	path, err := d.path()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var p Designer
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	return p.LastRegion, nil
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceFile identifies this checkout. It lives in .keykapp/ and is never shared: copying a
// workspace to another machine without it yields a fresh replica.
type DeviceFile struct {
	DeviceID   string    `json:"deviceId"`
	ReplicaID  string    `json:"replicaId"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func (s Store) devicePath() string {
	return filepath.Join(s.localDir(), "device.json")
}

// Device loads .keykapp/device.json, creating it on first use. label, when non-empty, is
// recorded on creation or when it changed.
func (s Store) Device(label string) (DeviceFile, bool, error) {
	d, created, err := s.loadOrInitDeviceFile(label)
	if err != nil {
		return DeviceFile{}, false, err
	}
	label = strings.TrimSpace(label)
	if !created && label != "" && label != d.Label {
		d.Label = label
		d.ModifiedAt = time.Now().UTC()
		if err := s.writeDeviceFile(d); err != nil {
			return DeviceFile{}, false, err
		}
	}
	return d, created, nil
}

func (s Store) loadOrInitDeviceFile(label string) (DeviceFile, bool, error) {
	path := s.devicePath()
	b, err := os.ReadFile(path)
	if err == nil && len(b) > 0 {
		var d DeviceFile
		if err := json.Unmarshal(b, &d); err != nil {
			return DeviceFile{}, false, fmt.Errorf("%s: %w", path, err)
		}
		d.DeviceID = strings.TrimSpace(d.DeviceID)
		d.ReplicaID = strings.TrimSpace(d.ReplicaID)
		if d.DeviceID == "" || d.ReplicaID == "" {
			return DeviceFile{}, false, errors.New(".keykapp/device.json: missing deviceId/replicaId")
		}
		return d, false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return DeviceFile{}, false, err
	}

	now := time.Now().UTC()
	d := DeviceFile{
		DeviceID:   uuid.NewString(),
		ReplicaID:  newReplicaID(),
		Label:      strings.TrimSpace(label),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.writeDeviceFile(d); err != nil {
		return DeviceFile{}, false, err
	}
	return d, true, nil
}

func (s Store) writeDeviceFile(d DeviceFile) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.devicePath(), append(raw, '\n'), 0o644)
}

// newReplicaID is a short uuid-derived id. It ends up in every op id and shard name, so the
// full 36 characters are not worth carrying.
func newReplicaID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"

	"jobtrack/pkg/config"
)

const stateFile = "scheduler_state.json"

type rotationState struct {
	LastKeyIndex int `json:"last_key_index"`
}

// Rotation is the persisted round-robin cursor used when keys carry no
// schedule slots. The cursor survives restarts so consecutive runs keep
// cycling instead of hammering the first key.
type Rotation struct {
	path string
}

func NewRotation(dataDir string) *Rotation {
	return &Rotation{path: filepath.Join(dataDir, stateFile)}
}

func (r *Rotation) load() rotationState {
	var st rotationState
	data, err := os.ReadFile(r.path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return rotationState{}
	}
	return st
}

func (r *Rotation) save(st rotationState) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(r.path, data, 0o644)
}

// Next returns the key at the cursor and advances it, skipping backup
// and keyless entries. Returns nil when no key is usable.
func (r *Rotation) Next(keys []config.RapidAPIKey) *config.RapidAPIKey {
	usable := make([]int, 0, len(keys))
	for i := range keys {
		if keys[i].Key != "" && keys[i].ScheduleTime != "backup" {
			usable = append(usable, i)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	st := r.load()
	pick := usable[st.LastKeyIndex%len(usable)]
	st.LastKeyIndex = (st.LastKeyIndex + 1) % len(usable)
	r.save(st)
	return &keys[pick]
}

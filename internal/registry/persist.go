package registry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	snapshotName = "scores.json"
	backupName   = "scores.json.bak"
)

// snapshot is the serialized union of all durable state. The file on disk
// always represents a state that was fully materialized in memory at some
// past instant; the temp-write + rename below guarantees no torn reads.
type snapshot struct {
	Teams        map[string]*Team    `json:"teams"`
	Sessions     map[string]*Session `json:"sessions"`
	CurrentState string              `json:"current_state"`
	StateData    map[string]any      `json:"state_data"`
}

func (r *Registry) snapshotPath() string { return filepath.Join(r.dataDir, snapshotName) }
func (r *Registry) backupPath() string   { return filepath.Join(r.dataDir, backupName) }

// save persists the full snapshot. Requires the lock.
//
// Protocol: write to a temp file in the same directory, copy the existing
// primary to .bak (best effort), then atomically rename the temp file over
// the primary. Failures degrade durability, never the request.
func (r *Registry) save() {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		r.log.Error("create data dir failed", zap.Error(err))
		return
	}

	snap := snapshot{
		Teams:        r.teams,
		Sessions:     r.sessions,
		CurrentState: r.currentState,
		StateData:    r.stateData,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		r.log.Error("marshal snapshot failed", zap.Error(err))
		return
	}

	tmp, err := os.CreateTemp(r.dataDir, "scores_*.tmp")
	if err != nil {
		r.log.Error("create temp snapshot failed", zap.Error(err))
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		r.log.Error("write temp snapshot failed", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		r.log.Error("close temp snapshot failed", zap.Error(err))
		return
	}

	// Keep the previous good snapshot around before we replace it.
	if _, err := os.Stat(r.snapshotPath()); err == nil {
		if err := copyFile(r.snapshotPath(), r.backupPath()); err != nil {
			r.log.Warn("snapshot backup failed", zap.Error(err))
		}
	}

	if err := os.Rename(tmpPath, r.snapshotPath()); err != nil {
		os.Remove(tmpPath)
		r.log.Error("replace snapshot failed", zap.Error(err))
		// If the primary vanished, bring the backup forward so the next
		// startup still finds something readable.
		if _, statErr := os.Stat(r.snapshotPath()); os.IsNotExist(statErr) {
			if restoreErr := copyFile(r.backupPath(), r.snapshotPath()); restoreErr == nil {
				r.log.Info("restored snapshot from backup")
			}
		}
	}
}

// load reads the primary snapshot, falling back to the backup. Called once
// from New before the registry is shared, so no lock is needed.
func (r *Registry) load() {
	type source struct {
		name string
		path string
	}
	sources := []source{}
	if _, err := os.Stat(r.snapshotPath()); err == nil {
		sources = append(sources, source{"main", r.snapshotPath()})
	}
	if _, err := os.Stat(r.backupPath()); err == nil {
		sources = append(sources, source{"backup", r.backupPath()})
	}
	if len(sources) == 0 {
		r.log.Info("no snapshot found, starting fresh")
		return
	}

	for _, src := range sources {
		data, err := os.ReadFile(src.path)
		if err != nil {
			r.log.Error("read snapshot failed", zap.String("source", src.name), zap.Error(err))
			continue
		}
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			r.log.Error("parse snapshot failed", zap.String("source", src.name), zap.Error(err))
			continue
		}

		if snap.Teams != nil {
			r.teams = snap.Teams
		}
		if snap.Sessions != nil {
			r.sessions = snap.Sessions
		}
		if snap.CurrentState != "" {
			r.currentState = snap.CurrentState
		}
		if snap.StateData != nil {
			r.stateData = snap.StateData
		}

		// The join-code index is derived, not authoritative; rebuild it.
		r.joinCodes = make(map[string]string, len(r.teams))
		for teamID, team := range r.teams {
			if team.JoinCode != "" {
				r.joinCodes[team.JoinCode] = teamID
			}
			if team.Players == nil {
				team.Players = map[string]Player{}
			}
		}

		if src.name == "backup" {
			r.log.Warn("loaded from backup snapshot, repairing primary")
			if err := copyFile(r.backupPath(), r.snapshotPath()); err != nil {
				r.log.Error("repair primary snapshot failed", zap.Error(err))
			}
		}

		r.log.Info("snapshot loaded",
			zap.String("source", src.name),
			zap.Int("teams", len(r.teams)),
			zap.String("state", r.currentState))
		return
	}

	r.log.Error("all snapshots unreadable, starting fresh")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

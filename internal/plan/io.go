package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/log"
)

// Save writes the plan document as JSON through a sibling temp file and
// rename, so a crash mid-write never leaves a half-written plan.
func Save(p *Plan, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".plan-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("create temp plan file in %s", dir), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write temp plan file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "close temp plan file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("replace plan file %s", path), err)
	}

	return nil
}

// Load reads and validates a plan document. A plan that cannot be decoded or
// fails validation is moved aside to <path>.corrupted so the next planning
// run starts clean, and a corrupt-plan error is returned.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodePlanNotFound, fmt.Sprintf("plan file not found: %s", path)).
				WithSuggestion("Run 'wavectl plan' first to generate the execution plan")
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read plan file %s", path), err)
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		backupCorrupt(path)
		return nil, errors.NewPlanCorruptError(path, err)
	}
	if err := p.Validate(); err != nil {
		backupCorrupt(path)
		return nil, errors.NewPlanCorruptError(path, err)
	}

	return &p, nil
}

// backupCorrupt moves a bad plan aside, best effort.
func backupCorrupt(path string) {
	backup := path + ".corrupted"
	if err := os.Rename(path, backup); err != nil {
		log.DefaultLogger().Warn("could not back up corrupt plan", "path", path, "error", err)
		return
	}
	log.DefaultLogger().Warn("backed up corrupt plan", "path", path, "backup", backup)
}

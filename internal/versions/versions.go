// Package versions keeps a history of prompt-configuration snapshots in the
// key-value store. Snapshots are an admin convenience: the generation path
// never consults them.
package versions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wingman/internal/kvstore"
	"wingman/internal/prompt"
	"wingman/internal/runtimeconfig"
)

var ErrNotFound = errors.New("version not found")

// ConfigData is the subset of runtime configuration captured per snapshot.
// Key names match the stored configuration keys.
type ConfigData struct {
	SystemPrompt     string `json:"SYSTEM_PROMPT"`
	ResponseCriteria string `json:"RESPONSE_CRITERIA"`
	ModelName        string `json:"LLM_MODEL_NAME"`
	Provider         string `json:"LLM_PROVIDER"`
}

type Snapshot struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
	ConfigData  ConfigData `json:"configData"`
}

type Service struct {
	store kvstore.Store
	now   func() time.Time
}

func NewService(store kvstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Save snapshots configData under a fresh id, newest first. Empty fields are
// filled from the built-in defaults so a snapshot is always complete.
func (s *Service) Save(ctx context.Context, data ConfigData, description string) (Snapshot, error) {
	if data.SystemPrompt == "" {
		data.SystemPrompt = prompt.DefaultSystemPrompt
	}
	if data.ResponseCriteria == "" {
		data.ResponseCriteria = prompt.DefaultResponseCriteria
	}
	if data.ModelName == "" {
		data.ModelName = runtimeconfig.DefaultModel
	}
	if data.Provider == "" {
		data.Provider = runtimeconfig.DefaultProvider
	}

	snap := Snapshot{
		ID:          newVersionID(s.now()),
		Description: description,
		Timestamp:   s.now().UTC(),
		ConfigData:  data,
	}

	history, err := s.History(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	history = append([]Snapshot{snap}, history...)
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyVersionList, history); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) History(ctx context.Context) ([]Snapshot, error) {
	var history []Snapshot
	err := kvstore.GetJSON(ctx, s.store, kvstore.KeyVersionList, &history)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return []Snapshot{}, nil
		}
		return nil, err
	}
	return history, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	history, err := s.History(ctx)
	if err != nil {
		return err
	}

	kept := history[:0]
	found := false
	for _, snap := range history {
		if snap.ID == id {
			found = true
			continue
		}
		kept = append(kept, snap)
	}
	if !found {
		return ErrNotFound
	}
	return kvstore.SetJSON(ctx, s.store, kvstore.KeyVersionList, kept)
}

func newVersionID(now time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("v_%d_%s", now.UnixMilli(), suffix)
}

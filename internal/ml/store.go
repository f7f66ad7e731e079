package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrInsufficientTrainingData indicates that too few labeled rows were
// available to fit the model.
var ErrInsufficientTrainingData = errors.New("insufficient data to train model")

// ModelState is the serializable fitted state of the classifier.
type ModelState struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	TrainedAt time.Time `json:"trained_at"`
}

// ModelStore persists fitted model state across process restarts.
type ModelStore interface {
	// Load returns the stored state; the bool is false when no state exists.
	Load() (ModelState, bool, error)
	Save(state ModelState) error
}

// FileStore keeps the model state in a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (ModelState, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ModelState{}, false, nil
		}
		return ModelState{}, false, fmt.Errorf("failed to read model state: %w", err)
	}

	var state ModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return ModelState{}, false, fmt.Errorf("failed to parse model state: %w", err)
	}
	return state, true, nil
}

func (s *FileStore) Save(state ModelState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model state: %w", err)
	}
	return nil
}

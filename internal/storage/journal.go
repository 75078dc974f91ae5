package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"wedding-checkin/internal/models"
)

// Journal is an append-only log of check-in submissions kept in a JSON file.
// It stores ids and outcomes only, never attendee records.
type Journal struct {
	mu       sync.RWMutex
	receipts []models.CheckInReceipt
	file     string
}

// NewJournal creates a new journal backed by filePath
func NewJournal(filePath string) (*Journal, error) {
	j := &Journal{
		receipts: make([]models.CheckInReceipt, 0),
		file:     filePath,
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := j.Load(); err != nil {
			return nil, fmt.Errorf("failed to load journal: %w", err)
		}
	}

	return j, nil
}

// Record appends a receipt and saves the journal. The receipt is kept in
// memory only once the file has been written.
func (j *Journal) Record(receipt models.CheckInReceipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.At.IsZero() {
		receipt.At = time.Now()
	}
	receipt.UniqueIDs = slices.Clone(receipt.UniqueIDs)
	receipt.Names = slices.Clone(receipt.Names)

	receipts := append(slices.Clip(j.receipts), receipt)
	if err := j.save(receipts); err != nil {
		return err
	}
	j.receipts = receipts
	return nil
}

// GetAll returns all receipts, oldest first
func (j *Journal) GetAll() []models.CheckInReceipt {
	j.mu.RLock()
	defer j.mu.RUnlock()

	receipts := make([]models.CheckInReceipt, len(j.receipts))
	copy(receipts, j.receipts)
	return receipts
}

// GetByOutcome returns receipts filtered by outcome
func (j *Journal) GetByOutcome(outcome models.CheckInOutcome) []models.CheckInReceipt {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []models.CheckInReceipt
	for _, r := range j.receipts {
		if r.Outcome == outcome {
			result = append(result, r)
		}
	}
	return result
}

// CheckedInIDs returns every unique id from successful submissions, in the
// order they were first checked in
func (j *Journal) CheckedInIDs() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, r := range j.receipts {
		if r.Outcome != models.OutcomeSuccess {
			continue
		}
		for _, id := range r.UniqueIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// save writes receipts to file. j.mu must be held.
func (j *Journal) save(receipts []models.CheckInReceipt) error {
	data, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(j.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := j.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := os.Rename(tmp, j.file); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}

// Load loads receipts from file
func (j *Journal) Load() error {
	data, err := os.ReadFile(j.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		j.receipts = make([]models.CheckInReceipt, 0)
		return nil
	}

	if err := json.Unmarshal(data, &j.receipts); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}

// SPDX-License-Identifier: MIT

// Package rules stores user-authored recording rules in a JSON file with
// atomic writes and change notification.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/svoss/recplan/internal/plan"
)

var ErrRuleNotFound = errors.New("rule not found")

// Manager is the file-backed rule store. All mutations persist before they
// become visible, and subscribers are notified after each successful change.
type Manager struct {
	mu       sync.RWMutex
	rules    map[string]plan.Rule
	dataPath string

	subMu sync.Mutex
	subs  []func()
}

// NewManager creates a store rooted in dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{
		rules:    make(map[string]plan.Rule),
		dataPath: filepath.Join(dataDir, "rules.json"),
	}
}

// Path returns the backing file path.
func (m *Manager) Path() string { return m.dataPath }

// Load reads the rules file. A missing file is not an error.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.dataPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var stored []plan.Rule
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse %s: %w", m.dataPath, err)
	}

	m.rules = make(map[string]plan.Rule, len(stored))
	for _, r := range stored {
		m.rules[r.ID] = r
	}
	return nil
}

// Subscribe registers a callback invoked after every successful mutation.
func (m *Manager) Subscribe(fn func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Manager) notify() {
	m.subMu.Lock()
	subs := append([]func(){}, m.subs...)
	m.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (m *Manager) rulesSlice() []plan.Rule {
	sorted := make([]plan.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

func (m *Manager) saveToFile(rules []plan.Rule) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(m.dataPath, data, 0o600)
}

// AddRule validates and stores a new rule, minting an ID when absent.
func (m *Manager) AddRule(r plan.Rule) (string, error) {
	m.mu.Lock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if err := plan.ValidateRule(r); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.rules[r.ID] = r
	rules := m.rulesSlice()

	if err := m.saveToFile(rules); err != nil {
		delete(m.rules, r.ID)
		m.mu.Unlock()
		return "", fmt.Errorf("save rule: %w", err)
	}
	m.mu.Unlock()

	m.notify()
	return r.ID, nil
}

// GetRule returns a single rule by ID.
func (m *Manager) GetRule(id string) (plan.Rule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	return r, ok
}

// GetRules returns all rules sorted by ID.
func (m *Manager) GetRules() []plan.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rulesSlice()
}

// ActiveRules returns the active rules keyed by ID, as snapshot input.
func (m *Manager) ActiveRules() map[string]plan.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]plan.Rule, len(m.rules))
	for id, r := range m.rules {
		out[id] = r
	}
	return out
}

// UpdateRule replaces an existing rule.
func (m *Manager) UpdateRule(id string, upd plan.Rule) error {
	m.mu.Lock()
	existing, ok := m.rules[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	upd.ID = id
	if err := plan.ValidateRule(upd); err != nil {
		m.mu.Unlock()
		return err
	}

	m.rules[id] = upd
	rules := m.rulesSlice()

	if err := m.saveToFile(rules); err != nil {
		m.rules[id] = existing
		m.mu.Unlock()
		return fmt.Errorf("update rule: %w", err)
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// DeleteRule removes a rule.
func (m *Manager) DeleteRule(id string) error {
	m.mu.Lock()
	existing, ok := m.rules[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	delete(m.rules, id)
	rules := m.rulesSlice()

	if err := m.saveToFile(rules); err != nil {
		m.rules[id] = existing
		m.mu.Unlock()
		return fmt.Errorf("delete rule: %w", err)
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

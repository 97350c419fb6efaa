// Package abtest implements A/B experiments over combination strategies.
// Assignment is deterministic per user, so a user always sees the same
// variant for the lifetime of a test.
package abtest

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

const (
	VariantControl   = "control"
	VariantTreatment = "treatment"
)

// Test is a running experiment comparing two combination strategies.
type Test struct {
	Name              string          `json:"name"`
	ControlStrategy   domain.Strategy `json:"controlStrategy"`
	TreatmentStrategy domain.Strategy `json:"treatmentStrategy"`

	// Split is the fraction of users routed to the treatment arm, in [0,1].
	Split float64 `json:"split"`

	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

// variantStats accumulates per-arm outcomes.
type variantStats struct {
	count      int64
	probSum    float64
	confSum    float64
	latencySum float64
	decisions  map[domain.Decision]int64
}

func newVariantStats() *variantStats {
	return &variantStats{decisions: make(map[domain.Decision]int64)}
}

// Manager holds the active experiments and their accumulated outcomes.
type Manager struct {
	mu     sync.RWMutex
	tests  map[string]*Test
	assign map[string]map[string]string // test name -> user id -> variant
	stats  map[string]map[string]*variantStats
	logger *slog.Logger
}

// NewManager creates an experiment manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tests:  make(map[string]*Test),
		assign: make(map[string]map[string]string),
		stats:  make(map[string]map[string]*variantStats),
		logger: logger,
	}
}

// Create registers a new experiment.
func (m *Manager) Create(name string, control, treatment domain.Strategy, split float64) (*Test, error) {
	if name == "" {
		return nil, fmt.Errorf("test name is required")
	}
	if split < 0 || split > 1 {
		return nil, fmt.Errorf("split must be in [0,1], got %v", split)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tests[name]; exists {
		return nil, fmt.Errorf("test already exists: %s", name)
	}

	test := &Test{
		Name:              name,
		ControlStrategy:   control,
		TreatmentStrategy: treatment,
		Split:             split,
		CreatedAt:         time.Now().UTC(),
		Active:            true,
	}
	m.tests[name] = test
	m.assign[name] = make(map[string]string)
	m.stats[name] = map[string]*variantStats{
		VariantControl:   newVariantStats(),
		VariantTreatment: newVariantStats(),
	}

	m.logger.Info("ab test created",
		"test", name,
		"control", control,
		"treatment", treatment,
		"split", split)
	return test, nil
}

// Get returns a test by name.
func (m *Manager) Get(name string) (*Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	test, ok := m.tests[name]
	if !ok {
		return nil, fmt.Errorf("test not found: %s", name)
	}
	return test, nil
}

// List returns all registered tests.
func (m *Manager) List() []*Test {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tests := make([]*Test, 0, len(m.tests))
	for _, t := range m.tests {
		tests = append(tests, t)
	}
	return tests
}

// Assign buckets a user into an arm and returns the strategy to use.
// Assignment is sticky: repeated calls for the same user return the same
// variant even if the split later changes.
func (m *Manager) Assign(testName, userID string) (variant string, strategy domain.Strategy, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	test, ok := m.tests[testName]
	if !ok {
		return "", "", fmt.Errorf("test not found: %s", testName)
	}
	if !test.Active {
		return "", "", fmt.Errorf("test is stopped: %s", testName)
	}

	if v, ok := m.assign[testName][userID]; ok {
		return v, m.strategyFor(test, v), nil
	}

	variant = VariantControl
	if bucket(testName, userID) < test.Split*100 {
		variant = VariantTreatment
	}
	m.assign[testName][userID] = variant

	return variant, m.strategyFor(test, variant), nil
}

// Record accumulates a scored outcome into the user's arm.
func (m *Manager) Record(testName, userID string, result *domain.EnsembleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	variant, ok := m.assign[testName][userID]
	if !ok {
		return fmt.Errorf("user %s not assigned in test %s", userID, testName)
	}

	s := m.stats[testName][variant]
	s.count++
	s.probSum += result.FraudProbability
	s.confSum += result.Confidence
	s.latencySum += result.ProcessingMs
	s.decisions[result.Decision]++
	return nil
}

// Stop deactivates a test. Assignments and stats are retained for the
// report.
func (m *Manager) Stop(testName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	test, ok := m.tests[testName]
	if !ok {
		return fmt.Errorf("test not found: %s", testName)
	}
	test.Active = false
	return nil
}

// VariantReport summarizes one experiment arm.
type VariantReport struct {
	Strategy        domain.Strategy           `json:"strategy"`
	Users           int64                     `json:"users"`
	Predictions     int64                     `json:"predictions"`
	AvgProbability  float64                   `json:"avgProbability"`
	AvgConfidence   float64                   `json:"avgConfidence"`
	AvgProcessingMs float64                   `json:"avgProcessingMs"`
	Decisions       map[domain.Decision]int64 `json:"decisions"`
}

// Report describes both arms of an experiment.
type Report struct {
	Test     *Test                    `json:"test"`
	Variants map[string]VariantReport `json:"variants"`
}

// Report builds the current comparison for a test.
func (m *Manager) Report(testName string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	test, ok := m.tests[testName]
	if !ok {
		return nil, fmt.Errorf("test not found: %s", testName)
	}

	users := map[string]int64{}
	for _, v := range m.assign[testName] {
		users[v]++
	}

	variants := make(map[string]VariantReport, 2)
	for variant, s := range m.stats[testName] {
		r := VariantReport{
			Strategy:  m.strategyFor(test, variant),
			Users:     users[variant],
			Decisions: make(map[domain.Decision]int64, len(s.decisions)),
		}
		r.Predictions = s.count
		if s.count > 0 {
			r.AvgProbability = s.probSum / float64(s.count)
			r.AvgConfidence = s.confSum / float64(s.count)
			r.AvgProcessingMs = s.latencySum / float64(s.count)
		}
		for d, n := range s.decisions {
			r.Decisions[d] = n
		}
		variants[variant] = r
	}

	return &Report{Test: test, Variants: variants}, nil
}

func (m *Manager) strategyFor(test *Test, variant string) domain.Strategy {
	if variant == VariantTreatment {
		return test.TreatmentStrategy
	}
	return test.ControlStrategy
}

// bucket maps a (test, user) pair to a stable value in [0,100).
func bucket(testName, userID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(testName))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	return float64(h.Sum32() % 100)
}

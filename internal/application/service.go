package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

const (
	// DefaultMaxDepth bounds graph traversal when the caller does not ask
	// for a depth.
	DefaultMaxDepth = 10

	// SoftDeleteWindow is how long a soft-deleted property stays instantly
	// restorable before the sweep moves it to the archive stage.
	SoftDeleteWindow = 90 * 24 * time.Hour

	// ArchiveRetention is the regulatory hold on archived snapshots.
	ArchiveRetention = 7 * 365 * 24 * time.Hour
)

// SweepActor is the synthetic actor recorded on audits written by batch
// jobs rather than a caller.
var SweepActor = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Engine implements dependency discovery, graph traversal, impact analysis,
// cascade execution and the deletion lifecycle on top of the storage port.
type Engine struct {
	repo     domain.PropertyRepository
	notifier domain.Notifier
	log      *logrus.Logger
	weights  domain.RiskWeights
	locks    *propertyLocks
	now      func() time.Time
}

func NewEngine(repo domain.PropertyRepository, notifier domain.Notifier, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		repo:     repo,
		notifier: notifier,
		log:      log,
		weights:  domain.DefaultRiskWeights(),
		locks:    newPropertyLocks(),
		now:      time.Now,
	}
}

// SetRiskWeights replaces the scoring constants. Call before serving.
func (e *Engine) SetRiskWeights(w domain.RiskWeights) { e.weights = w }

// propertyLocks serializes mutating operations per root property. Entries
// are never removed; the map is bounded by the number of properties ever
// touched by a mutation.
type propertyLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]*sync.Mutex
}

func newPropertyLocks() *propertyLocks {
	return &propertyLocks{held: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *propertyLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.held[id]
	if !ok {
		m = &sync.Mutex{}
		l.held[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

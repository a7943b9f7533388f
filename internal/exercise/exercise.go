// Package exercise provides the remediation exercise catalog. Each exercise
// kind has its own completion semantics; new kinds are added by registering
// a variant, not by branching in the cooldown manager.
package exercise

import (
	"fmt"
	"sort"
	"sync"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

// Exercise defines one remediation exercise and its completion check.
type Exercise interface {
	ID() models.ExerciseID
	Title() string
	// IsSatisfiedBy validates a submission, returning nil when the
	// exercise counts as completed.
	IsSatisfiedBy(sub models.ExerciseSubmission) error
}

// Registry holds the known exercises, looked up by ID.
type Registry struct {
	mu        sync.RWMutex
	exercises map[models.ExerciseID]Exercise
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exercises: make(map[models.ExerciseID]Exercise),
	}
}

// DefaultRegistry returns a registry with the built-in exercise catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewBreathing(60))
	r.Register(NewJournal(80))
	r.Register(NewPastMistakes())
	r.Register(NewRiskVisualization())
	return r
}

// Register adds an exercise to the registry, replacing any previous
// exercise with the same ID.
func (r *Registry) Register(e Exercise) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exercises[e.ID()] = e
}

// Lookup returns the exercise with the given ID.
func (r *Registry) Lookup(id models.ExerciseID) (Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.exercises[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownExercise, "exercise %q", id)
	}
	return e, nil
}

// IDs returns the registered exercise IDs in stable order.
func (r *Registry) IDs() []models.ExerciseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]models.ExerciseID, 0, len(r.exercises))
	for id := range r.exercises {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Breathing is a timer-gated breathing exercise: the user must report at
// least the minimum guided-breathing duration.
type Breathing struct {
	minSeconds int
}

// NewBreathing creates a breathing exercise with a minimum duration.
func NewBreathing(minSeconds int) *Breathing {
	return &Breathing{minSeconds: minSeconds}
}

func (b *Breathing) ID() models.ExerciseID { return models.ExerciseBreathing }

func (b *Breathing) Title() string { return "Guided breathing" }

func (b *Breathing) IsSatisfiedBy(sub models.ExerciseSubmission) error {
	if sub.DurationSeconds < b.minSeconds {
		return errors.Wrapf(errors.ErrExerciseNotSatisfied,
			"breathing requires %ds, got %ds", b.minSeconds, sub.DurationSeconds)
	}
	return nil
}

// Journal is a free-text reflection exercise with a minimum length.
type Journal struct {
	minChars int
}

// NewJournal creates a journal exercise with a minimum text length.
func NewJournal(minChars int) *Journal {
	return &Journal{minChars: minChars}
}

func (j *Journal) ID() models.ExerciseID { return models.ExerciseJournal }

func (j *Journal) Title() string { return "Written reflection" }

func (j *Journal) IsSatisfiedBy(sub models.ExerciseSubmission) error {
	if len(sub.Text) < j.minChars {
		return errors.Wrapf(errors.ErrExerciseNotSatisfied,
			"reflection requires at least %d characters, got %d", j.minChars, len(sub.Text))
	}
	return nil
}

// PastMistakes is a read-and-acknowledge review of prior losing trades.
type PastMistakes struct{}

// NewPastMistakes creates the past-mistakes review exercise.
func NewPastMistakes() *PastMistakes {
	return &PastMistakes{}
}

func (p *PastMistakes) ID() models.ExerciseID { return models.ExercisePastMistakes }

func (p *PastMistakes) Title() string { return "Past mistakes review" }

func (p *PastMistakes) IsSatisfiedBy(sub models.ExerciseSubmission) error {
	if !sub.Acknowledged {
		return errors.Wrap(errors.ErrExerciseNotSatisfied, "review must be acknowledged")
	}
	return nil
}

// RiskVisualization asks the user to acknowledge the risk summary and state
// the position size they intend to use next.
type RiskVisualization struct{}

// NewRiskVisualization creates the risk visualization exercise.
func NewRiskVisualization() *RiskVisualization {
	return &RiskVisualization{}
}

func (r *RiskVisualization) ID() models.ExerciseID { return models.ExerciseRiskVisualization }

func (r *RiskVisualization) Title() string { return "Risk visualization" }

func (r *RiskVisualization) IsSatisfiedBy(sub models.ExerciseSubmission) error {
	if !sub.Acknowledged {
		return errors.Wrap(errors.ErrExerciseNotSatisfied, "risk summary must be acknowledged")
	}
	if sub.PositionSize <= 0 {
		return fmt.Errorf("%w: intended position size must be positive", errors.ErrExerciseNotSatisfied)
	}
	return nil
}

// Package model provides state management for machine learning models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// StateManager manages the fitted state of an estimator in a thread-safe manner.
// It replaces the BaseEstimator embedding pattern with composition for
// estimators that also need to remember fitted dimensionality.
type StateManager struct {
	Fitted bool
	mu     sync.RWMutex

	// Dimensionality recorded at fit time. NFeaturesX is -1 when the
	// estimator was fitted without heterogeneity features (X == nil).
	NFeaturesX  int
	NTreatments int
	NSamples    int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{
		Fitted:     false,
		NFeaturesX: -1,
	}
}

// IsFitted returns whether the estimator has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset discards the fitted state and all recorded dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeaturesX = -1
	s.NTreatments = 0
	s.NSamples = 0
}

// SetDimensions records the shapes seen during fitting. nFeaturesX must be
// -1 when no X was supplied.
func (s *StateManager) SetDimensions(nFeaturesX, nTreatments, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeaturesX = nFeaturesX
	s.NTreatments = nTreatments
	s.NSamples = nSamples
}

// GetDimensions returns the shapes recorded during fitting.
func (s *StateManager) GetDimensions() (nFeaturesX, nTreatments, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeaturesX, s.NTreatments, s.NSamples
}

// RequireFitted returns a NotFittedError if the estimator has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

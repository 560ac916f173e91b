// Package onboarding exposes property onboarding wizards over HTTP.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/drafts"
	"homezoo/partner-portal/onboarding-service/internal/wizard"
)

var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrForbidden       = errors.New("wizard session belongs to another partner")
)

// Uploads is the per-partner upload collaborator and the URL prefix of the
// objects it writes
type Uploads interface {
	wizard.UploadService
	URLPrefix() string
}

// Dependencies wires the service to its collaborators
type Dependencies struct {
	Properties wizard.PropertyService
	Locations  wizard.LocationService
	// UploadsFor scopes uploads to a partner.
	UploadsFor func(owner string) Uploads
	Drafts     drafts.Store
	DraftDelay time.Duration
}

// Service creates, finds and ends wizard sessions
type Service struct {
	registry *Registry
	deps     Dependencies
	logger   *zap.Logger
}

func NewService(registry *Registry, deps Dependencies, logger *zap.Logger) *Service {
	return &Service{registry: registry, deps: deps, logger: logger}
}

func (s *Service) wizardDeps(owner string) wizard.Dependencies {
	d := wizard.Dependencies{
		Properties: s.deps.Properties,
		Locations:  s.deps.Locations,
		Logger:     s.logger.With(zap.String("partner_id", owner)),
	}
	if s.deps.UploadsFor != nil {
		up := s.deps.UploadsFor(owner)
		d.Uploads = up
		d.StorageURLPrefix = up.URLPrefix()
	}
	return d
}

// Start opens a wizard. Without a property id it starts the add flow,
// resuming the partner's stored draft or the live session already editing it.
// With a property id it loads that property for editing.
func (s *Service) Start(ctx context.Context, owner string, kind wizard.PropertyKind, propertyID string) (*wizard.Wizard, error) {
	if _, err := wizard.SchemaFor(kind); err != nil {
		return nil, err
	}

	if propertyID != "" {
		w, err := wizard.Open(ctx, kind, propertyID, s.wizardDeps(owner))
		if err != nil {
			return nil, err
		}
		s.registry.add(w, owner, "")
		s.logger.Info("Started edit wizard",
			zap.String("session_id", w.ID()),
			zap.String("partner_id", owner),
			zap.String("property_id", propertyID))
		return w, nil
	}

	key := drafts.Key(owner, string(kind), "new")
	if live, ok := s.registry.byDraft(key); ok {
		snap := live.wizard.Snapshot()
		if !snap.Complete && !snap.Exited {
			return live.wizard, nil
		}
		s.registry.remove(live.wizard.ID())
	}

	var keeper *wizard.DraftKeeper
	if s.deps.Drafts != nil {
		keeper = wizard.NewDraftKeeper(s.deps.Drafts, key, s.deps.DraftDelay, s.logger)
	}
	w, err := wizard.New(ctx, kind, s.wizardDeps(owner), keeper)
	if err != nil {
		return nil, err
	}
	s.registry.add(w, owner, key)
	s.logger.Info("Started add wizard",
		zap.String("session_id", w.ID()),
		zap.String("partner_id", owner),
		zap.String("kind", string(kind)))
	return w, nil
}

// Get returns the live wizard id if owner may use it
func (s *Service) Get(owner, id string) (*wizard.Wizard, error) {
	sess, ok := s.registry.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if sess.owner != owner {
		return nil, ErrForbidden
	}
	return sess.wizard, nil
}

// Exit abandons the wizard, deletes its draft and forgets the session
func (s *Service) Exit(ctx context.Context, owner, id string) error {
	w, err := s.Get(owner, id)
	if err != nil {
		return err
	}
	if err := w.Exit(ctx); err != nil && !errors.Is(err, wizard.ErrWizardClosed) {
		return err
	}
	s.registry.remove(id)
	return nil
}

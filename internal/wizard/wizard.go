// Package wizard implements the property onboarding wizard engine shared by
// the hostel, resort and villa flows.
//
// A Wizard owns one draft, its room types and the navigation session. Every
// exported method is safe for concurrent use; network calls run without the
// wizard lock held.
package wizard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/pkg/formpath"
	"homezoo/partner-portal/onboarding-service/pkg/workflows"
)

// Dependencies are the external collaborators of a wizard
type Dependencies struct {
	Properties PropertyService
	Locations  LocationService
	Uploads    UploadService
	Logger     *zap.Logger
	// StorageURLPrefix marks image URLs that may be deleted remotely.
	StorageURLPrefix string
}

type Wizard struct {
	id      string
	schema  Schema
	machine *workflows.StepMachine
	deps    Dependencies
	logger  *zap.Logger
	keeper  *DraftKeeper

	mu              sync.Mutex
	session         Session
	draft           PropertyDraft
	roomTypes       []RoomType
	backendProperty *PropertyRecord
	submissionKey   string
	busy            map[Slot]bool
	submitting      bool
	exited          bool
}

func newWizard(kind PropertyKind, deps Dependencies) (*Wizard, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return &Wizard{
		id:      id,
		schema:  schema,
		machine: workflows.NewStepMachine(schema.StepCount()),
		deps:    deps,
		logger:  logger.With(zap.String("session_id", id), zap.String("kind", string(kind))),
		session: Session{
			Step:                1,
			OriginalRoomTypeIDs: []string{},
		},
		draft:         newDraft(schema),
		roomTypes:     []RoomType{},
		submissionKey: uuid.New().String(),
		busy:          make(map[Slot]bool),
	}, nil
}

// New starts an add-flow wizard. When keeper is set the wizard resumes the
// stored draft and mirrors every change into it.
func New(ctx context.Context, kind PropertyKind, deps Dependencies, keeper *DraftKeeper) (*Wizard, error) {
	w, err := newWizard(kind, deps)
	if err != nil {
		return nil, err
	}
	w.keeper = keeper
	if keeper == nil {
		return w, nil
	}

	rec, ok := keeper.Load(ctx)
	if !ok {
		return w, nil
	}
	w.restore(rec)
	w.logger.Info("Resumed wizard draft", zap.Int("step", w.session.Step))
	return w, nil
}

func (w *Wizard) restore(rec *DraftRecord) {
	if rec.Step >= 1 && rec.Step <= w.schema.StepCount() {
		w.session.Step = rec.Step
	}
	w.draft = rec.Draft
	if w.draft.Location.Coordinates == nil {
		w.draft.Location = Location{Type: "Point", Coordinates: []string{"", ""}}
	}
	if rec.RoomTypes != nil {
		w.roomTypes = rec.RoomTypes
	}
	w.backendProperty = rec.BackendProperty
	if rec.SubmissionKey != "" {
		w.submissionKey = rec.SubmissionKey
	}
	// a resumed retry still knows which room types the backend holds
	for _, rt := range w.roomTypes {
		if rt.BackendID != "" {
			w.session.OriginalRoomTypeIDs = append(w.session.OriginalRoomTypeIDs, rt.BackendID)
		}
	}
}

// Open starts an edit-flow wizard hydrated from the backend. Edit flows never
// keep a local draft.
func Open(ctx context.Context, kind PropertyKind, propertyID string, deps Dependencies) (*Wizard, error) {
	w, err := newWizard(kind, deps)
	if err != nil {
		return nil, err
	}

	details, err := deps.Properties.GetDetails(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property %s: %w", propertyID, err)
	}
	if details.Property.ID == "" {
		details.Property.ID = propertyID
	}

	w.draft = draftFromRecord(w.schema, details.Property, details.Documents)
	for _, rec := range details.RoomTypes {
		w.roomTypes = append(w.roomTypes, roomTypeFromRecord(rec, uuid.New().String()))
		w.session.OriginalRoomTypeIDs = append(w.session.OriginalRoomTypeIDs, rec.ID)
	}
	prop := details.Property
	w.backendProperty = &prop

	w.logger.Info("Opened property for editing",
		zap.String("property_id", propertyID),
		zap.Int("room_types", len(w.roomTypes)))
	return w, nil
}

func (w *Wizard) ID() string {
	return w.id
}

func (w *Wizard) Kind() PropertyKind {
	return w.schema.Kind
}

func (w *Wizard) Schema() Schema {
	return w.schema
}

// Snapshot is a read-only view of the wizard
type Snapshot struct {
	ID              string        `json:"id"`
	Kind            PropertyKind  `json:"kind"`
	Step            int           `json:"step"`
	StepID          StepID        `json:"stepId"`
	TotalSteps      int           `json:"totalSteps"`
	PropertyID      string        `json:"propertyId,omitempty"`
	Draft           PropertyDraft `json:"draft"`
	RoomTypes       []RoomType    `json:"roomTypes"`
	Editor          EditorState   `json:"editor"`
	ScratchNearby   *NearbyPlace  `json:"scratchNearby,omitempty"`
	ScratchRoomType *RoomType     `json:"scratchRoomType,omitempty"`
	SearchResults   []PlaceResult `json:"searchResults,omitempty"`
	Uploading       []Slot        `json:"uploading"`
	Submitting      bool          `json:"submitting"`
	Complete        bool          `json:"complete"`
	Exited          bool          `json:"exited"`
	Error           string        `json:"error,omitempty"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:            w.id,
		Kind:          w.schema.Kind,
		Step:          w.session.Step,
		StepID:        w.schema.StepAt(w.session.Step),
		TotalSteps:    w.schema.StepCount(),
		Draft:         w.draft,
		RoomTypes:     w.roomTypes,
		Editor:        w.session.Editor,
		SearchResults: w.session.SearchResults,
		Uploading:     make([]Slot, 0, len(w.busy)),
		Submitting:    w.submitting,
		Complete:      w.session.Step == w.machine.Terminal(),
		Exited:        w.exited,
		Error:         w.session.Error,
	}
	if w.backendProperty != nil {
		s.PropertyID = w.backendProperty.ID
	}
	switch w.session.Editor.Entity {
	case EntityNearby:
		n := w.session.ScratchNearby
		s.ScratchNearby = &n
	case EntityRoomType:
		rt := w.session.ScratchRoomType.Clone()
		s.ScratchRoomType = &rt
	}
	for slot := range w.busy {
		s.Uploading = append(s.Uploading, slot)
	}
	sort.Slice(s.Uploading, func(i, j int) bool { return s.Uploading[i] < s.Uploading[j] })
	return s
}

// Set replaces the draft field at a dotted path such as "address.city"
func (w *Wizard) Set(path string, value any) error {
	return w.SetPath(formpath.Split(path), value)
}

// SetPath replaces the draft field addressed by explicit segments
func (w *Wizard) SetPath(path []string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return err
	}
	next, err := formpath.Set(w.draft, path, value)
	if err != nil {
		return fmt.Errorf("set draft field: %w", err)
	}
	w.draft = next
	w.session.Error = ""
	w.persistLocked()
	return nil
}

// Toggle adds value to the string set at path, or removes it when present
func (w *Wizard) Toggle(path, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return err
	}
	next, err := toggleIn(w.draft, formpath.Split(path), value)
	if err != nil {
		return err
	}
	w.draft = next
	w.session.Error = ""
	w.persistLocked()
	return nil
}

func toggleIn[T any](root T, path []string, value string) (T, error) {
	cur, err := formpath.Get(root, path)
	if err != nil {
		return root, fmt.Errorf("toggle: %w", err)
	}
	items, ok := cur.([]string)
	if !ok {
		return root, fmt.Errorf("toggle: %w: not a string set", formpath.ErrTypeMismatch)
	}
	next := appended(items, value)
	for i, item := range items {
		if item == value {
			next = without(items, i)
			break
		}
	}
	out, err := formpath.Set(root, path, next)
	if err != nil {
		return root, fmt.Errorf("toggle: %w", err)
	}
	return out, nil
}

// Exit abandons the wizard and deletes its local draft
func (w *Wizard) Exit(ctx context.Context) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInProgress
	}
	w.exited = true
	w.session.Editor = EditorState{}
	w.mu.Unlock()

	return w.clearDraft(ctx)
}

func (w *Wizard) clearDraft(ctx context.Context) error {
	if w.keeper == nil {
		return nil
	}
	if err := w.keeper.Clear(ctx); err != nil {
		w.logger.Warn("Failed to clear draft", zap.Error(err))
		return err
	}
	return nil
}

// FlushDraft writes any pending draft change immediately
func (w *Wizard) FlushDraft(ctx context.Context) error {
	if w.keeper == nil {
		return nil
	}
	return w.keeper.Flush(ctx)
}

func (w *Wizard) mutableLocked() error {
	switch {
	case w.exited:
		return ErrWizardClosed
	case w.submitting:
		return ErrSubmitInProgress
	case w.session.Step == w.machine.Terminal():
		return ErrWizardComplete
	}
	return nil
}

func (w *Wizard) recordLocked() DraftRecord {
	return DraftRecord{
		Step:            w.session.Step,
		Draft:           w.draft,
		RoomTypes:       w.roomTypes,
		BackendProperty: w.backendProperty,
		SubmissionKey:   w.submissionKey,
	}
}

func (w *Wizard) persistLocked() {
	if w.keeper == nil || w.exited {
		return
	}
	w.keeper.Schedule(w.recordLocked())
}

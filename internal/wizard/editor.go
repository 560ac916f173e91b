package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"homezoo/partner-portal/onboarding-service/pkg/formpath"
)

// listEditor is the inline add/edit/delete pattern shared by every
// sub-entity list. All methods run with the wizard lock held.
type listEditor[T any] struct {
	entity   Entity
	capacity int
	list     func(w *Wizard) []T
	setList  func(w *Wizard, items []T)
	scratch  func(w *Wizard) *T
	blank    func(w *Wizard) T
	clone    func(T) T
	validate func(w *Wizard, item T) *ValidationError
}

type entityEditor interface {
	startAdd(w *Wizard) error
	startEdit(w *Wizard, i int) error
	cancel(w *Wizard) error
	save(w *Wizard) error
	remove(w *Wizard, i int) error
	setField(w *Wizard, path []string, value any) error
	toggleField(w *Wizard, path []string, value string) error
}

func (e *listEditor[T]) startAdd(w *Wizard) error {
	if w.session.Editor.Active() {
		return ErrEditorBusy
	}
	if e.capacity > 0 && len(e.list(w)) >= e.capacity {
		w.session.Error = UserMessage(ErrCapacityReached)
		return fmt.Errorf("%w: at most %d %s entries", ErrCapacityReached, e.capacity, e.entity)
	}
	*e.scratch(w) = e.blank(w)
	w.session.Editor = EditorState{Entity: e.entity, Index: NewIndex}
	w.session.SearchResults = nil
	w.session.Error = ""
	return nil
}

func (e *listEditor[T]) startEdit(w *Wizard, i int) error {
	if w.session.Editor.Active() {
		return ErrEditorBusy
	}
	items := e.list(w)
	if i < 0 || i >= len(items) {
		return fmt.Errorf("%w: %s %d", ErrIndexOutOfRange, e.entity, i)
	}
	*e.scratch(w) = e.clone(items[i])
	w.session.Editor = EditorState{Entity: e.entity, Index: i}
	w.session.SearchResults = nil
	w.session.Error = ""
	return nil
}

func (e *listEditor[T]) cancel(w *Wizard) error {
	if w.session.Editor.Entity != e.entity {
		return ErrEditorClosed
	}
	var zero T
	*e.scratch(w) = zero
	w.session.Editor = EditorState{}
	w.session.SearchResults = nil
	w.session.Error = ""
	return nil
}

func (e *listEditor[T]) save(w *Wizard) error {
	if w.session.Editor.Entity != e.entity {
		return ErrEditorClosed
	}
	item := e.clone(*e.scratch(w))
	if verr := e.validate(w, item); verr != nil {
		w.session.Error = verr.Message
		return verr
	}

	items := e.list(w)
	idx := w.session.Editor.Index
	switch {
	case idx == NewIndex:
		if e.capacity > 0 && len(items) >= e.capacity {
			w.session.Error = UserMessage(ErrCapacityReached)
			return ErrCapacityReached
		}
		e.setList(w, appended(items, item))
	case idx >= 0 && idx < len(items):
		e.setList(w, replaced(items, idx, item))
	default:
		return fmt.Errorf("%w: %s %d", ErrIndexOutOfRange, e.entity, idx)
	}

	var zero T
	*e.scratch(w) = zero
	w.session.Editor = EditorState{}
	w.session.SearchResults = nil
	w.session.Error = ""
	w.persistLocked()
	return nil
}

func (e *listEditor[T]) remove(w *Wizard, i int) error {
	if w.session.Editor.Active() {
		return ErrEditorActive
	}
	items := e.list(w)
	if i < 0 || i >= len(items) {
		return fmt.Errorf("%w: %s %d", ErrIndexOutOfRange, e.entity, i)
	}
	e.setList(w, without(items, i))
	w.session.Error = ""
	w.persistLocked()
	return nil
}

func (e *listEditor[T]) setField(w *Wizard, path []string, value any) error {
	if w.session.Editor.Entity != e.entity {
		return ErrEditorClosed
	}
	next, err := formpath.Set(*e.scratch(w), path, value)
	if err != nil {
		return fmt.Errorf("set %s field: %w", e.entity, err)
	}
	*e.scratch(w) = next
	return nil
}

func (e *listEditor[T]) toggleField(w *Wizard, path []string, value string) error {
	if w.session.Editor.Entity != e.entity {
		return ErrEditorClosed
	}
	next, err := toggleIn(*e.scratch(w), path, value)
	if err != nil {
		return err
	}
	*e.scratch(w) = next
	return nil
}

var nearbyEditor = &listEditor[NearbyPlace]{
	entity:   EntityNearby,
	capacity: MaxNearbyPlaces,
	list:     func(w *Wizard) []NearbyPlace { return w.draft.NearbyPlaces },
	setList:  func(w *Wizard, items []NearbyPlace) { w.draft.NearbyPlaces = items },
	scratch:  func(w *Wizard) *NearbyPlace { return &w.session.ScratchNearby },
	blank:    func(*Wizard) NearbyPlace { return NearbyPlace{Type: PlaceTourist} },
	clone:    func(p NearbyPlace) NearbyPlace { return p },
	validate: func(_ *Wizard, p NearbyPlace) *ValidationError { return validateNearby(p) },
}

var roomTypeEditor = &listEditor[RoomType]{
	entity:   EntityRoomType,
	list:     func(w *Wizard) []RoomType { return w.roomTypes },
	setList:  func(w *Wizard, items []RoomType) { w.roomTypes = items },
	scratch:  func(w *Wizard) *RoomType { return &w.session.ScratchRoomType },
	blank:    func(w *Wizard) RoomType { return newRoomType(w.schema) },
	clone:    RoomType.Clone,
	validate: func(w *Wizard, rt RoomType) *ValidationError { return validateRoomType(w.schema, rt) },
}

func validateNearby(p NearbyPlace) *ValidationError {
	if strings.TrimSpace(p.Name) == "" {
		return invalid(StepNearby, "name", "Enter the place name.")
	}
	if !placeTypes[p.Type] {
		return invalid(StepNearby, "type", "Choose a place type.")
	}
	if strings.TrimSpace(p.DistanceKm) == "" {
		return invalid(StepNearby, "distanceKm", "Enter the distance in km.")
	}
	if km, err := strconv.ParseFloat(strings.TrimSpace(p.DistanceKm), 64); err != nil || km < 0 {
		return invalid(StepNearby, "distanceKm", "Distance must be a positive number.")
	}
	return nil
}

func validateRoomType(schema Schema, rt RoomType) *ValidationError {
	if strings.TrimSpace(rt.Name) == "" {
		return invalid(StepRoomTypes, "name", "Enter the room type name.")
	}
	switch rt.InventoryType {
	case InventoryBed, InventoryRoom, InventoryEntire:
	default:
		return invalid(StepRoomTypes, "inventoryType", "Choose an inventory type.")
	}
	switch rt.RoomCategory {
	case CategoryShared, CategoryPrivate, CategoryEntire:
	default:
		return invalid(StepRoomTypes, "roomCategory", "Choose a room category.")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(rt.PricePerNight), 64)
	if err != nil || price <= 0 {
		return invalid(StepRoomTypes, "pricePerNight", "Enter a valid price per night.")
	}
	if len(rt.Images) < schema.RoomImageCount {
		return invalid(StepRoomTypes, "images",
			fmt.Sprintf("Upload %d images for %s.", schema.RoomImageCount, rt.Name))
	}
	if _, err := buildRoomTypePayload(0, rt); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return invalid(StepRoomTypes, "", err.Error())
		}
		verr.Field = strings.TrimPrefix(verr.Field, "roomTypes.0.")
		return verr
	}
	return nil
}

func (w *Wizard) editor(e Entity) (entityEditor, error) {
	switch e {
	case EntityNearby:
		return nearbyEditor, nil
	case EntityRoomType:
		return roomTypeEditor, nil
	}
	return nil, fmt.Errorf("unknown entity %q", e)
}

func (w *Wizard) withEditor(e Entity, fn func(ed entityEditor) error) error {
	ed, err := w.editor(e)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutableLocked(); err != nil {
		return err
	}
	return fn(ed)
}

// StartAdd opens the inline editor on a blank entity
func (w *Wizard) StartAdd(e Entity) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.startAdd(w) })
}

// StartEdit opens the inline editor on a copy of entity i
func (w *Wizard) StartEdit(e Entity, i int) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.startEdit(w, i) })
}

func (w *Wizard) Cancel(e Entity) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.cancel(w) })
}

// Save validates the scratch entity and commits it to the list
func (w *Wizard) Save(e Entity) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.save(w) })
}

// Delete removes entity i. It is refused with ErrEditorActive while any
// inline editor is open, so an open editor never points at a shifted index.
func (w *Wizard) Delete(e Entity, i int) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.remove(w, i) })
}

// SetScratch edits a field of the entity in the open editor
func (w *Wizard) SetScratch(e Entity, path string, value any) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.setField(w, formpath.Split(path), value) })
}

func (w *Wizard) ToggleScratch(e Entity, path, value string) error {
	return w.withEditor(e, func(ed entityEditor) error { return ed.toggleField(w, formpath.Split(path), value) })
}

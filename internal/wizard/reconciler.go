package wizard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const submitFailedMessage = "We couldn't save your property. Please try again."

// Submit persists the draft. A property the backend already knows is updated
// and its room types reconciled one call at a time; otherwise the property is
// created in a single call with its room types embedded. Submission is only
// allowed from the review step and only once every input step validates. On
// failure the step and all local state are kept so the call can be retried.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if err := w.navigableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if step := w.session.Step; w.schema.StepAt(step) != StepReview {
		w.mu.Unlock()
		return fmt.Errorf("%w: submit from step %d", ErrInvalidStep, step)
	}
	// a resumed draft restores its step without replaying the gates
	for _, step := range w.schema.Steps {
		if verr := w.validateLocked(step); verr != nil {
			w.session.Error = verr.Message
			w.mu.Unlock()
			return verr
		}
	}

	payload, rooms, err := w.assembleLocked()
	if err != nil {
		w.session.Error = UserMessage(err)
		w.mu.Unlock()
		return err
	}
	roomTypes := w.roomTypes
	original := append([]string(nil), w.session.OriginalRoomTypeIDs...)
	propertyID := ""
	if w.backendProperty != nil {
		propertyID = w.backendProperty.ID
	}
	key := w.submissionKey
	w.submitting = true
	w.session.Error = ""
	w.mu.Unlock()

	var persisted []string
	if propertyID != "" {
		persisted, err = w.reconcile(ctx, propertyID, payload, roomTypes, rooms, original)
	} else {
		persisted, err = w.create(ctx, payload, roomTypes, rooms, key)
	}

	w.mu.Lock()
	w.submitting = false
	if err != nil {
		w.session.Error = submitFailedMessage
		w.persistLocked()
		w.mu.Unlock()
		w.logger.Error("Property submission failed", zap.String("property_id", propertyID), zap.Error(err))
		return err
	}
	w.session.OriginalRoomTypeIDs = persisted
	w.session.Step = w.machine.Terminal()
	w.session.Error = ""
	if w.backendProperty != nil {
		propertyID = w.backendProperty.ID
	}
	w.mu.Unlock()

	w.logger.Info("Property submitted",
		zap.String("property_id", propertyID),
		zap.Int("room_types", len(persisted)))
	_ = w.clearDraft(ctx)
	return nil
}

func (w *Wizard) assembleLocked() (PropertyPayload, []RoomTypePayload, error) {
	payload, err := buildPayload(w.schema.Kind, w.draft)
	if err != nil {
		return PropertyPayload{}, nil, err
	}
	rooms := make([]RoomTypePayload, len(w.roomTypes))
	for i, rt := range w.roomTypes {
		if rooms[i], err = buildRoomTypePayload(i, rt); err != nil {
			return PropertyPayload{}, nil, err
		}
	}
	return payload, rooms, nil
}

func (w *Wizard) create(ctx context.Context, payload PropertyPayload, roomTypes []RoomType, rooms []RoomTypePayload, key string) ([]string, error) {
	payload.RoomTypes = rooms
	res, err := w.deps.Properties.Create(ctx, CreatePropertyRequest{Payload: payload, IdempotencyKey: key})
	if err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	if res == nil || res.Property.ID == "" {
		return nil, errors.New("create property: backend returned no property id")
	}

	w.mu.Lock()
	prop := res.Property
	w.backendProperty = &prop
	w.mu.Unlock()

	persisted := make([]string, 0, len(res.RoomTypes))
	for i, rec := range res.RoomTypes {
		if rec.ID == "" {
			continue
		}
		if i < len(roomTypes) {
			w.recordRoomTypeID(i, roomTypes[i].ID, rec.ID)
		}
		persisted = append(persisted, rec.ID)
	}
	return persisted, nil
}

func (w *Wizard) reconcile(ctx context.Context, propertyID string, payload PropertyPayload, roomTypes []RoomType, rooms []RoomTypePayload, original []string) ([]string, error) {
	rec, err := w.deps.Properties.Update(ctx, propertyID, payload)
	if err != nil {
		return nil, fmt.Errorf("update property %s: %w", propertyID, err)
	}
	if rec != nil {
		if rec.ID == "" {
			rec.ID = propertyID
		}
		w.mu.Lock()
		w.backendProperty = rec
		w.mu.Unlock()
	}

	persisted := make([]string, 0, len(roomTypes))
	for i, rt := range roomTypes {
		if rt.BackendID != "" {
			if err := w.deps.Properties.UpdateRoomType(ctx, propertyID, rt.BackendID, rooms[i]); err != nil {
				return nil, fmt.Errorf("update room type %s: %w", rt.BackendID, err)
			}
			persisted = append(persisted, rt.BackendID)
			continue
		}

		created, err := w.deps.Properties.AddRoomType(ctx, propertyID, rooms[i])
		if err != nil {
			return nil, fmt.Errorf("add room type %q: %w", rt.Name, err)
		}
		if created == nil || created.ID == "" {
			return nil, fmt.Errorf("add room type %q: backend returned no id", rt.Name)
		}
		w.recordRoomTypeID(i, rt.ID, created.ID)
		persisted = append(persisted, created.ID)
	}

	// deletions only once every upsert of this submission has resolved
	keep := make(map[string]bool, len(persisted))
	for _, id := range persisted {
		keep[id] = true
	}
	for _, id := range original {
		if keep[id] {
			continue
		}
		keep[id] = true
		if err := w.deps.Properties.DeleteRoomType(ctx, propertyID, id); err != nil {
			return nil, fmt.Errorf("delete room type %s: %w", id, err)
		}
		w.forgetRoomTypeID(id)
	}
	return persisted, nil
}

// recordRoomTypeID attaches a backend id to the room type with clientID as
// soon as it exists, so a retry updates instead of adding again.
func (w *Wizard) recordRoomTypeID(pos int, clientID, backendID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := -1
	if pos < len(w.roomTypes) && w.roomTypes[pos].ID == clientID {
		idx = pos
	} else {
		for i, rt := range w.roomTypes {
			if rt.ID == clientID {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		rt := w.roomTypes[idx]
		rt.BackendID = backendID
		w.roomTypes = replaced(w.roomTypes, idx, rt)
	}
	w.session.OriginalRoomTypeIDs = appended(w.session.OriginalRoomTypeIDs, backendID)
	w.persistLocked()
}

func (w *Wizard) forgetRoomTypeID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := w.session.OriginalRoomTypeIDs
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	w.session.OriginalRoomTypeIDs = out
}

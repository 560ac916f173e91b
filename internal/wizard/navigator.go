package wizard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ValidateStep checks the preconditions for leaving step
func (w *Wizard) ValidateStep(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if verr := w.validateLocked(w.schema.StepAt(step)); verr != nil {
		return verr
	}
	return nil
}

func (w *Wizard) validateLocked(step StepID) *ValidationError {
	d := w.draft
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch step {
	case StepBasics:
		if blank(d.PropertyName) {
			return invalid(step, "propertyName", "Enter the property name.")
		}
		if blank(d.ShortDescription) {
			return invalid(step, "shortDescription", "Enter a short description.")
		}
		if len(w.schema.CategoryOptions) > 0 && !w.schema.hasCategory(d.Category) {
			return invalid(step, "category", fmt.Sprintf("Choose a %s type.", w.schema.Kind))
		}

	case StepLocation:
		required := []struct{ field, value, label string }{
			{"address.country", d.Address.Country, "country"},
			{"address.state", d.Address.State, "state"},
			{"address.city", d.Address.City, "city"},
			{"address.fullAddress", d.Address.FullAddress, "full address"},
			{"address.pincode", d.Address.Pincode, "pincode"},
		}
		for _, r := range required {
			if blank(r.value) {
				return invalid(step, r.field, "Enter the "+r.label+".")
			}
		}
		if len(d.Location.Coordinates) != 2 || blank(d.Location.Coordinates[0]) || blank(d.Location.Coordinates[1]) {
			return invalid(step, "location.coordinates", "Pick the property location on the map.")
		}

	case StepNearby:
		if len(d.NearbyPlaces) == 0 {
			return invalid(step, "nearbyPlaces", "Add at least one nearby place.")
		}

	case StepImages:
		if blank(d.CoverImage) {
			return invalid(step, "coverImage", "Upload a cover image.")
		}
		if len(d.PropertyImages) < w.schema.MinGalleryImages {
			return invalid(step, "propertyImages",
				fmt.Sprintf("Upload at least %d gallery images.", w.schema.MinGalleryImages))
		}

	case StepRoomTypes:
		if len(w.roomTypes) == 0 {
			return invalid(step, "roomTypes", "Add at least one room type.")
		}
		for i, rt := range w.roomTypes {
			if verr := validateRoomType(w.schema, rt); verr != nil {
				verr.Field = fmt.Sprintf("roomTypes.%d.%s", i, verr.Field)
				return verr
			}
		}

	case StepRules:
		if blank(d.CheckInTime) {
			return invalid(step, "checkInTime", "Enter the check-in time.")
		}
		if blank(d.CheckOutTime) {
			return invalid(step, "checkOutTime", "Enter the check-out time.")
		}
		if w.schema.RequiresCancellationPolicy && blank(d.CancellationPolicy) {
			return invalid(step, "cancellationPolicy", "Choose a cancellation policy.")
		}
	}
	return nil
}

func (w *Wizard) navigableLocked() error {
	if err := w.mutableLocked(); err != nil {
		return err
	}
	if w.session.Editor.Active() {
		return ErrEditorActive
	}
	return nil
}

// Next validates the current step and advances. On the review step it submits.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.navigableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	current := w.session.Step
	if w.schema.StepAt(current) == StepReview {
		w.mu.Unlock()
		return w.Submit(ctx)
	}
	defer w.mu.Unlock()

	if verr := w.validateLocked(w.schema.StepAt(current)); verr != nil {
		w.session.Error = verr.Message
		return verr
	}
	if !w.machine.CanTransition(current, current+1) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidStep, current, current+1)
	}
	w.session.Step = current + 1
	w.session.Error = ""
	w.persistLocked()
	return nil
}

// Back returns to the previous step. On the first step it exits the wizard
// and reports exited.
func (w *Wizard) Back(ctx context.Context) (exited bool, err error) {
	w.mu.Lock()
	if err := w.navigableLocked(); err != nil {
		w.mu.Unlock()
		return false, err
	}
	if w.session.Step > 1 {
		w.session.Step--
		w.session.Error = ""
		w.persistLocked()
		w.mu.Unlock()
		return false, nil
	}
	w.mu.Unlock()

	if err := w.Exit(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// GoTo jumps back to an earlier step
func (w *Wizard) GoTo(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.navigableLocked(); err != nil {
		return err
	}
	current := w.session.Step
	if step >= current || !w.machine.CanTransition(current, step) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidStep, current, step)
	}
	w.session.Step = step
	w.session.Error = ""
	w.persistLocked()
	return nil
}

// ClearStep resets the fields owned by the current step
func (w *Wizard) ClearStep(confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.navigableLocked(); err != nil {
		return err
	}

	step := w.schema.StepAt(w.session.Step)
	fresh := newDraft(w.schema)
	d := w.draft
	switch step {
	case StepBasics:
		d.PropertyName, d.Description, d.ShortDescription = "", "", ""
		d.ContactNumber, d.Category = "", ""
	case StepLocation:
		d.Address = Address{}
		d.Location = fresh.Location
	case StepNearby:
		d.NearbyPlaces = fresh.NearbyPlaces
	case StepAmenities:
		d.Amenities = fresh.Amenities
		d.Activities = fresh.Activities
	case StepImages:
		d.CoverImage = ""
		d.PropertyImages = fresh.PropertyImages
	case StepRoomTypes:
		w.roomTypes = []RoomType{}
	case StepRules:
		d.CheckInTime, d.CheckOutTime, d.CancellationPolicy = "", "", ""
		d.HouseRules = fresh.HouseRules
	case StepDocuments:
		d.Documents = fresh.Documents
	default:
		return nil
	}
	w.draft = d
	w.session.Error = ""
	w.persistLocked()
	w.logger.Debug("Cleared step", zap.String("step", string(step)))
	return nil
}

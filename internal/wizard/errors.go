package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind          = errors.New("unknown property kind")
	ErrEditorActive         = errors.New("close the open editor first")
	ErrEditorBusy           = errors.New("another editor is already open")
	ErrEditorClosed         = errors.New("editor is not open")
	ErrCapacityReached      = errors.New("list is full")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrInvalidStep          = errors.New("step transition not allowed")
	ErrWizardComplete       = errors.New("wizard already completed")
	ErrWizardClosed         = errors.New("wizard was exited")
	ErrSubmitInProgress     = errors.New("submission in progress")
	ErrNoSearchResults      = errors.New("no search results")

	ErrUnknownSlot         = errors.New("unknown upload slot")
	ErrSlotBusy            = errors.New("upload already in progress for this slot")
	ErrRoomImagesFull      = errors.New("room type already has all its images")
	ErrUploadTargetChanged = errors.New("editor changed while the upload was running")
	ErrNoFiles             = errors.New("no files selected")
	ErrNotAnImage          = errors.New("file is not an image")
	ErrFileTooLarge        = errors.New("file exceeds the 10MB limit")
	ErrCaptureCancelled    = errors.New("camera capture cancelled")
	ErrNetwork             = errors.New("network error during upload")
	ErrUploadRejected      = errors.New("upload rejected by server")

	// ErrPayloadTooLarge is returned by collaborators when the transport
	// refused the request body size.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidationError is a recoverable field-level failure tied to a step
type ValidationError struct {
	Step    StepID `json:"step"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(step StepID, field, msg string) *ValidationError {
	return &ValidationError{Step: step, Field: field, Message: msg}
}

// classifyUploadError folds collaborator failures into the upload taxonomy
func classifyUploadError(err error) error {
	switch {
	case errors.Is(err, ErrNotAnImage), errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrCaptureCancelled), errors.Is(err, ErrNoFiles),
		errors.Is(err, ErrNetwork), errors.Is(err, ErrUploadRejected):
		return err
	case errors.Is(err, ErrPayloadTooLarge):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return fmt.Errorf("%w: %v", ErrUploadRejected, err)
}

// UserMessage renders an error as text suitable for the partner
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	switch {
	case errors.Is(err, ErrNotAnImage):
		return "Please select an image file."
	case errors.Is(err, ErrFileTooLarge):
		return "Each image must be 10MB or smaller."
	case errors.Is(err, ErrNetwork) && errors.Is(err, ErrPayloadTooLarge):
		return "Upload failed. The file may be too large."
	case errors.Is(err, ErrNetwork):
		return "Network error while uploading. Please try again."
	case errors.Is(err, ErrUploadRejected):
		return "Upload failed. Please try again."
	case errors.Is(err, ErrCaptureCancelled):
		return "No photo was captured."
	case errors.Is(err, ErrNoFiles):
		return "Please select at least one file."
	case errors.Is(err, ErrSlotBusy):
		return "An upload is already running here. Please wait."
	case errors.Is(err, ErrRoomImagesFull):
		return "This room type already has all its images."
	case errors.Is(err, ErrUploadTargetChanged):
		return "The room type changed during the upload. Please upload again."
	case errors.Is(err, ErrCapacityReached):
		return fmt.Sprintf("You can add at most %d nearby places.", MaxNearbyPlaces)
	case errors.Is(err, ErrEditorActive):
		return "Save or cancel the open item first."
	case errors.Is(err, ErrSubmitInProgress):
		return "Your property is being saved. Please wait."
	}
	return err.Error()
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Slot names an upload target. At most one upload per slot runs at a time.
type Slot string

const (
	SlotCover   Slot = "cover"
	SlotGallery Slot = "gallery"
	SlotRoom    Slot = "room"
)

const docSlotPrefix = "doc_"

// DocumentSlot returns the slot of the i-th document
func DocumentSlot(i int) Slot {
	return Slot(docSlotPrefix + strconv.Itoa(i))
}

// ParseSlot validates a slot name. For document slots it also returns the index.
func ParseSlot(s string) (Slot, int, error) {
	switch Slot(s) {
	case SlotCover, SlotGallery, SlotRoom:
		return Slot(s), -1, nil
	}
	if rest, ok := strings.CutPrefix(s, docSlotPrefix); ok {
		i, err := strconv.Atoi(rest)
		if err == nil && i >= 0 {
			return Slot(s), i, nil
		}
	}
	return "", -1, fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

// uploadTarget pins a room upload to the editor that was open when it started
type uploadTarget struct {
	editor     EditorState
	roomTypeID string
}

// Upload captures images from src and routes the resulting URLs into slot.
// A busy slot is rejected before any network call. Room images whose editor
// changed while the capture ran are discarded.
func (w *Wizard) Upload(ctx context.Context, slot Slot, src ImageSource) error {
	_, docIndex, err := ParseSlot(string(slot))
	if err != nil {
		return err
	}

	w.mu.Lock()
	if err := w.checkUploadLocked(slot, docIndex); err != nil {
		w.mu.Unlock()
		return err
	}
	w.busy[slot] = true
	target := uploadTarget{editor: w.session.Editor, roomTypeID: w.session.ScratchRoomType.ID}
	w.mu.Unlock()

	urls, captureErr := src.Capture(ctx, w.deps.Uploads)

	w.mu.Lock()
	delete(w.busy, slot)
	err = w.applyUploadLocked(slot, docIndex, target, urls, captureErr)
	w.mu.Unlock()

	if errors.Is(err, ErrUploadTargetChanged) {
		w.discardOrphans(ctx, urls)
	}
	return err
}

func (w *Wizard) applyUploadLocked(slot Slot, docIndex int, target uploadTarget, urls []string, captureErr error) error {
	if captureErr != nil {
		w.session.Error = UserMessage(captureErr)
		w.logger.Warn("Upload failed", zap.String("slot", string(slot)), zap.Error(captureErr))
		return captureErr
	}
	if w.exited {
		w.logger.Info("Discarding upload for exited wizard", zap.String("slot", string(slot)))
		return ErrWizardClosed
	}
	if err := w.routeLocked(slot, docIndex, target, urls); err != nil {
		w.logger.Warn("Upload could not be applied", zap.String("slot", string(slot)), zap.Error(err))
		return err
	}
	w.session.Error = ""
	w.persistLocked()
	w.logger.Debug("Upload applied", zap.String("slot", string(slot)), zap.Int("count", len(urls)))
	return nil
}

func (w *Wizard) discardOrphans(ctx context.Context, urls []string) {
	for _, url := range urls {
		if !w.ownsURL(url) {
			continue
		}
		if err := w.deps.Uploads.DeleteImage(ctx, url); err != nil {
			w.logger.Warn("Orphaned image delete failed", zap.String("url", url), zap.Error(err))
		}
	}
}

func (w *Wizard) checkUploadLocked(slot Slot, docIndex int) error {
	if err := w.mutableLocked(); err != nil {
		return err
	}
	if w.busy[slot] {
		return ErrSlotBusy
	}
	switch {
	case slot == SlotRoom:
		if w.session.Editor.Entity != EntityRoomType {
			return ErrEditorClosed
		}
		if len(w.session.ScratchRoomType.Images) >= w.schema.RoomImageCount {
			w.session.Error = UserMessage(ErrRoomImagesFull)
			return ErrRoomImagesFull
		}
	case docIndex >= 0:
		if docIndex >= len(w.draft.Documents) {
			return fmt.Errorf("%w: document %d", ErrIndexOutOfRange, docIndex)
		}
	}
	return nil
}

func (w *Wizard) routeLocked(slot Slot, docIndex int, target uploadTarget, urls []string) error {
	d := w.draft
	switch {
	case slot == SlotCover:
		d.CoverImage = urls[0]
	case slot == SlotGallery:
		d.PropertyImages = appended(d.PropertyImages, urls...)
	case slot == SlotRoom:
		if w.session.Editor != target.editor || w.session.ScratchRoomType.ID != target.roomTypeID {
			return ErrUploadTargetChanged
		}
		rt := w.session.ScratchRoomType
		room := w.schema.RoomImageCount - len(rt.Images)
		if room <= 0 {
			return ErrRoomImagesFull
		}
		if len(urls) > room {
			w.logger.Info("Dropping room images beyond the limit", zap.Int("dropped", len(urls)-room))
			urls = urls[:room]
		}
		rt.Images = appended(rt.Images, urls...)
		w.session.ScratchRoomType = rt
		return nil
	default:
		if docIndex < 0 || docIndex >= len(d.Documents) {
			return fmt.Errorf("%w: document %d", ErrIndexOutOfRange, docIndex)
		}
		doc := d.Documents[docIndex]
		doc.FileURL = urls[0]
		d.Documents = replaced(d.Documents, docIndex, doc)
	}
	w.draft = d
	return nil
}

// RemoveImage deletes an uploaded image from slot. The remote delete is best
// effort and only tried for URLs under the storage prefix.
func (w *Wizard) RemoveImage(ctx context.Context, slot Slot, index int) error {
	_, docIndex, err := ParseSlot(string(slot))
	if err != nil {
		return err
	}

	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	url, err := w.imageAtLocked(slot, docIndex, index)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if url == "" {
		return nil
	}

	if w.ownsURL(url) {
		if err := w.deps.Uploads.DeleteImage(ctx, url); err != nil {
			w.logger.Warn("Remote image delete failed", zap.String("url", url), zap.Error(err))
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeImageLocked(slot, docIndex, index, url)
	w.persistLocked()
	return nil
}

func (w *Wizard) ownsURL(url string) bool {
	prefix := w.deps.StorageURLPrefix
	return prefix != "" && strings.HasPrefix(url, prefix) && w.deps.Uploads != nil
}

func (w *Wizard) imageAtLocked(slot Slot, docIndex, index int) (string, error) {
	at := func(list []string) (string, error) {
		if index < 0 || index >= len(list) {
			return "", fmt.Errorf("%w: image %d", ErrIndexOutOfRange, index)
		}
		return list[index], nil
	}
	switch {
	case slot == SlotCover:
		return w.draft.CoverImage, nil
	case slot == SlotGallery:
		return at(w.draft.PropertyImages)
	case slot == SlotRoom:
		if w.session.Editor.Entity != EntityRoomType {
			return "", ErrEditorClosed
		}
		return at(w.session.ScratchRoomType.Images)
	}
	if docIndex >= len(w.draft.Documents) {
		return "", fmt.Errorf("%w: document %d", ErrIndexOutOfRange, docIndex)
	}
	return w.draft.Documents[docIndex].FileURL, nil
}

// removeImageLocked drops url from slot, tolerating reordering that happened
// while the remote delete ran.
func (w *Wizard) removeImageLocked(slot Slot, docIndex, index int, url string) {
	drop := func(list []string) []string {
		if index >= 0 && index < len(list) && list[index] == url {
			return without(list, index)
		}
		for i, u := range list {
			if u == url {
				return without(list, i)
			}
		}
		return list
	}

	d := w.draft
	switch {
	case slot == SlotCover:
		if d.CoverImage == url {
			d.CoverImage = ""
		}
	case slot == SlotGallery:
		d.PropertyImages = drop(d.PropertyImages)
	case slot == SlotRoom:
		if w.session.Editor.Entity == EntityRoomType {
			rt := w.session.ScratchRoomType
			rt.Images = drop(rt.Images)
			w.session.ScratchRoomType = rt
		}
		return
	default:
		if docIndex < len(d.Documents) && d.Documents[docIndex].FileURL == url {
			doc := d.Documents[docIndex]
			doc.FileURL = ""
			d.Documents = replaced(d.Documents, docIndex, doc)
		}
	}
	w.draft = d
}

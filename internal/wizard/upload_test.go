package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpload_SlotIsExclusive(t *testing.T) {
	ctx := context.Background()
	_, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	slow := newBlockingSource(cdn("g1.jpg"), cdn("g2.jpg"))
	done := make(chan error, 1)
	go func() { done <- w.Upload(ctx, SlotGallery, slow) }()
	<-slow.started

	second := &staticSource{urls: []string{cdn("g3.jpg")}}
	assert.ErrorIs(t, w.Upload(ctx, SlotGallery, second), ErrSlotBusy)
	assert.Equal(t, int32(0), second.calls.Load(), "busy slot must not start a capture")
	assert.Equal(t, []Slot{SlotGallery}, w.Snapshot().Uploading)

	// other slots are independent
	require.NoError(t, w.Upload(ctx, SlotCover, &staticSource{urls: []string{cdn("cover.jpg")}}))

	close(slow.release)
	require.NoError(t, <-done)

	snap := w.Snapshot()
	assert.Empty(t, snap.Uploading)
	assert.Equal(t, cdn("cover.jpg"), snap.Draft.CoverImage)
	assert.Equal(t, []string{cdn("g1.jpg"), cdn("g2.jpg")}, snap.Draft.PropertyImages)

	require.NoError(t, w.Upload(ctx, SlotGallery, second))
	assert.Len(t, w.Snapshot().Draft.PropertyImages, 3)
}

func TestUpload_RoomSlotRespectsImageCount(t *testing.T) {
	ctx := context.Background()
	_, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	src := &staticSource{urls: []string{cdn("r1.jpg")}}
	assert.ErrorIs(t, w.Upload(ctx, SlotRoom, src), ErrEditorClosed)

	require.NoError(t, w.StartAdd(EntityRoomType))
	require.NoError(t, w.Upload(ctx, SlotRoom, &staticSource{urls: []string{
		cdn("r1.jpg"), cdn("r2.jpg"), cdn("r3.jpg"), cdn("r4.jpg"), cdn("r5.jpg"),
	}}))

	snap := w.Snapshot()
	require.NotNil(t, snap.ScratchRoomType)
	assert.Equal(t, []string{cdn("r1.jpg"), cdn("r2.jpg"), cdn("r3.jpg")}, snap.ScratchRoomType.Images)
	assert.Empty(t, snap.Draft.PropertyImages)

	src = &staticSource{urls: []string{cdn("r6.jpg")}}
	assert.ErrorIs(t, w.Upload(ctx, SlotRoom, src), ErrRoomImagesFull)
	assert.Equal(t, int32(0), src.calls.Load())
	assert.Equal(t, "This room type already has all its images.", w.Snapshot().Error)
}

func TestUpload_DocumentSlots(t *testing.T) {
	ctx := context.Background()
	_, deps := newTestDeps()
	w, err := New(ctx, KindVilla, deps, nil)
	require.NoError(t, err)

	require.NoError(t, w.Upload(ctx, DocumentSlot(1), &staticSource{urls: []string{cdn("noc.jpg")}}))
	docs := w.Snapshot().Draft.Documents
	require.Len(t, docs, 3)
	assert.Empty(t, docs[0].FileURL)
	assert.Equal(t, cdn("noc.jpg"), docs[1].FileURL)
	assert.Equal(t, "society_noc", docs[1].Type)

	assert.ErrorIs(t, w.Upload(ctx, DocumentSlot(3), &staticSource{urls: []string{cdn("x.jpg")}}), ErrIndexOutOfRange)
	assert.ErrorIs(t, w.Upload(ctx, Slot("logo"), &staticSource{}), ErrUnknownSlot)
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in    string
		slot  Slot
		index int
		err   error
	}{
		{"cover", SlotCover, -1, nil},
		{"gallery", SlotGallery, -1, nil},
		{"room", SlotRoom, -1, nil},
		{"doc_2", Slot("doc_2"), 2, nil},
		{"doc_", "", -1, ErrUnknownSlot},
		{"doc_-1", "", -1, ErrUnknownSlot},
		{"banner", "", -1, ErrUnknownSlot},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			slot, index, err := ParseSlot(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.slot, slot)
			assert.Equal(t, tt.index, index)
		})
	}
}

func TestUpload_DiscardedAfterExit(t *testing.T) {
	ctx := context.Background()
	_, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	slow := newBlockingSource(cdn("cover.jpg"))
	done := make(chan error, 1)
	go func() { done <- w.Upload(ctx, SlotCover, slow) }()
	<-slow.started

	require.NoError(t, w.Exit(ctx))
	close(slow.release)

	assert.ErrorIs(t, <-done, ErrWizardClosed)
	assert.Empty(t, w.Snapshot().Draft.CoverImage)
}

func TestRemoveImage_DeletesOnlyOwnedURLs(t *testing.T) {
	ctx := context.Background()
	td, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	foreign := "https://images.example.com/legacy.jpg"
	require.NoError(t, w.Set("propertyImages", []string{cdn("g1.jpg"), foreign, cdn("g2.jpg")}))

	td.uploads.On("DeleteImage", mock.Anything, cdn("g1.jpg")).Return(nil).Once()
	td.uploads.On("DeleteImage", mock.Anything, cdn("g2.jpg")).Return(errors.New("access denied")).Once()

	require.NoError(t, w.RemoveImage(ctx, SlotGallery, 0))
	require.NoError(t, w.RemoveImage(ctx, SlotGallery, 0))
	assert.Equal(t, []string{cdn("g2.jpg")}, w.Snapshot().Draft.PropertyImages)

	// a failed remote delete still removes the image from the draft
	require.NoError(t, w.RemoveImage(ctx, SlotGallery, 0))
	assert.Empty(t, w.Snapshot().Draft.PropertyImages)

	assert.ErrorIs(t, w.RemoveImage(ctx, SlotGallery, 0), ErrIndexOutOfRange)
	td.uploads.AssertExpectations(t)
	td.uploads.AssertNotCalled(t, "DeleteImage", mock.Anything, foreign)
}

func TestRemoveImage_Cover(t *testing.T) {
	ctx := context.Background()
	td, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	require.NoError(t, w.RemoveImage(ctx, SlotCover, 0), "empty cover is a no-op")

	require.NoError(t, w.Set("coverImage", cdn("cover.jpg")))
	td.uploads.On("DeleteImage", mock.Anything, cdn("cover.jpg")).Return(nil).Once()
	require.NoError(t, w.RemoveImage(ctx, SlotCover, 0))
	assert.Empty(t, w.Snapshot().Draft.CoverImage)
	td.uploads.AssertExpectations(t)
}

func TestFilePickerSource_Errors(t *testing.T) {
	ctx := context.Background()
	jpeg := File{Name: "a.jpg", ContentType: "image/jpeg", Size: 1024}

	tests := []struct {
		name    string
		files   []File
		upload  error
		want    error
		message string
	}{
		{"no files", nil, nil, ErrNoFiles, "Please select at least one file."},
		{"not an image", []File{{Name: "a.pdf", ContentType: "application/pdf", Size: 10}}, nil, ErrNotAnImage, "Please select an image file."},
		{"too large", []File{{Name: "big.jpg", ContentType: "image/jpeg", Size: MaxImageBytes + 1}}, nil, ErrFileTooLarge, "Each image must be 10MB or smaller."},
		{"payload refused", []File{jpeg}, ErrPayloadTooLarge, ErrNetwork, "Upload failed. The file may be too large."},
		{"network", []File{jpeg}, ErrNetwork, ErrNetwork, "Network error while uploading. Please try again."},
		{"server rejected", []File{jpeg}, errors.New("500 internal"), ErrUploadRejected, "Upload failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := new(MockUploadService)
			if tt.upload != nil {
				uploads.On("UploadImages", mock.Anything, tt.files).Return(nil, tt.upload)
			}
			_, err := (&FilePickerSource{Files: tt.files}).Capture(ctx, uploads)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, UserMessage(err))
			uploads.AssertExpectations(t)
		})
	}
}

func TestUpload_FailureKeepsDraftAndReportsMessage(t *testing.T) {
	ctx := context.Background()
	td, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)
	require.NoError(t, w.Set("coverImage", cdn("old.jpg")))

	files := []File{{Name: "new.jpg", ContentType: "image/jpeg", Size: 2048}}
	td.uploads.On("UploadImages", mock.Anything, files).Return(nil, ErrNetwork).Once()

	err = w.Upload(ctx, SlotCover, &FilePickerSource{Files: files})
	assert.ErrorIs(t, err, ErrNetwork)

	snap := w.Snapshot()
	assert.Equal(t, cdn("old.jpg"), snap.Draft.CoverImage)
	assert.Empty(t, snap.Uploading)
	assert.Equal(t, "Network error while uploading. Please try again.", snap.Error)

	td.uploads.On("UploadImages", mock.Anything, files).Return([]string{cdn("new.jpg")}, nil).Once()
	require.NoError(t, w.Upload(ctx, SlotCover, &FilePickerSource{Files: files}))
	assert.Equal(t, cdn("new.jpg"), w.Snapshot().Draft.CoverImage)
	assert.Empty(t, w.Snapshot().Error)
}

func TestNativeCameraSource(t *testing.T) {
	ctx := context.Background()

	var bridge CameraBridge = CameraFunc(func(ctx context.Context) (*CameraCapture, error) {
		return &CameraCapture{Success: true, Base64: "aGVsbG8=", FileName: "shot.jpg"}, nil
	})
	src := SelectImageSource(Capabilities{NativeShell: true}, bridge, nil)
	require.IsType(t, &NativeCameraSource{}, src)

	uploads := new(MockUploadService)
	uploads.On("UploadImagesBase64", mock.Anything, []Base64Image{{
		Base64: "aGVsbG8=", MimeType: "image/jpeg", FileName: "shot.jpg",
	}}).Return([]UploadedFile{{URL: cdn("shot.jpg"), PublicID: "shot"}}, nil).Once()

	urls, err := src.Capture(ctx, uploads)
	require.NoError(t, err)
	assert.Equal(t, []string{cdn("shot.jpg")}, urls)
	uploads.AssertExpectations(t)

	cancelled := CameraFunc(func(ctx context.Context) (*CameraCapture, error) {
		return &CameraCapture{Success: false}, nil
	})
	_, err = (&NativeCameraSource{Bridge: cancelled}).Capture(ctx, uploads)
	assert.ErrorIs(t, err, ErrCaptureCancelled)

	assert.IsType(t, &FilePickerSource{}, SelectImageSource(Capabilities{}, bridge, nil))
	assert.IsType(t, &FilePickerSource{}, SelectImageSource(Capabilities{NativeShell: true}, nil, nil))
}

func TestUpload_RoomImagesStayWithTheirRoomType(t *testing.T) {
	ctx := context.Background()
	td, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)
	addRoomType(t, w, "A", "900")

	require.NoError(t, w.StartAdd(EntityRoomType))
	slow := newBlockingSource(cdn("meant-for-new.jpg"))
	done := make(chan error, 1)
	go func() { done <- w.Upload(ctx, SlotRoom, slow) }()
	<-slow.started

	require.NoError(t, w.Cancel(EntityRoomType))
	require.NoError(t, w.StartEdit(EntityRoomType, 0))
	td.uploads.On("DeleteImage", mock.Anything, cdn("A-a.jpg")).Return(nil).Once()
	require.NoError(t, w.RemoveImage(ctx, SlotRoom, 0))

	td.uploads.On("DeleteImage", mock.Anything, cdn("meant-for-new.jpg")).Return(nil).Once()
	close(slow.release)
	err = <-done
	assert.ErrorIs(t, err, ErrUploadTargetChanged)
	assert.Equal(t, "The room type changed during the upload. Please upload again.", UserMessage(err))

	snap := w.Snapshot()
	require.NotNil(t, snap.ScratchRoomType)
	assert.Equal(t, []string{cdn("A-b.jpg"), cdn("A-c.jpg")}, snap.ScratchRoomType.Images)
	assert.Empty(t, snap.Uploading)
	assert.Equal(t, []string{cdn("A-a.jpg"), cdn("A-b.jpg"), cdn("A-c.jpg")}, snap.RoomTypes[0].Images)
	td.uploads.AssertExpectations(t)
}

func TestUpload_RoomImagesDroppedWhenNewRoomTypeRestarted(t *testing.T) {
	ctx := context.Background()
	td, deps := newTestDeps()
	w, err := New(ctx, KindHostel, deps, nil)
	require.NoError(t, err)

	require.NoError(t, w.StartAdd(EntityRoomType))
	slow := newBlockingSource(cdn("r1.jpg"))
	done := make(chan error, 1)
	go func() { done <- w.Upload(ctx, SlotRoom, slow) }()
	<-slow.started

	// same editor position, different room type
	require.NoError(t, w.Cancel(EntityRoomType))
	require.NoError(t, w.StartAdd(EntityRoomType))

	td.uploads.On("DeleteImage", mock.Anything, cdn("r1.jpg")).Return(errors.New("timeout")).Once()
	close(slow.release)
	assert.ErrorIs(t, <-done, ErrUploadTargetChanged)

	snap := w.Snapshot()
	require.NotNil(t, snap.ScratchRoomType)
	assert.Empty(t, snap.ScratchRoomType.Images)
	td.uploads.AssertExpectations(t)
}

func TestFilePickerSource_PartialFailureDeletesStoredFiles(t *testing.T) {
	ctx := context.Background()
	files := []File{
		{Name: "a.jpg", ContentType: "image/jpeg", Size: 1024},
		{Name: "b.jpg", ContentType: "image/jpeg", Size: 2048},
	}
	uploads := new(MockUploadService)
	uploads.On("UploadImages", mock.Anything, files).Return([]string{cdn("a.jpg")}, ErrNetwork).Once()
	uploads.On("DeleteImage", mock.Anything, cdn("a.jpg")).Return(nil).Once()

	urls, err := (&FilePickerSource{Files: files}).Capture(ctx, uploads)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, urls)
	uploads.AssertExpectations(t)
}

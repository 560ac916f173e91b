package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/auth"
	"homezoo/partner-portal/onboarding-service/internal/drafts"
	"homezoo/partner-portal/onboarding-service/internal/wizard"
)

// MockUploads is a mock implementation of Uploads
type MockUploads struct {
	mock.Mock
}

func (m *MockUploads) UploadImages(ctx context.Context, files []wizard.File) ([]string, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUploads) UploadImagesBase64(ctx context.Context, images []wizard.Base64Image) ([]wizard.UploadedFile, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wizard.UploadedFile), args.Error(1)
}

func (m *MockUploads) DeleteImage(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockUploads) URLPrefix() string {
	return "https://cdn.homezoo.test/"
}

type testServer struct {
	router  *gin.Engine
	uploads *MockUploads
	store   *drafts.MemoryStore
	service *Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploads := new(MockUploads)
	store := drafts.NewMemoryStore()
	registry := NewRegistry(time.Hour, zap.NewNop())
	service := NewService(registry, Dependencies{
		UploadsFor: func(string) Uploads { return uploads },
		Drafts:     store,
		DraftDelay: time.Hour,
	}, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.PartnerIDKey, c.GetHeader("X-Test-Partner"))
		c.Next()
	})
	NewHandler(service, 32<<20, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))

	return &testServer{router: r, uploads: uploads, store: store, service: service}
}

func (s *testServer) do(t *testing.T, method, path, partner string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Partner", partner)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (s *testServer) start(t *testing.T, partner string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/v1/wizards/hostel/sessions", partner, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}

func TestHandler_StartResumesLiveAddSession(t *testing.T) {
	s := newTestServer(t)
	first := s.start(t, "partner-1")
	second := s.start(t, "partner-1")
	other := s.start(t, "partner-2")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/wizards/castle/sessions", "partner-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StepGatingAndFieldUpdates(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")
	base := "/api/v1/sessions/" + id

	rec, body := s.do(t, http.MethodPost, base+"/next", "partner-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "propertyName", body["field"])
	snap := body["snapshot"].(map[string]any)
	assert.Equal(t, float64(1), snap["step"])

	for _, f := range []FieldRequest{
		{Path: "propertyName", Value: "Backpackers Den"},
		{Path: "shortDescription", Value: "Rooftop hostel"},
	} {
		rec, _ = s.do(t, http.MethodPatch, base+"/draft", "partner-1", f)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, _ = s.do(t, http.MethodPatch, base+"/draft", "partner-1", FieldRequest{Path: "address.galaxy", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, base+"/next", "partner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["step"])

	rec, body = s.do(t, http.MethodPost, base+"/draft/toggle", "partner-1", ToggleRequest{Path: "amenities", Value: "wifi"})
	require.Equal(t, http.StatusOK, rec.Code)
	draft := body["draft"].(map[string]any)
	assert.Equal(t, []any{"wifi"}, draft["amenities"])
}

func TestHandler_NearbyEditorIsModal(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")
	base := "/api/v1/sessions/" + id

	rec, body := s.do(t, http.MethodPost, base+"/nearby", "partner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	editor := body["editor"].(map[string]any)
	assert.Equal(t, "nearby", editor["entity"])
	assert.Equal(t, float64(wizard.NewIndex), editor["index"])

	rec, _ = s.do(t, http.MethodPost, base+"/room-types", "partner-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = s.do(t, http.MethodPost, base+"/back", "partner-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = s.do(t, http.MethodPost, base+"/nearby/save", "partner-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "name", body["field"])

	s.do(t, http.MethodPatch, base+"/nearby/scratch", "partner-1", FieldRequest{Path: "name", Value: "Baga Beach"})
	s.do(t, http.MethodPatch, base+"/nearby/scratch", "partner-1", FieldRequest{Path: "distanceKm", Value: "0.4"})
	rec, body = s.do(t, http.MethodPost, base+"/nearby/save", "partner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	draft := body["draft"].(map[string]any)
	places := draft["nearbyPlaces"].([]any)
	require.Len(t, places, 1)
	assert.Equal(t, "Baga Beach", places[0].(map[string]any)["name"])

	rec, body = s.do(t, http.MethodDelete, base+"/nearby/0", "partner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["draft"].(map[string]any)["nearbyPlaces"])
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, contentType := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandler_BrowserUploadToGallery(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")

	s.uploads.On("UploadImages", mock.Anything, mock.MatchedBy(func(files []wizard.File) bool {
		return len(files) == 1 && files[0].Name == "lobby.jpg" && files[0].ContentType == "image/jpeg"
	})).Return([]string{"https://cdn.homezoo.test/lobby.jpg"}, nil).Once()

	body, contentType := multipartBody(t, map[string]string{"lobby.jpg": "image/jpeg"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/uploads/gallery", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Test-Partner", "partner-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap wizard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, []string{"https://cdn.homezoo.test/lobby.jpg"}, snap.Draft.PropertyImages)
	s.uploads.AssertExpectations(t)
}

func TestHandler_BrowserUploadRejectsNonImage(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")

	body, contentType := multipartBody(t, map[string]string{"menu.pdf": "application/pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/uploads/cover", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Test-Partner", "partner-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please select an image file.")
	s.uploads.AssertNotCalled(t, "UploadImages", mock.Anything, mock.Anything)
}

func TestHandler_NativeUploadToCover(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")

	s.uploads.On("UploadImagesBase64", mock.Anything, []wizard.Base64Image{{
		Base64: "aGVsbG8=", MimeType: "image/jpeg", FileName: "shot.jpg",
	}}).Return([]wizard.UploadedFile{{URL: "https://cdn.homezoo.test/shot.jpg", PublicID: "shot"}}, nil).Once()

	buf, _ := json.Marshal(wizard.CameraCapture{Success: true, Base64: "aGVsbG8=", MimeType: "image/jpeg", FileName: "shot.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/uploads/cover", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(NativeShellHeader, "1")
	req.Header.Set("X-Test-Partner", "partner-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap wizard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "https://cdn.homezoo.test/shot.jpg", snap.Draft.CoverImage)
}

func TestHandler_SessionsAreOwned(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/sessions/"+id, "partner-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/sessions/missing", "partner-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ExitClearsDraft(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")
	base := "/api/v1/sessions/" + id

	s.do(t, http.MethodPatch, base+"/draft", "partner-1", FieldRequest{Path: "propertyName", Value: "Den"})
	w, err := s.service.Get("partner-1", id)
	require.NoError(t, err)
	require.NoError(t, w.FlushDraft(context.Background()))
	require.Equal(t, 1, s.store.Len())

	rec, _ := s.do(t, http.MethodDelete, base, "partner-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.store.Len())

	rec, _ = s.do(t, http.MethodGet, base, "partner-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ClearStepNeedsConfirmation(t *testing.T) {
	s := newTestServer(t)
	id := s.start(t, "partner-1")
	base := "/api/v1/sessions/" + id

	s.do(t, http.MethodPatch, base+"/draft", "partner-1", FieldRequest{Path: "propertyName", Value: "Den"})

	rec, _ := s.do(t, http.MethodPost, base+"/clear-step", "partner-1", ClearStepRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.do(t, http.MethodPost, base+"/clear-step", "partner-1", ClearStepRequest{Confirm: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", body["draft"].(map[string]any)["propertyName"])
}

package onboarding

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/auth"
	"homezoo/partner-portal/onboarding-service/internal/backend"
	"homezoo/partner-portal/onboarding-service/internal/wizard"
	"homezoo/partner-portal/onboarding-service/pkg/formpath"
)

// NativeShellHeader marks requests coming from the embedded native app shell
const NativeShellHeader = "X-Native-Shell"

// Handler handles HTTP requests for onboarding wizards
type Handler struct {
	service        *Service
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler creates a new onboarding handler
func NewHandler(service *Service, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers onboarding routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/wizards/:kind/sessions", h.startSession)

	sessions := router.Group("/sessions/:id")
	{
		sessions.GET("", h.getSession)
		sessions.DELETE("", h.exitSession)

		// Form mutation
		sessions.PATCH("/draft", h.setField)
		sessions.POST("/draft/toggle", h.toggleField)
		sessions.POST("/location/reverse", h.reverseGeocode)

		// Navigation
		sessions.POST("/next", h.next)
		sessions.POST("/back", h.back)
		sessions.POST("/goto", h.goTo)
		sessions.POST("/clear-step", h.clearStep)
		sessions.POST("/submit", h.submit)

		// Inline editors
		h.registerEditor(sessions, wizard.EntityNearby)
		h.registerEditor(sessions, wizard.EntityRoomType)
		sessions.POST("/nearby/search", h.searchNearby)
		sessions.POST("/nearby/search/:index/select", h.selectNearby)

		// Uploads
		sessions.POST("/uploads/:slot", h.upload)
		sessions.DELETE("/uploads/:slot/:index", h.removeImage)
	}
}

func (h *Handler) registerEditor(r *gin.RouterGroup, e wizard.Entity) {
	g := r.Group("/" + string(e))
	g.POST("", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		return w.StartAdd(e)
	}))
	g.POST("/:index/edit", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		i, err := indexParam(c)
		if err != nil {
			return err
		}
		return w.StartEdit(e, i)
	}))
	g.DELETE("/:index", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		i, err := indexParam(c)
		if err != nil {
			return err
		}
		return w.Delete(e, i)
	}))
	g.PATCH("/scratch", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req FieldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.SetScratch(e, req.Path, req.Value)
	}))
	g.POST("/scratch/toggle", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req ToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.ToggleScratch(e, req.Path, req.Value)
	}))
	g.POST("/save", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		return w.Save(e)
	}))
	g.POST("/cancel", h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		return w.Cancel(e)
	}))
}

// StartRequest opens a wizard; PropertyID selects the edit flow
type StartRequest struct {
	PropertyID string `json:"propertyId"`
}

// FieldRequest replaces the value at a dotted path
type FieldRequest struct {
	Path  string `json:"path" binding:"required"`
	Value any    `json:"value"`
}

// ToggleRequest flips membership of a value in a string set
type ToggleRequest struct {
	Path  string `json:"path" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type ClearStepRequest struct {
	Confirm bool `json:"confirm"`
}

type GoToRequest struct {
	Step int `json:"step" binding:"required"`
}

type ReverseGeocodeRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

// requestContext carries the partner's token to the backend
func requestContext(c *gin.Context) context.Context {
	token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	return backend.WithToken(c.Request.Context(), token)
}

// startSession handles POST /api/v1/wizards/:kind/sessions
func (h *Handler) startSession(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	kind := wizard.PropertyKind(c.Param("kind"))
	w, err := h.service.Start(requestContext(c), auth.PartnerID(c), kind, req.PropertyID)
	if err != nil {
		h.logger.Error("Failed to start wizard", zap.String("kind", string(kind)), zap.Error(err))
		h.fail(c, nil, err)
		return
	}
	c.JSON(http.StatusCreated, w.Snapshot())
}

// getSession handles GET /api/v1/sessions/:id
func (h *Handler) getSession(c *gin.Context) {
	w, err := h.service.Get(auth.PartnerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, w.Snapshot())
}

// exitSession handles DELETE /api/v1/sessions/:id
func (h *Handler) exitSession(c *gin.Context) {
	if err := h.service.Exit(c.Request.Context(), auth.PartnerID(c), c.Param("id")); err != nil {
		h.fail(c, nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setField(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req FieldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.Set(req.Path, req.Value)
	})(c)
}

func (h *Handler) toggleField(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req ToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.Toggle(req.Path, req.Value)
	})(c)
}

func (h *Handler) reverseGeocode(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req ReverseGeocodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.ReverseGeocode(requestContext(c), req.Lat, req.Lng)
	})(c)
}

func (h *Handler) next(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		return w.Next(requestContext(c))
	})(c)
}

func (h *Handler) back(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		exited, err := w.Back(c.Request.Context())
		if exited {
			h.service.registry.remove(w.ID())
		}
		return err
	})(c)
}

func (h *Handler) goTo(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req GoToRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.GoTo(req.Step)
	})(c)
}

func (h *Handler) clearStep(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req ClearStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		return w.ClearStep(req.Confirm)
	})(c)
}

func (h *Handler) submit(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		return w.Submit(requestContext(c))
	})(c)
}

func (h *Handler) searchNearby(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return badRequest(err)
		}
		_, err := w.SearchNearby(requestContext(c), req.Query)
		return err
	})(c)
}

func (h *Handler) selectNearby(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		i, err := indexParam(c)
		if err != nil {
			return err
		}
		return w.SelectNearbyResult(requestContext(c), i)
	})(c)
}

// upload handles POST /api/v1/sessions/:id/uploads/:slot. Native shells post
// the captured photo as JSON, browsers post multipart "files".
func (h *Handler) upload(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		slot, _, err := wizard.ParseSlot(c.Param("slot"))
		if err != nil {
			return err
		}

		caps := wizard.Capabilities{NativeShell: c.GetHeader(NativeShellHeader) == "1"}
		var bridge wizard.CameraBridge
		var files []wizard.File
		if caps.NativeShell {
			var shot wizard.CameraCapture
			if err := c.ShouldBindJSON(&shot); err != nil {
				return badRequest(err)
			}
			bridge = wizard.CameraFunc(func(context.Context) (*wizard.CameraCapture, error) {
				return &shot, nil
			})
		} else {
			files, err = h.readFiles(c)
			if err != nil {
				return err
			}
		}

		src := wizard.SelectImageSource(caps, bridge, files)
		return w.Upload(requestContext(c), slot, src)
	})(c)
}

func (h *Handler) readFiles(c *gin.Context) ([]wizard.File, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.Join(wizard.ErrNetwork, wizard.ErrPayloadTooLarge)
		}
		return nil, badRequest(err)
	}

	headers := form.File["files"]
	files := make([]wizard.File, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			return nil, badRequest(err)
		}
		data, err := io.ReadAll(io.LimitReader(f, wizard.MaxImageBytes+1))
		f.Close()
		if err != nil {
			return nil, badRequest(err)
		}

		contentType := hdr.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, wizard.File{
			Name:        hdr.Filename,
			ContentType: contentType,
			Size:        hdr.Size,
			Data:        data,
		})
	}
	return files, nil
}

func (h *Handler) removeImage(c *gin.Context) {
	h.withWizard(func(c *gin.Context, w *wizard.Wizard) error {
		slot, _, err := wizard.ParseSlot(c.Param("slot"))
		if err != nil {
			return err
		}
		i, err := indexParam(c)
		if err != nil {
			return err
		}
		return w.RemoveImage(requestContext(c), slot, i)
	})(c)
}

// withWizard resolves the session, runs fn and answers with the snapshot
func (h *Handler) withWizard(fn func(c *gin.Context, w *wizard.Wizard) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := h.service.Get(auth.PartnerID(c), c.Param("id"))
		if err != nil {
			h.fail(c, nil, err)
			return
		}
		if err := fn(c, w); err != nil {
			h.fail(c, w, err)
			return
		}
		c.JSON(http.StatusOK, w.Snapshot())
	}
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

func indexParam(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, badRequest(errors.New("index must be an integer"))
	}
	return i, nil
}

func (h *Handler) fail(c *gin.Context, w *wizard.Wizard, err error) {
	status := statusFor(err)
	body := gin.H{"error": wizard.UserMessage(err)}

	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
		body["step"] = verr.Step
	}
	if w != nil {
		body["snapshot"] = w.Snapshot()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Onboarding request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	var verr *wizard.ValidationError
	var reqErr *requestError
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, wizard.ErrFileTooLarge), errors.Is(err, wizard.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, wizard.ErrSlotBusy), errors.Is(err, wizard.ErrSubmitInProgress),
		errors.Is(err, wizard.ErrEditorActive), errors.Is(err, wizard.ErrEditorBusy),
		errors.Is(err, wizard.ErrEditorClosed), errors.Is(err, wizard.ErrInvalidStep),
		errors.Is(err, wizard.ErrWizardComplete), errors.Is(err, wizard.ErrWizardClosed),
		errors.Is(err, wizard.ErrCapacityReached), errors.Is(err, wizard.ErrRoomImagesFull),
		errors.Is(err, wizard.ErrUploadTargetChanged):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrUnknownKind), errors.Is(err, wizard.ErrUnknownSlot),
		errors.Is(err, wizard.ErrIndexOutOfRange), errors.Is(err, wizard.ErrConfirmationRequired),
		errors.Is(err, wizard.ErrNoSearchResults), errors.Is(err, wizard.ErrNoFiles),
		errors.Is(err, wizard.ErrNotAnImage), errors.Is(err, wizard.ErrCaptureCancelled),
		errors.Is(err, formpath.ErrPathNotFound), errors.Is(err, formpath.ErrTypeMismatch),
		errors.Is(err, formpath.ErrEmptyPath):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, wizard.ErrNetwork), errors.Is(err, wizard.ErrUploadRejected):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

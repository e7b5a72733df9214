// Package wopi serves the WOPI file endpoints: GetFileMetaData,
// GetFileContents and PutFileContents. Each request maps onto exactly one
// blob operation against the templates container.
package wopi

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/blobclient"
	"github.com/yourorg/ctk-wopi/pkg/config"
	"github.com/yourorg/ctk-wopi/pkg/errors"
	"github.com/yourorg/ctk-wopi/pkg/events"
	"github.com/yourorg/ctk-wopi/pkg/httpservice"
	"github.com/yourorg/ctk-wopi/pkg/logging"
	"github.com/yourorg/ctk-wopi/pkg/middleware"
)

const (
	// Container holds every file served by the bridge.
	Container = "templates"

	// OwnerID and UserID are reported for every file.
	OwnerID = 1000
	UserID  = 1000

	// SizeMetadataKey is the blob metadata entry read as the file size.
	SizeMetadataKey = "size"

	contentTypeOctetStream = "application/octet-stream"
)

// FileMetadata is the CheckFileInfo body. Field order is part of the wire format.
type FileMetadata struct {
	BaseFileName string `json:"BaseFileName"`
	OwnerId      int    `json:"OwnerId"`
	UserId       int    `json:"UserId"`
	Size         int    `json:"Size"`
	UserCanWrite bool   `json:"UserCanWrite"`
}

// Route describes one WOPI endpoint and the access level it demands.
type Route struct {
	Name      string
	Method    string
	Path      string
	AuthLevel middleware.AuthLevel

	handle httpservice.HandlerFunc
}

// Handler serves the WOPI routes.
type Handler struct {
	blobs     blobclient.BlobClient
	publisher events.Publisher
	settings  *config.Settings
	keys      *middleware.AccessKeys
	logger    logging.Logger
}

// NewHandler builds the WOPI handler. A nil publisher drops file events.
func NewHandler(blobs blobclient.BlobClient, publisher events.Publisher, settings *config.Settings, logger logging.Logger) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		blobs:     blobs,
		publisher: publisher,
		settings:  settings,
		keys:      middleware.NewAccessKeys(secretValues(settings.FunctionKeys), secretValues(settings.AdminKeys)),
		logger:    logger,
	}
}

func secretValues(secrets []config.Secret) []string {
	out := make([]string, 0, len(secrets))
	for _, s := range secrets {
		out = append(out, s.Value())
	}
	return out
}

// Routes returns the route table. Register mounts exactly these routes.
func (h *Handler) Routes() []Route {
	return []Route{
		{Name: "Health", Method: http.MethodGet, Path: "/health", AuthLevel: middleware.AuthLevelFunction, handle: httpservice.Health},
		{Name: "GetFileMetaData", Method: http.MethodGet, Path: "/wopi/files/:name", AuthLevel: middleware.AuthLevelFunction, handle: h.getFileMetaData},
		{Name: "GetFileContents", Method: http.MethodGet, Path: "/wopi/files/:name/contents", AuthLevel: middleware.AuthLevelFunction, handle: h.getFileContents},
		{Name: "PutFileContents", Method: http.MethodPut, Path: "/wopi/files/:name/contents", AuthLevel: middleware.AuthLevelFunction, handle: h.putFileContents},
	}
}

// Register implements httpservice.Handler.
func (h *Handler) Register(router *gin.Engine) {
	for _, r := range h.Routes() {
		router.Handle(r.Method, r.Path,
			middleware.RequireAccess(r.AuthLevel, h.keys, h.logger),
			httpservice.Wrap(r.Name, r.handle),
		)
	}
}

func (h *Handler) fileName(c *gin.Context) (string, error) {
	name := c.Param("name")
	if strings.TrimSpace(name) == "" {
		return "", errors.NewBadRequestError("file name is required")
	}
	if h.settings.EnforceFileExtensions && !h.settings.IsAllowedExtension(name) {
		return "", errors.NewValidationError(fmt.Sprintf("file extension not allowed: %s", name))
	}
	return name, nil
}

func (h *Handler) getFileMetaData(c *gin.Context) error {
	name, err := h.fileName(c)
	if err != nil {
		return err
	}

	metadata, err := h.blobs.ReadBlobMetadata(c.Request.Context(), Container, name)
	if err != nil {
		return storageError(err, name)
	}

	c.JSON(http.StatusOK, FileMetadata{
		BaseFileName: name,
		OwnerId:      OwnerID,
		UserId:       UserID,
		Size:         h.sizeFromMetadata(c, name, metadata),
		UserCanWrite: true,
	})
	return nil
}

// sizeFromMetadata reads the size metadata entry. This is what was stored
// alongside the blob, not its byte length; absent or malformed values give 0.
// An exact "size" key wins over other casings.
func (h *Handler) sizeFromMetadata(c *gin.Context, name string, metadata map[string]string) int {
	raw, ok := lookupFold(metadata, SizeMetadataKey)
	if !ok {
		return 0
	}
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size < 0 {
		httpservice.GetLogger(c).Warn("Ignoring malformed size metadata",
			logging.NewField("file", name),
			logging.NewField("value", raw),
		)
		return 0
	}
	return size
}

// lookupFold returns metadata[key], else the value of the case-insensitive
// match that sorts first, so the result never depends on map order.
func lookupFold(metadata map[string]string, key string) (string, bool) {
	if v, ok := metadata[key]; ok {
		return v, true
	}
	match, found := "", false
	for k := range metadata {
		if strings.EqualFold(k, key) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return "", false
	}
	return metadata[match], true
}

func (h *Handler) getFileContents(c *gin.Context) error {
	name, err := h.fileName(c)
	if err != nil {
		return err
	}

	data, err := h.blobs.ReadBlob(c.Request.Context(), Container, name)
	if err != nil {
		return storageError(err, name)
	}

	c.Data(http.StatusOK, contentTypeOctetStream, data)
	return nil
}

func (h *Handler) putFileContents(c *gin.Context) error {
	name, err := h.fileName(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewAppError(errors.ErrorCodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge).WithErr(err)
		}
		return errors.NewBadRequestError("failed to read request body").WithErr(err)
	}

	ctx := c.Request.Context()
	if err := h.blobs.UpdateBlob(ctx, Container, name, body); err != nil {
		return storageError(err, name)
	}

	event := events.FileUpdated{
		Container: Container,
		Name:      name,
		Size:      len(body),
		RequestID: middleware.GetRequestIDFromGin(c),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.publisher.PublishFileUpdated(ctx, event); err != nil {
		httpservice.GetLogger(c).Warn("Failed to publish file event",
			logging.NewField("file", name),
			logging.NewField("error", err),
		)
	}

	c.Status(http.StatusCreated)
	return nil
}

// storageError maps a blob client failure onto the HTTP error it surfaces as.
func storageError(err error, name string) error {
	switch {
	case stderrors.Is(err, blobclient.ErrNotFound):
		return errors.NewNotFoundError(fmt.Sprintf("file not found: %s", name)).WithErr(err)
	case stderrors.Is(err, blobclient.ErrUnauthorized):
		return errors.NewForbiddenError("storage rejected the bridge credential").WithErr(err)
	case stderrors.Is(err, blobclient.ErrConflict):
		return errors.NewConflictError(fmt.Sprintf("file already exists: %s", name)).WithErr(err)
	case stderrors.Is(err, blobclient.ErrTransient):
		return errors.NewServiceUnavailableError("storage is temporarily unavailable").WithErr(err)
	default:
		return errors.NewInternalError("storage operation failed").WithErr(err)
	}
}

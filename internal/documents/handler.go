package documents

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/internal/projects"
	"github.com/nerlude/backend/pkg/response"
	"github.com/nerlude/backend/pkg/storage"
)

// Handler handles document endpoints nested under a project. A nil storage
// client means object storage is not configured; URL endpoints return 503
// while metadata listing keeps working.
type Handler struct {
	repo     *Repository
	access   *projects.Access
	store    *storage.S3
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a documents handler.
func NewHandler(repo *Repository, access *projects.Access, store *storage.S3, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, access: access, store: store, recorder: recorder, logger: logger}
}

// UploadRequest is the body for POST /projects/:id/documents/upload-url.
type UploadRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,gt=0"`
}

// List handles GET /projects/:id/documents.
func (h *Handler) List(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	list, err := h.repo.ListForProject(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list documents", zap.Error(err))
		response.Internal(c, "failed to load documents")
		return
	}
	response.OK(c, list)
}

// CreateUploadURL handles POST /projects/:id/documents/upload-url. Registers
// the document and returns a pre-signed PUT URL; the client uploads the bytes
// directly to object storage.
func (h *Handler) CreateUploadURL(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	if h.store == nil {
		response.ServiceUnavailable(c, "document storage is not configured")
		return
	}
	var body UploadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name, content_type and size_bytes required")
		return
	}
	if !storage.ValidateDocumentType(body.ContentType) {
		response.BadRequest(c, "unsupported document type")
		return
	}
	if body.SizeBytes > storage.MaxDocumentSize {
		response.BadRequest(c, "document exceeds the 25MB limit")
		return
	}

	doc := &models.Document{
		ID:          uuid.New(),
		WorkspaceID: p.WorkspaceID,
		ProjectID:   p.ID,
		Name:        body.Name,
		ContentType: body.ContentType,
		SizeBytes:   body.SizeBytes,
	}
	doc.StorageKey = storage.DocumentKey(p.WorkspaceID.String(), p.ID.String(), doc.ID.String(), body.Name)

	uploadURL, err := h.store.GeneratePresignedUploadURL(c.Request.Context(), doc.StorageKey, body.ContentType)
	if err != nil {
		h.logger.Error("presign upload", zap.Error(err))
		response.Internal(c, "failed to prepare upload")
		return
	}
	if err := h.repo.Create(c.Request.Context(), doc); err != nil {
		h.logger.Error("create document", zap.Error(err))
		response.Internal(c, "failed to register document")
		return
	}

	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionDocumentCreated,
		EntityType:  "document",
		EntityID:    &doc.ID,
		New:         doc,
		Metadata:    map[string]interface{}{"project_id": p.ID.String()},
	})
	response.Created(c, gin.H{"document": doc, "upload_url": uploadURL})
}

// CreateDownloadURL handles GET /projects/:id/documents/:docID/download-url.
func (h *Handler) CreateDownloadURL(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	if h.store == nil {
		response.ServiceUnavailable(c, "document storage is not configured")
		return
	}
	doc, ok := h.requireDocument(c, p)
	if !ok {
		return
	}
	url, err := h.store.GeneratePresignedDownloadURL(c.Request.Context(), doc.StorageKey)
	if err != nil {
		h.logger.Error("presign download", zap.Error(err))
		response.Internal(c, "failed to prepare download")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in_seconds": int(h.store.PresignExpire().Seconds())})
}

// Delete handles DELETE /projects/:id/documents/:docID. The object is
// removed best-effort; a storage failure does not keep the row alive.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	doc, ok := h.requireDocument(c, p)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID, doc.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "document not found")
			return
		}
		h.logger.Error("delete document", zap.Error(err))
		response.Internal(c, "failed to delete document")
		return
	}
	if h.store != nil {
		if err := h.store.DeleteDocument(c.Request.Context(), doc.StorageKey); err != nil {
			h.logger.Warn("delete document object", zap.Error(err), zap.String("key", doc.StorageKey))
		}
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionDocumentDeleted,
		EntityType:  "document",
		EntityID:    &doc.ID,
		Old:         doc,
		Metadata:    map[string]interface{}{"project_id": p.ID.String()},
	})
	response.NoContent(c)
}

func (h *Handler) requireProject(c *gin.Context) (*models.Project, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return nil, false
	}
	p, err := h.access.Require(c.Request.Context(), identity.UserID(c), id)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			response.NotFound(c, "project not found")
			return nil, false
		}
		h.logger.Error("authorize project", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return nil, false
	}
	return p, true
}

func (h *Handler) requireDocument(c *gin.Context, p *models.Project) (*models.Document, bool) {
	docID, err := uuid.Parse(c.Param("docID"))
	if err != nil {
		response.BadRequest(c, "invalid document id")
		return nil, false
	}
	doc, err := h.repo.GetForProject(c.Request.Context(), p.ID, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "document not found")
			return nil, false
		}
		h.logger.Error("load document", zap.Error(err))
		response.Internal(c, "failed to load document")
		return nil, false
	}
	return doc, true
}

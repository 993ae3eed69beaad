package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"docapproval/internal/apperror"
	"docapproval/internal/approval"
	"docapproval/internal/model"
	"docapproval/internal/repository"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type CreateDocumentRequest struct {
	ReferenceNo  string `json:"reference_no" binding:"required"`
	DocumentType string `json:"document_type" binding:"required"`
	Purpose      string `json:"purpose"`
	Supplier     string `json:"supplier"`
	OIC          bool   `json:"oic"`
	Date         string `json:"date" binding:"required"` // YYYY-MM-DD
	DepartmentID *uint  `json:"department_id"`
}

type CreateDocumentsBatchRequest struct {
	Documents []CreateDocumentRequest `json:"documents" binding:"required,dive"`
}

type DocumentFilter struct {
	Status       string
	DepartmentID *uint
	Page         int
	Limit        int
}

type DocumentResponse struct {
	ID             uint              `json:"id"`
	ReferenceNo    string            `json:"reference_no"`
	DocumentType   string            `json:"document_type"`
	Purpose        string            `json:"purpose"`
	Supplier       string            `json:"supplier"`
	OIC            bool              `json:"oic"`
	Date           string            `json:"date"`
	DepartmentID   *uint             `json:"department_id"`
	DepartmentName string            `json:"department_name,omitempty"`
	DocumentStatus string            `json:"document_status"`
	Progress       approval.Progress `json:"progress"`
	CreatedBy      *uint             `json:"created_by"`
	CreatedAt      string            `json:"created_at"`
}

// --- Interface ---

type DocumentService interface {
	CreateDocumentWithApprovalChain(ctx context.Context, req CreateDocumentRequest, createdBy uint) (*DocumentResponse, error)
	CreateDocumentsBatch(ctx context.Context, reqs []CreateDocumentRequest, createdBy uint) ([]DocumentResponse, error)
	GetDocument(ctx context.Context, id uint) (*DocumentResponse, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error)
	DeleteDocument(ctx context.Context, id uint, userID uint) error
}

type documentService struct {
	txManager repository.TransactionManager
	docRepo   repository.DocumentRepository
	stepRepo  repository.StepRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	assigner  *approval.Assigner
	events    EventPublisher
	log       *zap.Logger
}

func NewDocumentService(
	txManager repository.TransactionManager,
	docRepo repository.DocumentRepository,
	stepRepo repository.StepRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	assigner *approval.Assigner,
	events EventPublisher,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		txManager: txManager,
		docRepo:   docRepo,
		stepRepo:  stepRepo,
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		assigner:  assigner,
		events:    publisherOrNop(events),
		log:       log,
	}
}

// --- Implementation ---

func (s *documentService) CreateDocumentWithApprovalChain(ctx context.Context, req CreateDocumentRequest, createdBy uint) (*DocumentResponse, error) {
	var created createdDocument
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := approval.LoadRegistry(txCtx, s.roleRepo)
		if err != nil {
			return err
		}
		created, err = s.create(txCtx, reg, req, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announce(created)
	res := toDocumentResponse(created.doc, created.progress)
	return &res, nil
}

// CreateDocumentsBatch creates every document or none of them.
func (s *documentService) CreateDocumentsBatch(ctx context.Context, reqs []CreateDocumentRequest, createdBy uint) ([]DocumentResponse, error) {
	if len(reqs) == 0 {
		return nil, apperror.InvalidInput("documents", "batch is empty")
	}

	seen := make(map[string]int, len(reqs))
	for i, req := range reqs {
		ref := strings.TrimSpace(req.ReferenceNo)
		if j, dup := seen[ref]; dup {
			return nil, apperror.Newf(apperror.CodeInvalidInput, "documents[%d]: reference_no %q repeats documents[%d]", i, ref, j)
		}
		seen[ref] = i
	}

	created := make([]createdDocument, 0, len(reqs))
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := approval.LoadRegistry(txCtx, s.roleRepo)
		if err != nil {
			return err
		}
		for i, req := range reqs {
			c, err := s.create(txCtx, reg, req, createdBy)
			if err != nil {
				return fmt.Errorf("documents[%d]: %w", i, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := make([]DocumentResponse, 0, len(created))
	for _, c := range created {
		s.announce(c)
		res = append(res, toDocumentResponse(c.doc, c.progress))
	}
	s.log.Info("document batch created", zap.Int("count", len(res)), zap.Uint("user_id", createdBy))
	return res, nil
}

type createdDocument struct {
	doc      *model.Document
	progress approval.Progress
}

// create inserts the document and its approval chain. It must run inside a transaction.
func (s *documentService) create(ctx context.Context, reg *approval.Registry, req CreateDocumentRequest, createdBy uint) (createdDocument, error) {
	doc, err := newDocument(req, createdBy)
	if err != nil {
		return createdDocument{}, err
	}

	exists, err := s.docRepo.ExistsByReferenceNo(ctx, doc.ReferenceNo)
	if err != nil {
		return createdDocument{}, apperror.FromDB(err, "document", doc.ReferenceNo)
	}
	if exists {
		return createdDocument{}, apperror.InvalidInput("reference_no", fmt.Sprintf("%q already exists", doc.ReferenceNo))
	}

	// Unknown departments must fail as invalid input before the insert hits the foreign key.
	steps, err := s.assigner.Assign(ctx, reg, doc)
	if err != nil {
		return createdDocument{}, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return createdDocument{}, apperror.FromDB(err, "document", doc.ReferenceNo)
	}
	for i := range steps {
		steps[i].DocumentID = doc.ID
	}
	if err := s.stepRepo.CreateBatch(ctx, steps); err != nil {
		return createdDocument{}, apperror.FromDB(err, "approval steps", doc.ID)
	}

	err = writeAudit(ctx, s.auditRepo, uintRef(createdBy), model.ActionCreateDocument, strconv.FormatUint(uint64(doc.ID), 10), doc.ReferenceNo, map[string]interface{}{
		"document_type": doc.DocumentType,
		"department_id": doc.DepartmentID,
		"steps":         len(steps),
	})
	if err != nil {
		return createdDocument{}, err
	}

	return createdDocument{doc: doc, progress: approval.Compute(reg, doc, steps)}, nil
}

func (s *documentService) announce(c createdDocument) {
	s.log.Info("document created",
		zap.Uint("document_id", c.doc.ID),
		zap.String("reference_no", c.doc.ReferenceNo),
		zap.Int("roles", c.progress.Total),
	)
	s.events.Publish(Event{
		Type:           EventDocumentCreated,
		DocumentID:     c.doc.ID,
		ReferenceNo:    c.doc.ReferenceNo,
		DocumentStatus: c.doc.DocumentStatus,
		Percent:        c.progress.Percent,
		At:             time.Now(),
	})
}

func (s *documentService) GetDocument(ctx context.Context, id uint) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, "document", id)
	}
	reg, err := approval.LoadRegistry(ctx, s.roleRepo)
	if err != nil {
		return nil, err
	}
	steps, err := s.stepRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, apperror.FromDB(err, "approval steps", doc.ID)
	}

	res := toDocumentResponse(doc, approval.Compute(reg, doc, steps))
	return &res, nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Status != "" && !validDocumentStatus(filter.Status) {
		return nil, 0, apperror.InvalidInput("status", "must be Pending, Approved or Rejected")
	}

	docs, total, err := s.docRepo.List(ctx, repository.DocumentFilter{
		Status:       filter.Status,
		DepartmentID: filter.DepartmentID,
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, 0, apperror.FromDB(err, "documents", "list")
	}

	res, err := documentsWithProgress(ctx, s.roleRepo, s.stepRepo, docs)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// DeleteDocument removes the document and every step it owns.
func (s *documentService) DeleteDocument(ctx context.Context, id uint, userID uint) error {
	var doc *model.Document
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.docRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperror.FromDB(err, "document", id)
		}
		if err := s.stepRepo.DeleteByDocument(txCtx, id); err != nil {
			return apperror.FromDB(err, "approval steps", id)
		}
		if err := s.docRepo.Delete(txCtx, id); err != nil {
			return apperror.FromDB(err, "document", id)
		}
		return writeAudit(txCtx, s.auditRepo, uintRef(userID), model.ActionDeleteDocument, strconv.FormatUint(uint64(id), 10), doc.ReferenceNo, map[string]interface{}{
			"document_status": doc.DocumentStatus,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("document deleted", zap.Uint("document_id", id), zap.Uint("user_id", userID))
	s.events.Publish(Event{
		Type:        EventDocumentDeleted,
		DocumentID:  id,
		ReferenceNo: doc.ReferenceNo,
		UserID:      userID,
		At:          time.Now(),
	})
	return nil
}

// documentsWithProgress loads steps for all docs in one query and computes progress for each.
func documentsWithProgress(ctx context.Context, roles repository.RoleRepository, stepRepo repository.StepRepository, docs []model.Document) ([]DocumentResponse, error) {
	res := make([]DocumentResponse, 0, len(docs))
	if len(docs) == 0 {
		return res, nil
	}

	reg, err := approval.LoadRegistry(ctx, roles)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	stepsByDoc, err := stepRepo.ListByDocuments(ctx, ids)
	if err != nil {
		return nil, apperror.FromDB(err, "approval steps", ids)
	}

	for i := range docs {
		doc := &docs[i]
		res = append(res, toDocumentResponse(doc, approval.Compute(reg, doc, stepsByDoc[doc.ID])))
	}
	return res, nil
}

func newDocument(req CreateDocumentRequest, createdBy uint) (*model.Document, error) {
	ref := strings.TrimSpace(req.ReferenceNo)
	if ref == "" {
		return nil, apperror.InvalidInput("reference_no", "must not be empty")
	}
	if len(ref) > 100 {
		return nil, apperror.InvalidInput("reference_no", "must be at most 100 characters")
	}
	if !validDocumentType(req.DocumentType) {
		return nil, apperror.InvalidInput("document_type", "must be one of "+strings.Join(model.DocumentTypes, ", "))
	}
	date, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, apperror.InvalidInput("date", "must be formatted as YYYY-MM-DD")
	}

	return &model.Document{
		ReferenceNo:    ref,
		DocumentType:   req.DocumentType,
		Purpose:        strings.TrimSpace(req.Purpose),
		Supplier:       strings.TrimSpace(req.Supplier),
		OIC:            req.OIC,
		Date:           date,
		DepartmentID:   req.DepartmentID,
		DocumentStatus: model.DocumentPending,
		CreatedBy:      uintRef(createdBy),
	}, nil
}

func validDocumentType(t string) bool {
	for _, known := range model.DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func validDocumentStatus(status string) bool {
	return status == model.DocumentPending || status == model.DocumentApproved || status == model.DocumentRejected
}

func toDocumentResponse(doc *model.Document, progress approval.Progress) DocumentResponse {
	res := DocumentResponse{
		ID:             doc.ID,
		ReferenceNo:    doc.ReferenceNo,
		DocumentType:   doc.DocumentType,
		Purpose:        doc.Purpose,
		Supplier:       doc.Supplier,
		OIC:            doc.OIC,
		Date:           doc.Date.Format(dateLayout),
		DepartmentID:   doc.DepartmentID,
		DocumentStatus: progress.Status,
		Progress:       progress,
		CreatedBy:      doc.CreatedBy,
		CreatedAt:      doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.Department != nil {
		res.DepartmentName = doc.Department.Name
	}
	return res
}

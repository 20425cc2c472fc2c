package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/requestdata"
	"github.com/framepoint/framepoint-backend/internal/types"
)

// The fakes below ignore the tx handle entirely; the sqlite database only
// serves as a transaction shell so the services' Transaction wrappers run.

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func ctxWithActor(userID uuid.UUID, name string, role permissions.Role) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:   userID,
		UserName: name,
		Role:     role,
	})
}

type fakeAssetRepo struct {
	mu     sync.Mutex
	assets map[uuid.UUID]*types.Asset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: make(map[uuid.UUID]*types.Asset)}
}

func (r *fakeAssetRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Asset) ([]*types.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.assets[row.ID] = row
	}
	return rows, nil
}

func (r *fakeAssetRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Asset
	for _, id := range ids {
		if a, ok := r.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) ListByOwnerID(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Asset
	for _, a := range r.assets {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[id]; ok {
		a.Status = status
	}
	return nil
}

func (r *fakeAssetRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.assets, id)
	}
	return nil
}

type fakeCommentRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*types.Comment
	order []uuid.UUID
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{rows: make(map[uuid.UUID]*types.Comment)}
}

func (r *fakeCommentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Comment) ([]*types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.rows[row.ID] = row
		r.order = append(r.order, row.ID)
	}
	return rows, nil
}

func (r *fakeCommentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Comment
	for _, id := range ids {
		if c, ok := r.rows[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Comment
	for _, id := range r.order {
		if c, ok := r.rows[id]; ok && c.AssetID == assetID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = row
	return nil
}

func (r *fakeCommentRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

func (r *fakeCommentRepo) SoftDeleteByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pid := range parentIDs {
		for id, c := range r.rows {
			if c.ParentID != nil && *c.ParentID == pid {
				delete(r.rows, id)
			}
		}
	}
	return nil
}

func (r *fakeCommentRepo) SoftDeleteByAssetIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, aid := range assetIDs {
		for id, c := range r.rows {
			if c.AssetID == aid {
				delete(r.rows, id)
			}
		}
	}
	return nil
}

type fakeReactionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.CommentReaction
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{rows: make(map[uuid.UUID]*types.CommentReaction)}
}

func (r *fakeReactionRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CommentReaction) (*types.CommentReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = row
	return row, nil
}

func (r *fakeReactionRepo) GetByTriple(ctx context.Context, tx *gorm.DB, commentID, userID uuid.UUID, emoji string) (*types.CommentReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CommentID == commentID && row.UserID == userID && row.Emoji == emoji {
			return row, nil
		}
	}
	return nil, nil
}

func (r *fakeReactionRepo) GetByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.CommentReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.CommentReaction
	for _, row := range r.rows {
		for _, id := range commentIDs {
			if row.CommentID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *fakeReactionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

func (r *fakeReactionRepo) FullDeleteByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cid := range commentIDs {
		for id, row := range r.rows {
			if row.CommentID == cid {
				delete(r.rows, id)
			}
		}
	}
	return nil
}

type fakeWorkflowRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.ApprovalWorkflow
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{rows: make(map[uuid.UUID]*types.ApprovalWorkflow)}
}

func (r *fakeWorkflowRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ApprovalWorkflow) (*types.ApprovalWorkflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = row
	return row, nil
}

func (r *fakeWorkflowRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalWorkflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ApprovalWorkflow
	for _, id := range ids {
		if w, ok := r.rows[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeWorkflowRepo) GetActiveByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.ApprovalWorkflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.AssetID == assetID && w.Status == types.WorkflowActive {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkflowRepo) UpdateMode(ctx context.Context, tx *gorm.DB, id uuid.UUID, mode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.rows[id]; ok {
		w.Mode = mode
	}
	return nil
}

func (r *fakeWorkflowRepo) MarkSuperseded(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.AssetID == assetID && w.Status == types.WorkflowActive {
			w.Status = types.WorkflowSuperseded
		}
	}
	return nil
}

func (r *fakeWorkflowRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type fakeStepRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*types.ApprovalStep
	order []uuid.UUID
}

func newFakeStepRepo() *fakeStepRepo {
	return &fakeStepRepo{rows: make(map[uuid.UUID]*types.ApprovalStep)}
}

func (r *fakeStepRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ApprovalStep) ([]*types.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.rows[row.ID] = row
		r.order = append(r.order, row.ID)
	}
	return rows, nil
}

func (r *fakeStepRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ApprovalStep
	for _, id := range ids {
		if s, ok := r.rows[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStepRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ApprovalStep
	for _, id := range r.order {
		if s, ok := r.rows[id]; ok && s.WorkflowID == workflowID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStepRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[id]; ok {
		return s, nil
	}
	return nil, nil
}

func (r *fakeStepRepo) GetByWorkflowIDForUpdate(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error) {
	return r.GetByWorkflowID(ctx, tx, workflowID)
}

func (r *fakeStepRepo) Update(ctx context.Context, tx *gorm.DB, row *types.ApprovalStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = row
	return nil
}

func (r *fakeStepRepo) FullDeletePendingByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.rows {
		if s.WorkflowID == workflowID && s.Status == "pending" {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeStepRepo) FullDeleteByWorkflowIDs(ctx context.Context, tx *gorm.DB, workflowIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wid := range workflowIDs {
		for id, s := range r.rows {
			if s.WorkflowID == wid {
				delete(r.rows, id)
			}
		}
	}
	return nil
}

type fakeNotifier struct {
	mu             sync.Mutex
	resolved       int
	statusChanges  []string
	stepsDecided   int
	lastOldStatus  string
	lastNewStatus  string
	lastResolvedID uuid.UUID
}

func (n *fakeNotifier) CommentResolved(ctx context.Context, comment *types.Comment, asset *types.Asset) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved++
	n.lastResolvedID = comment.ID
}

func (n *fakeNotifier) AssetStatusChanged(ctx context.Context, asset *types.Asset, oldStatus, newStatus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanges = append(n.statusChanges, newStatus)
	n.lastOldStatus = oldStatus
	n.lastNewStatus = newStatus
}

func (n *fakeNotifier) StepDecided(ctx context.Context, step *types.ApprovalStep) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stepsDecided++
}

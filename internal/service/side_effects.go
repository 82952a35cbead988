package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/pkg/jobs"
	"github.com/noah-isme/examhub-api/pkg/middleware/requestid"
)

// Job types handled by SideEffects.
const (
	JobAuditLog   = "audit.write"
	JobRemoveFile = "file.remove"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type fileRemover interface {
	Remove(ctx context.Context, raw string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SideEffects carries audit writes and stored-file cleanup off the request
// path. Without an attached queue, or when the queue refuses a job, the work
// runs inline.
type SideEffects struct {
	audit  auditWriter
	files  fileRemover
	queue  jobEnqueuer
	mux    *jobs.Mux
	logger *zap.Logger
}

// NewSideEffects constructs the dispatcher. Either collaborator may be nil.
func NewSideEffects(audit auditWriter, files fileRemover, logger *zap.Logger) *SideEffects {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &SideEffects{audit: audit, files: files, logger: logger, mux: jobs.NewMux()}
	e.mux.Handle(JobAuditLog, e.handleAudit)
	e.mux.Handle(JobRemoveFile, e.handleRemoveFile)
	return e
}

// Handler returns the job handler to build the worker queue with.
func (e *SideEffects) Handler() jobs.Handler {
	return e.mux.Dispatch
}

// Attach routes later side effects through the queue.
func (e *SideEffects) Attach(queue jobEnqueuer) {
	e.queue = queue
}

// Audit records an audit entry. Failures are logged, never returned.
func (e *SideEffects) Audit(ctx context.Context, log *models.AuditLog) {
	if e == nil || e.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "examhub-api"
	}
	e.dispatch(ctx, jobs.Job{Type: JobAuditLog, Payload: log})
}

// RemoveFile deletes the stored file behind a fileRef.
func (e *SideEffects) RemoveFile(ctx context.Context, fileRef string) {
	if e == nil || e.files == nil || fileRef == "" {
		return
	}
	e.dispatch(ctx, jobs.Job{Type: JobRemoveFile, Payload: fileRef})
}

func (e *SideEffects) dispatch(ctx context.Context, job jobs.Job) {
	if e.queue != nil {
		err := e.queue.Enqueue(job)
		if err == nil {
			return
		}
		e.logger.Warn("side effect queue unavailable, running inline",
			zap.String("type", job.Type), zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
	}
	if err := e.mux.Dispatch(context.WithoutCancel(ctx), job); err != nil {
		e.logger.Warn("side effect failed", zap.String("type", job.Type), zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
	}
}

func (e *SideEffects) handleAudit(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("audit job: unexpected payload %T", job.Payload)
	}
	return e.audit.CreateAuditLog(ctx, log)
}

func (e *SideEffects) handleRemoveFile(ctx context.Context, job jobs.Job) error {
	ref, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("file job: unexpected payload %T", job.Payload)
	}
	return e.files.Remove(ctx, ref)
}

// auditPayload encodes a value for the audit trail, nil when it cannot be encoded.
func auditPayload(v interface{}) []byte {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/veltrane/ragchat/internal/service"
)

// ReindexJob retries vector ingestion for documents stuck in the pending
// state. The delay keeps it from racing an upload that is still in flight.
type ReindexJob struct {
	documents *service.DocumentService
	delay     time.Duration
	batch     int
}

func NewReindexJob(documents *service.DocumentService, delay time.Duration, batch int) *ReindexJob {
	if batch <= 0 {
		batch = 16
	}
	return &ReindexJob{documents: documents, delay: delay, batch: batch}
}

func (j *ReindexJob) Name() string {
	return "document_reindex"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	if j.documents == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.delay).Unix()
	done, err := j.documents.ReingestPending(ctx, cutoff, j.batch)
	if err != nil {
		return err
	}
	if done > 0 {
		logutil.GetLogger(ctx).Info("pending documents reindexed", zap.Int("count", done))
	}
	return nil
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stylemateapi/models"
	"stylemateapi/services"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TypeSendEmail          = "email:send"
	TypeDeleteObject       = "storage:delete_object"
	TypePurgeExpiredTokens = "auth:purge_expired_tokens"

	QueueDefault     = "default"
	QueueMaintenance = "maintenance"
)

// Enqueuer is the subset of *asynq.Client the API needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type DeleteObjectPayload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func NewSendEmailTask(email services.Email) (*asynq.Task, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendEmail, payload, asynq.MaxRetry(5), asynq.Queue(QueueDefault)), nil
}

func NewDeleteObjectTask(bucket, key string) (*asynq.Task, error) {
	payload, err := json.Marshal(DeleteObjectPayload{Bucket: bucket, Key: key})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDeleteObject, payload, asynq.MaxRetry(3), asynq.Queue(QueueMaintenance)), nil
}

func NewPurgeExpiredTokensTask() *asynq.Task {
	return asynq.NewTask(TypePurgeExpiredTokens, nil, asynq.Queue(QueueMaintenance))
}

func HandleSendEmailTask(ctx context.Context, t *asynq.Task, mailer services.Mailer) error {
	var email services.Email
	if err := json.Unmarshal(t.Payload(), &email); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return mailer.Send(ctx, email)
}

func HandleDeleteObjectTask(ctx context.Context, t *asynq.Task, storage services.AWSServiceProvider, logger *zap.Logger) error {
	var p DeleteObjectPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if p.Key == "" {
		return nil
	}
	if err := storage.DeleteObject(ctx, p.Bucket, p.Key); err != nil {
		return err
	}
	logger.Info("deleted object", zap.String("bucket", p.Bucket), zap.String("key", p.Key))
	return nil
}

// HandlePurgeExpiredTokensTask clears password reset tokens past their expiry.
func HandlePurgeExpiredTokensTask(ctx context.Context, t *asynq.Task, db *gorm.DB, now time.Time, logger *zap.Logger) error {
	result := db.WithContext(ctx).Model(&models.UserAccount{}).
		Where("reset_token IS NOT NULL AND reset_token_expires_at < ?", now).
		Updates(map[string]interface{}{"reset_token": nil, "reset_token_expires_at": nil})
	if result.Error != nil {
		return result.Error
	}
	logger.Info("purged expired reset tokens", zap.Int64("count", result.RowsAffected))
	return nil
}

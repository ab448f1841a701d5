package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"stylemateapi/config"
	"stylemateapi/metrics"
	"stylemateapi/models"
	"stylemateapi/services"
	"stylemateapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

func UIntToStr(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

func GenerateUserToken(userPk string, cfg config.JWTConfig) (string, error) {
	return signToken(userPk, tokenTypeAccess, cfg.AccessTTL, cfg.Secret)
}

func GenerateRefreshToken(userPk string, cfg config.JWTConfig) (string, error) {
	return signToken(userPk, tokenTypeRefresh, cfg.RefreshTTL, cfg.Secret)
}

func GenerateTokenPair(userPk string, cfg config.JWTConfig) (models.TokenPair, error) {
	access, err := GenerateUserToken(userPk, cfg)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := GenerateRefreshToken(userPk, cfg)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func signToken(userPk, typ string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userPk,
		"typ": typ,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseRefreshToken returns the subject of a valid refresh token.
func ParseRefreshToken(raw string, secret string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeRefresh {
		return "", errors.New("not a refresh token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token without subject")
	}
	return sub, nil
}

// RandomToken returns n random bytes hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func enqueue(logger *zap.Logger, client tasks.Enqueuer, task *asynq.Task, err error) error {
	if err != nil {
		return err
	}
	info, err := client.Enqueue(task)
	if err != nil {
		metrics.TasksEnqueued.WithLabelValues(task.Type(), "error").Inc()
		return err
	}
	metrics.TasksEnqueued.WithLabelValues(task.Type(), "ok").Inc()
	logger.Info("task enqueued", zap.String("type", task.Type()), zap.String("task_id", info.ID))
	return nil
}

// enqueueObjectDelete schedules removal of an object key. Failures are
// logged and reported, never returned: the database change already happened.
func enqueueObjectDelete(logger *zap.Logger, client tasks.Enqueuer, bucket string, key *string) {
	if key == nil || *key == "" {
		return
	}
	task, err := tasks.NewDeleteObjectTask(bucket, *key)
	if err := enqueue(logger, client, task, err); err != nil {
		logger.Warn("failed to schedule object delete", zap.String("key", *key), zap.Error(err))
		sentry.CaptureException(err)
	}
}

// readURLs presigns every key concurrently. Missing keys and failures map
// to nil so one broken image never fails a listing.
func readURLs(ctx context.Context, logger *zap.Logger, cache services.URLCacheServiceProvider, keys []*string) []*string {
	urls := make([]*string, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		if key == nil || *key == "" {
			continue
		}
		wg.Add(1)
		go func(index int, objectKey string) {
			defer wg.Done()
			url, err := cache.GetReadURL(ctx, objectKey)
			if err != nil {
				logger.Warn("failed to presign read url", zap.String("key", objectKey), zap.Error(err))
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("failure_type", "cache_system")
					scope.SetExtra("objectKey", objectKey)
					sentry.CaptureException(err)
				})
				return
			}
			urls[index] = &url
		}(i, *key)
	}
	wg.Wait()
	return urls
}

func readURL(ctx context.Context, logger *zap.Logger, cache services.URLCacheServiceProvider, key *string) *string {
	return readURLs(ctx, logger, cache, []*string{key})[0]
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

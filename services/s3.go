package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"stylemateapi/apperr"
	appconfig "stylemateapi/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type AWSServiceProvider interface {
	InitPresignClient(ctx context.Context) error
	PresignLink(ctx context.Context, bucketName string, fileName string) (string, error)
	GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error)
	DeleteObject(ctx context.Context, bucketName, fileKey string) error
}

type AWSService struct {
	Config          appconfig.StorageConfig
	S3Client        *s3.Client
	S3PresignClient *s3.PresignClient
}

func NewAWSService(cfg appconfig.StorageConfig) *AWSService {
	return &AWSService{Config: cfg}
}

func (awsService *AWSService) InitPresignClient(ctx context.Context) error {
	accountId := awsService.Config.AccountID
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountId),
		}, nil
	})
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			awsService.Config.AccessKeyID, awsService.Config.AccessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	awsService.S3Client = s3.NewFromConfig(cfg)
	awsService.S3PresignClient = s3.NewPresignClient(awsService.S3Client)
	return nil
}

func (awsService *AWSService) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	request, err := awsService.S3PresignClient.PresignPutObject(ctx, &s3.PutObjectInput{Bucket: &bucketName, Key: &fileName})
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", fileName, err)
	}
	return request.URL, nil
}

func (awsService *AWSService) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	ttl := awsService.Config.ReadURLTTL
	if ttl <= 0 {
		ttl = presignedURLExpiration
	}
	presignedGetRequest, err := awsService.S3PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(fileKey),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %w", err)
	}
	return presignedGetRequest.URL, nil
}

func (awsService *AWSService) DeleteObject(ctx context.Context, bucketName, fileKey string) error {
	_, err := awsService.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(fileKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", fileKey, err)
	}
	return nil
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// ObjectKey builds a collision-free key under prefix for a user upload,
// keeping the original extension when it is an image type.
func ObjectKey(prefix string, userID uint, fileName string) (string, error) {
	ext := strings.ToLower(path.Ext(fileName))
	if !allowedImageExtensions[ext] {
		return "", apperr.UserInput("Unsupported file type %q, use jpg, png, webp or heic", ext)
	}
	return fmt.Sprintf("%s/%d/%s%s", prefix, userID, uuid.NewString(), ext), nil
}

// keep read URLs a little shorter lived in cache than on the bucket side
func cacheTTLFor(urlTTL time.Duration) time.Duration {
	if urlTTL <= 0 {
		urlTTL = presignedURLExpiration
	}
	return urlTTL * 4 / 5
}

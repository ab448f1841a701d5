package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"stylemateapi/config"
	"stylemateapi/models"
	"stylemateapi/services"
	"stylemateapi/weather"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const JWTSecret = "test-secret"

const FakePassword = "secret123"

// Config returns a configuration suitable for handler tests.
func Config() *config.Config {
	cfg := config.Default()
	cfg.Env = "test"
	cfg.JWT.Secret = JWTSecret
	cfg.Storage.Bucket = "test-bucket"
	cfg.RateLimit.APIRequests = 10000
	cfg.RateLimit.AuthRequests = 10000
	return cfg
}

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	return signToken(jwt.MapClaims{
		"sub": userPk,
		"typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
}

func GenerateRefreshToken(userPk string) string {
	return signToken(jwt.MapClaims{
		"sub": userPk,
		"typ": "refresh",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

func signToken(claims jwt.MapClaims) string {
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	if err != nil {
		panic(err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", authorizationString)
	return req
}

func UserID(user *models.UserAccount) string {
	return fmt.Sprintf("%d", user.ID)
}

// FakeUser creates a verified user whose password is FakePassword.
func FakeUser(db *gorm.DB, username string) *models.UserAccount {
	if username == "" {
		username = "stylefan"
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(FakePassword), bcrypt.MinCost)
	user := &models.UserAccount{
		Username:   username,
		Email:      username + "@example.com",
		Password:   string(hash),
		IsVerified: true,
		LastIp:     "123.122.122.122",
	}
	if err := db.Create(user).Error; err != nil {
		panic(err)
	}
	return user
}

func FakeItem(db *gorm.DB, user *models.UserAccount, name string, category string) *models.WardrobeItem {
	var cat models.Category
	if err := db.Where("name = ?", category).First(&cat).Error; err != nil {
		panic(err)
	}
	key := fmt.Sprintf("wardrobe/%d/%s.jpg", user.ID, strings.ReplaceAll(strings.ToLower(name), " ", "-"))
	item := &models.WardrobeItem{
		UserAccountID: user.ID,
		CategoryID:    cat.ID,
		Name:          name,
		ImageURL:      &key,
		Seasons:       []string{"summer"},
	}
	if err := db.Create(item).Error; err != nil {
		panic(err)
	}
	item.Category = cat
	return item
}

func StrPointer(s string) *string {
	return &s
}

type AWSProviderMock struct {
	MockUrl string

	mu      sync.Mutex
	Deleted []string
}

func (awsService *AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService *AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", fileKey), nil
}

func (awsService *AWSProviderMock) DeleteObject(ctx context.Context, bucketName, fileKey string) error {
	awsService.mu.Lock()
	defer awsService.mu.Unlock()
	awsService.Deleted = append(awsService.Deleted, fileKey)
	return nil
}

type URLCacheMock struct{}

func (m *URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + objectKey, nil
}

func (m *URLCacheMock) Invalidate(ctx context.Context, objectKey string) error {
	return nil
}

// EnqueuerMock records tasks instead of pushing them to redis.
type EnqueuerMock struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
	Err   error
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.Tasks)), Type: task.Type()}, nil
}

func (m *EnqueuerMock) TasksOfType(taskType string) []*asynq.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*asynq.Task
	for _, t := range m.Tasks {
		if t.Type() == taskType {
			out = append(out, t)
		}
	}
	return out
}

type MailerMock struct {
	mu   sync.Mutex
	Sent []services.Email
}

func (m *MailerMock) Send(ctx context.Context, email services.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, email)
	return nil
}

// WeatherMock returns Report for every city, or Err when set.
type WeatherMock struct {
	Report      weather.Report
	ForecastOut weather.Forecast
	Err         error
	Cities      []string
}

func (m *WeatherMock) Current(ctx context.Context, city string) (*weather.Report, error) {
	m.Cities = append(m.Cities, city)
	if m.Err != nil {
		return nil, m.Err
	}
	r := m.Report
	r.City = city
	return &r, nil
}

func (m *WeatherMock) Forecast(ctx context.Context, city string) (*weather.Forecast, error) {
	m.Cities = append(m.Cities, city)
	if m.Err != nil {
		return nil, m.Err
	}
	f := m.ForecastOut
	return &f, nil
}

// CounterValue reads the current value of a prometheus counter.
func CounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		panic(err)
	}
	return m.GetCounter().GetValue()
}

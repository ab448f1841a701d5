package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stylemateapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDeps(db *gorm.DB) Dependencies {
	return Dependencies{
		DB:       db,
		Config:   test.Config(),
		Storage:  &test.AWSProviderMock{},
		URLCache: &test.URLCacheMock{},
		Tasks:    &test.EnqueuerMock{},
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

package controllers

import (
	"net/http"
	"testing"

	"stylemateapi/chatbot"
	"stylemateapi/dbhelper"
	"stylemateapi/models"
	"stylemateapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestChatbotMessage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/chatbot/message", test.UserID(user), echo.Map{"message": "What should I wear in this WEATHER?"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.ChatMessageOut
	decode(t, rec, &resp)
	assert.Equal(t, chatbot.Reply("weather"), resp.Message)
	assert.NotEqual(t, chatbot.DefaultReply, resp.Message)
}

func TestChatbotEmptyMessage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	for _, body := range []echo.Map{{}, {"message": "   "}} {
		rec := serve(e, test.NewJSONAuthRequest("POST", "/api/chatbot/message", test.UserID(user), body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message": "Message is required"}`, rec.Body.String())
	}
}

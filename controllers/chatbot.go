package controllers

import (
	"net/http"
	"strings"

	"stylemateapi/chatbot"
	"stylemateapi/models"

	"github.com/labstack/echo/v4"
)

type ChatbotController struct{}

func (controller *ChatbotController) ChatbotRoutes(g *echo.Group) {
	g.POST("/message", controller.SendMessage)
}

func (controller *ChatbotController) SendMessage(c echo.Context) error {
	var req models.ChatMessageIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Message is required"})
	}
	return c.JSON(http.StatusOK, models.ChatMessageOut{Message: chatbot.Reply(req.Message)})
}

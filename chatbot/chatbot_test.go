package chatbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReply(t *testing.T) {
	assert.True(t, strings.HasPrefix(Reply("Can you RECOMMEND something?"), "I can help you with style recommendations"))
	assert.True(t, strings.HasPrefix(Reply("what's the temperature"), "I can help you choose weather-appropriate clothing"))
	assert.True(t, strings.HasPrefix(Reply("does this match?"), "I can help you create outfit combinations"))
	assert.True(t, strings.HasPrefix(Reply("help me sort my closet"), "I can help you organize your wardrobe"))
	assert.True(t, strings.HasPrefix(Reply("latest fashion"), "I can help you stay updated with fashion trends"))
	assert.Equal(t, DefaultReply, Reply("hello"))
}

func TestReplyFirstRuleWins(t *testing.T) {
	// "suggest" and "outfit" both match; the recommendation rule comes first
	assert.Equal(t, rules[0].reply, Reply("suggest an outfit"))
	// "style" alone is a trend question
	assert.Equal(t, rules[4].reply, Reply("my style"))
}

// Package chatbot answers style questions from a fixed keyword table.
package chatbot

import "strings"

type rule struct {
	keywords []string
	reply    string
}

// rules are checked in order; the first rule with a matching keyword wins.
var rules = []rule{
	{
		keywords: []string{"recommend", "suggest"},
		reply:    "I can help you with style recommendations! Could you tell me more about the occasion or your preferences?",
	},
	{
		keywords: []string{"weather", "temperature"},
		reply:    "I can help you choose weather-appropriate clothing. Would you like me to check the current weather in your location?",
	},
	{
		keywords: []string{"outfit", "combine", "match"},
		reply:    "I can help you create outfit combinations from your wardrobe. Would you like me to suggest some combinations?",
	},
	{
		keywords: []string{"organize", "sort", "clean"},
		reply:    "I can help you organize your wardrobe! Would you like tips on categorizing your clothes or creating a capsule wardrobe?",
	},
	{
		keywords: []string{"trend", "fashion", "style"},
		reply:    "I can help you stay updated with fashion trends! What kind of trends are you interested in?",
	},
}

const DefaultReply = "I'm here to help you with your style questions! You can ask me about:\n" +
	"- Style recommendations\n" +
	"- Outfit combinations\n" +
	"- Weather-appropriate clothing\n" +
	"- Wardrobe organization\n" +
	"- Fashion trends\n\n" +
	"What would you like to know?"

func Reply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply
			}
		}
	}
	return DefaultReply
}

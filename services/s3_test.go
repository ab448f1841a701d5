package services_test

import (
	"regexp"
	"testing"

	"stylemateapi/apperr"
	"stylemateapi/models"
	"stylemateapi/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key, err := services.ObjectKey("wardrobe", 7, "Photo.JPEG")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^wardrobe/7/[0-9a-f-]{36}\.jpeg$`), key)

	other, err := services.ObjectKey("wardrobe", 7, "Photo.JPEG")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	for _, name := range []string{"notes.txt", "noextension", "script.exe"} {
		_, err := services.ObjectKey("avatars", 7, name)
		assert.Equal(t, apperr.KindUserInput, apperr.KindOf(err), name)
	}
}

func TestTally(t *testing.T) {
	tally := services.NewTally()
	for _, label := range []string{"Blue", "blue ", "", "RED", "  "} {
		tally.Add(label, "other")
	}

	assert.Equal(t, []models.CountEntry{
		{Name: "Blue", Count: 2},
		{Name: "Other", Count: 2},
		{Name: "Red", Count: 1},
	}, tally.Entries())
	assert.Empty(t, services.NewTally().Entries())
}

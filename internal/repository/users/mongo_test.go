package users

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUserDocumentRoundTrip(t *testing.T) {
	googleID := "g-123"
	avatar := "https://example.com/a.png"
	u := &models.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		DisplayName:  "Ada",
		Avatar:       &avatar,
		AuthProvider: models.AuthProviderGoogle,
		GoogleID:     &googleID,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	doc := toDocument(u)
	assert.Equal(t, u.ID.String(), doc.ID)
	assert.NotNil(t, doc.Preferences)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded userDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := decoded.toModel()
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, googleID, *got.GoogleID)
	assert.Empty(t, got.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))
}

func TestUserDocumentInvalidID(t *testing.T) {
	_, err := userDocument{ID: "not-a-uuid"}.toModel()
	require.Error(t, err)
}

func TestProfileUpdateDocument(t *testing.T) {
	now := time.Now().UTC()
	voice := "v-1"

	doc := profileUpdateDocument(ProfileUpdate{
		AvatarID: NullableString{Set: true},
		VoiceID:  NullableString{Set: true, Value: &voice},
	}, now)

	set, ok := doc["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, now, set["updatedAt"])
	assert.Contains(t, set, "avatarId")
	assert.Nil(t, set["avatarId"])
	assert.Equal(t, &voice, set["voiceId"])
	assert.NotContains(t, set, "preferences")
}

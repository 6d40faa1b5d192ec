package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Password(t *testing.T) {
	u := &User{}
	require.NoError(t, u.HashPassword("correct horse"))
	assert.NotEqual(t, "correct horse", u.Password)
	assert.True(t, u.CheckPassword("correct horse"))
	assert.False(t, u.CheckPassword("battery staple"))
}

func TestBeforeCreate_AssignsIDs(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	_, err := uuid.Parse(u.ID)
	assert.NoError(t, err)

	g := &Generation{ID: "keep-me"}
	require.NoError(t, g.BeforeCreate(nil))
	assert.Equal(t, "keep-me", g.ID)
}

func TestGeneration_OwnedBy(t *testing.T) {
	g := &Generation{UserID: "u1"}
	assert.True(t, g.OwnedBy("u1"))
	assert.False(t, g.OwnedBy("u2"))
	assert.False(t, (&Generation{}).OwnedBy(""))
}

package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/types"
)

func TestSnapshot_EmptyRoom(t *testing.T) {
	room := newTestRoom(nil)

	snap := room.SnapshotFor(types.RoleTypePlayer)

	assert.Equal(t, types.RoomCodeType("GAME"), snap.Code)
	assert.NotZero(t, snap.CreatedAt)
	assert.NotNil(t, snap.Players, "players serializes as [], never null")
	assert.Empty(t, snap.Players)
	assert.Nil(t, snap.CurrentTurn)
	assert.Nil(t, snap.BuzzedBy)
	assert.Nil(t, snap.ActiveQuestion)
	assert.Nil(t, snap.LastResult)
	assert.False(t, snap.QuestionActive)
	assert.Empty(t, snap.UsedQuestions)
	assert.Empty(t, snap.UsedCategorySlots)
}

func TestSnapshot_PlayersFollowTurnOrder(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob", "Carol")
	require.NoError(t, room.SetTurn(context.Background(), ids[1]))

	snap := room.SnapshotFor(types.RoleTypePlayer)

	require.Len(t, snap.Players, 3)
	for i, id := range ids {
		assert.Equal(t, id, snap.Players[i].Id)
	}
	assert.False(t, snap.Players[0].IsTurn)
	assert.True(t, snap.Players[1].IsTurn)
	assert.False(t, snap.Players[2].IsTurn)

	require.NotNil(t, snap.CurrentTurn)
	assert.Equal(t, ids[1], snap.CurrentTurn.PlayerId)
	assert.Equal(t, "Bob", snap.CurrentTurn.Name)
}

func TestSnapshot_ActiveQuestionRoleGating(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob")
	activateStub(t, room, stubQuestion("q1", "science", "medium"), "science", "medium")

	host := room.SnapshotFor(types.RoleTypeHost)
	player := room.SnapshotFor(types.RoleTypePlayer)

	require.NotNil(t, host.ActiveQuestion)
	require.NotNil(t, player.ActiveQuestion)

	// Hosts see the answer material.
	assert.Equal(t, "42", host.ActiveQuestion.CorrectAnswer)
	assert.Len(t, host.ActiveQuestion.Choices, 4)

	// Players see the question but never the answer.
	assert.Empty(t, player.ActiveQuestion.CorrectAnswer)
	assert.Empty(t, player.ActiveQuestion.Choices)
	assert.Equal(t, host.ActiveQuestion.Question, player.ActiveQuestion.Question)
	assert.Equal(t, "science", player.ActiveQuestion.Category)
	assert.Equal(t, 250, player.ActiveQuestion.Points)

	require.NotNil(t, player.ActiveQuestion.AssignedTo)
	assert.Equal(t, ids[0], player.ActiveQuestion.AssignedTo.PlayerId)
	assert.Equal(t, []types.PlayerIdType{ids[0]}, player.ActiveQuestion.AttemptedPlayerIds)
}

func TestSnapshot_LastResultRoleGating(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob")
	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.MarkCorrect(context.Background(), ""))

	host := room.SnapshotFor(types.RoleTypeHost)
	player := room.SnapshotFor(types.RoleTypePlayer)

	require.NotNil(t, host.LastResult)
	require.NotNil(t, player.LastResult)
	assert.Equal(t, "42", host.LastResult.CorrectAnswer)
	assert.Empty(t, player.LastResult.CorrectAnswer)
	assert.True(t, player.LastResult.AnsweredCorrectly)
	assert.Equal(t, 150, player.LastResult.PointsAwarded)
	require.NotNil(t, player.LastResult.AnsweredBy)
	assert.Equal(t, ids[0], player.LastResult.AnsweredBy.PlayerId)
}

func TestSnapshot_ShareFieldsRoleGating(t *testing.T) {
	reg := NewRegistry(&StubSource{})
	room := reg.CreateRoom(context.Background())
	info := reg.IssueShare(context.Background(), room)

	host := room.SnapshotFor(types.RoleTypeHost)
	player := room.SnapshotFor(types.RoleTypePlayer)

	assert.Equal(t, info.ShareCode, host.ShareCode)
	assert.NotZero(t, host.ShareCodeIssuedAt)
	assert.Equal(t, info.ExpiresAt, host.ShareCodeExpiresAt)

	// Players learn that a share is pending and when it lapses, not the digits.
	assert.Empty(t, player.ShareCode)
	assert.Zero(t, player.ShareCodeIssuedAt)
	assert.Equal(t, info.ExpiresAt, player.ShareCodeExpiresAt)
}

// References to players who have since left resolve to null rather than
// dangling ids clients cannot display.
func TestSnapshot_DepartedPlayersNeverDangle(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob")
	bob := ids[1]

	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.OpenBuzzers(context.Background()))
	require.NoError(t, room.Buzz(context.Background(), bob))
	require.NoError(t, room.MarkCorrect(context.Background(), ""))

	snap := room.SnapshotFor(types.RoleTypePlayer)
	require.NotNil(t, snap.LastResult.AnsweredBy)
	assert.Equal(t, bob, snap.LastResult.AnsweredBy.PlayerId)

	require.NoError(t, room.RemovePlayer(context.Background(), bob))

	snap = room.SnapshotFor(types.RoleTypePlayer)
	require.NotNil(t, snap.LastResult)
	assert.Nil(t, snap.LastResult.AnsweredBy, "the departed winner must not appear as a ref")
	assert.Equal(t, 150, snap.LastResult.PointsAwarded, "the rest of the result survives")
}

func TestSnapshot_BuzzedByRef(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob")
	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.OpenBuzzers(context.Background()))

	snap := room.SnapshotFor(types.RoleTypePlayer)
	assert.Nil(t, snap.BuzzedBy)
	assert.True(t, snap.QuestionActive)

	require.NoError(t, room.Buzz(context.Background(), ids[1]))

	snap = room.SnapshotFor(types.RoleTypePlayer)
	require.NotNil(t, snap.BuzzedBy)
	assert.Equal(t, ids[1], snap.BuzzedBy.PlayerId)
	assert.False(t, snap.QuestionActive)
	assert.NotZero(t, snap.Players[1].BuzzedAt)
}

func TestSnapshot_UsedSlotsAndQuestions(t *testing.T) {
	room := newTestRoom(nil)
	joinPlayers(t, room, "Alice")
	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.MarkCorrect(context.Background(), ""))
	activateStub(t, room, stubQuestion("q2", "history", "hard"), "history", "hard")
	require.NoError(t, room.MarkIncorrect(context.Background(), false))

	snap := room.SnapshotFor(types.RoleTypePlayer)

	assert.Equal(t, []string{"q1", "q2"}, snap.UsedQuestions)
	assert.Equal(t, []string{"history|hard", "science|easy"}, snap.UsedCategorySlots)
}

// Reading state must never change it: consecutive snapshots of an untouched
// room are identical.
func TestSnapshot_ReadsAreIdempotent(t *testing.T) {
	room := newTestRoom(nil)
	ids := joinPlayers(t, room, "Alice", "Bob")
	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.OpenBuzzers(context.Background()))
	require.NoError(t, room.Buzz(context.Background(), ids[1]))

	first := room.SnapshotFor(types.RoleTypeHost)
	second := room.SnapshotFor(types.RoleTypeHost)

	assert.Equal(t, first, second)
}

func TestListing(t *testing.T) {
	room := newTestRoom(nil)
	joinPlayers(t, room, "Alice", "Bob")
	activateStub(t, room, stubQuestion("q1", "science", "easy"), "science", "easy")
	require.NoError(t, room.OpenBuzzers(context.Background()))

	listing := room.Listing()

	assert.Equal(t, types.RoomCodeType("GAME"), listing.Code)
	assert.Equal(t, 2, listing.PlayerCount)
	assert.True(t, listing.QuestionActive)
	assert.False(t, listing.HostOnline)
	assert.False(t, listing.ShareActive)
}

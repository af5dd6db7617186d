package chatlog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/portal-realtime/internal/chatlog"
	"github.com/worklane/portal-realtime/internal/models"
)

func msg(id, sender, recipient, content string, ts time.Time) models.Message {
	return models.Message{
		ID:          id,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		Timestamp:   ts,
	}
}

func TestAppendDedup(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("by id", func(t *testing.T) {
		l := chatlog.New()
		assert.True(t, l.Append(msg("m1", "u2@x", "general", "hi", ts)))
		assert.False(t, l.Append(msg("m1", "u2@x", "general", "hi", ts)))
		assert.Equal(t, 1, l.Len())
	})

	t.Run("by triple when id missing", func(t *testing.T) {
		l := chatlog.New()
		assert.True(t, l.Append(msg("", "u2@x", "general", "hi", ts)))
		assert.False(t, l.Append(msg("", "u2@x", "general", "hi", ts)))
		assert.True(t, l.Append(msg("", "u2@x", "general", "hi", ts.Add(time.Second))))
		assert.Equal(t, 2, l.Len())
	})
}

func TestConfirmOptimistic(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := chatlog.New()

	l.Append(msg("m0", "u2@x", "u1@x", "earlier", ts))
	optimistic := models.Message{
		ID:          models.NewOptimisticID(),
		SenderID:    "u1@x",
		RecipientID: "u2@x",
		Content:     "hello",
		Timestamp:   ts.Add(time.Second),
	}
	l.Append(optimistic)
	l.Append(msg("m2", "u2@x", "u1@x", "later", ts.Add(2*time.Second)))
	require.True(t, optimistic.IsOptimistic())

	confirmed := msg("srv-9", "u1@x", "u2@x", "hello", ts.Add(time.Second))
	require.True(t, l.ConfirmOptimistic(confirmed))

	msgs := l.Messages()
	require.Len(t, msgs, 3)
	// same relative position, now with the server ID
	assert.Equal(t, "srv-9", msgs[1].ID)
	assert.False(t, msgs[1].IsOptimistic())

	// the echo must not match twice
	assert.False(t, l.ConfirmOptimistic(confirmed))
}

func TestMergeChronological(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := chatlog.New()

	// live messages arrive first
	l.Append(msg("m2", "u2@x", "general", "two", base.Add(2*time.Minute)))
	l.Append(msg("m4", "u2@x", "general", "four", base.Add(4*time.Minute)))

	// missed backlog interleaves with them and repeats m2
	added := l.Merge([]models.Message{
		msg("m3", "u3@x", "general", "three", base.Add(3*time.Minute)),
		msg("m2", "u2@x", "general", "two", base.Add(2*time.Minute)),
		msg("m1", "u3@x", "general", "one", base.Add(time.Minute)),
	})
	assert.Equal(t, 2, added)

	var ids []string
	for _, m := range l.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids)
}

func TestToggleReaction(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newLog := func(t *testing.T) *chatlog.Log {
		l := chatlog.New()
		require.True(t, l.Append(msg("m1", "u2@x", "general", "hi", ts)))
		return l
	}

	t.Run("unknown message", func(t *testing.T) {
		l := newLog(t)
		_, ok := l.ToggleReaction("nope", "u1@x", "👍")
		assert.False(t, ok)
	})

	t.Run("first reaction adds", func(t *testing.T) {
		l := newLog(t)
		upd, ok := l.ToggleReaction("m1", "u1@x", "👍")
		require.True(t, ok)
		assert.Equal(t, models.ReactionAdd, upd.Action)
		m, _ := l.Get("m1")
		assert.Equal(t, []models.Reaction{{UserID: "u1@x", Symbol: "👍"}}, m.Reactions)
	})

	t.Run("same symbol twice removes", func(t *testing.T) {
		l := newLog(t)
		l.ToggleReaction("m1", "u1@x", "👍")
		upd, ok := l.ToggleReaction("m1", "u1@x", "👍")
		require.True(t, ok)
		assert.Equal(t, models.ReactionRemove, upd.Action)
		m, _ := l.Get("m1")
		assert.Empty(t, m.Reactions)
	})

	t.Run("different symbol replaces", func(t *testing.T) {
		l := newLog(t)
		l.ToggleReaction("m1", "u1@x", "👍")
		upd, ok := l.ToggleReaction("m1", "u1@x", "🎉")
		require.True(t, ok)
		assert.Equal(t, models.ReactionReplace, upd.Action)
		assert.Equal(t, "👍", upd.PreviousReaction)
		m, _ := l.Get("m1")
		assert.Equal(t, []models.Reaction{{UserID: "u1@x", Symbol: "🎉"}}, m.Reactions)
	})
}

func TestApplyReactionUpdate(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("server reactions array wins wholesale", func(t *testing.T) {
		l := chatlog.New()
		l.Append(msg("m1", "u2@x", "general", "hi", ts))
		l.ToggleReaction("m1", "u1@x", "👍")

		ok := l.ApplyReactionUpdate(models.ReactionUpdate{
			MessageID: "m1",
			Reactions: []models.Reaction{{UserID: "u3@x", Symbol: "🎉"}},
		})
		require.True(t, ok)
		m, _ := l.Get("m1")
		assert.Equal(t, []models.Reaction{{UserID: "u3@x", Symbol: "🎉"}}, m.Reactions)
	})

	t.Run("action applied optimistically", func(t *testing.T) {
		l := chatlog.New()
		l.Append(msg("m1", "u2@x", "general", "hi", ts))

		require.True(t, l.ApplyReactionUpdate(models.ReactionUpdate{
			MessageID: "m1",
			UserID:    "u3@x",
			Reaction:  "👍",
			Action:    models.ReactionAdd,
		}))
		require.True(t, l.ApplyReactionUpdate(models.ReactionUpdate{
			MessageID: "m1",
			UserID:    "u3@x",
			Reaction:  "🎉",
			Action:    models.ReactionReplace,
		}))
		m, _ := l.Get("m1")
		assert.Equal(t, []models.Reaction{{UserID: "u3@x", Symbol: "🎉"}}, m.Reactions)
	})
}

func TestApplyPatch(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("delete for everyone replaces content", func(t *testing.T) {
		l := chatlog.New()
		l.Append(msg("m1", "u2@x", "general", "secret", ts))

		deleted := true
		require.True(t, l.ApplyPatch(models.MessageUpdate{
			MessageID: "m1",
			Patch:     models.MessagePatch{Deleted: &deleted},
		}))
		m, _ := l.Get("m1")
		assert.True(t, m.Deleted)
		assert.Equal(t, models.DeletedPlaceholder, m.Content)
	})

	t.Run("delete for me accumulates users", func(t *testing.T) {
		l := chatlog.New()
		l.Append(msg("m1", "u2@x", "general", "hi", ts))

		patch := models.MessagePatch{DeletedFor: []string{"u1@x"}}
		require.True(t, l.ApplyPatch(models.MessageUpdate{MessageID: "m1", Patch: patch}))
		require.True(t, l.ApplyPatch(models.MessageUpdate{MessageID: "m1", Patch: patch}))
		m, _ := l.Get("m1")
		assert.Equal(t, []string{"u1@x"}, m.DeletedFor)
		assert.False(t, m.Deleted)
	})

	t.Run("unknown message", func(t *testing.T) {
		l := chatlog.New()
		assert.False(t, l.ApplyPatch(models.MessageUpdate{MessageID: "nope"}))
	})
}

// Package chatlog keeps the session's in-memory message log. It owns the
// dedup, optimistic-replace and chronological-merge rules; it never talks to
// the network. State is rebuilt from missed messages and history fetches on
// reconnect.
package chatlog

import (
	"sort"
	"sync"

	"github.com/worklane/portal-realtime/internal/models"
)

type Log struct {
	mu   sync.Mutex
	msgs []models.Message
}

func New() *Log {
	return &Log{}
}

// Append adds a message unless it is already present. It reports whether the
// message was actually added.
func (l *Log) Append(msg models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexOf(msg) >= 0 {
		return false
	}
	l.msgs = append(l.msgs, msg)
	return true
}

// ConfirmOptimistic replaces a pending optimistic message with its
// server-confirmed counterpart, in place, keyed by sender, recipient and
// content. It reports whether a replacement happened.
func (l *Log) ConfirmOptimistic(confirmed models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.msgs {
		if m.IsOptimistic() &&
			m.SenderID == confirmed.SenderID &&
			m.RecipientID == confirmed.RecipientID &&
			m.Content == confirmed.Content {
			l.msgs[i] = confirmed
			return true
		}
	}
	return false
}

// Merge folds a missed-message batch (or a history fetch) into the log,
// skipping duplicates, then restores chronological order: missed messages may
// interleave with messages already received live. Returns how many messages
// were new.
func (l *Log) Merge(batch []models.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, m := range batch {
		if l.indexOf(m) >= 0 {
			continue
		}
		l.msgs = append(l.msgs, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(l.msgs, func(i, j int) bool {
			return l.msgs[i].Timestamp.Before(l.msgs[j].Timestamp)
		})
	}
	return added
}

// ToggleReaction computes and applies the local effect of the current user
// reacting on a message: a repeated symbol removes the reaction, a different
// symbol replaces the previous one. It returns the update to send to the
// server; ok is false when the message is unknown.
func (l *Log) ToggleReaction(messageID, userID, symbol string) (upd models.ReactionUpdate, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOfID(messageID)
	if i < 0 {
		return models.ReactionUpdate{}, false
	}

	upd = models.ReactionUpdate{
		Type:      models.TypeReactionUpdate,
		MessageID: messageID,
		UserID:    userID,
		Reaction:  symbol,
		Action:    models.ReactionAdd,
	}
	for _, r := range l.msgs[i].Reactions {
		if r.UserID != userID {
			continue
		}
		if r.Symbol == symbol {
			upd.Action = models.ReactionRemove
		} else {
			upd.Action = models.ReactionReplace
			upd.PreviousReaction = r.Symbol
		}
		break
	}
	l.applyReactionAction(i, upd)
	return upd, true
}

// ApplyReactionUpdate applies an inbound reaction envelope. When the server
// sends a computed reactions array it wins wholesale; otherwise the single
// action is applied optimistically. Reports whether the message was found.
func (l *Log) ApplyReactionUpdate(upd models.ReactionUpdate) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOfID(upd.MessageID)
	if i < 0 {
		return false
	}
	if upd.Reactions != nil {
		l.msgs[i].Reactions = append([]models.Reaction(nil), upd.Reactions...)
		return true
	}
	l.applyReactionAction(i, upd)
	return true
}

func (l *Log) applyReactionAction(i int, upd models.ReactionUpdate) {
	reactions := l.msgs[i].Reactions
	switch upd.Action {
	case models.ReactionRemove, models.ReactionReplace:
		kept := reactions[:0]
		for _, r := range reactions {
			if r.UserID != upd.UserID {
				kept = append(kept, r)
			}
		}
		reactions = kept
		if upd.Action == models.ReactionReplace {
			reactions = append(reactions, models.Reaction{UserID: upd.UserID, Symbol: upd.Reaction})
		}
	case models.ReactionAdd:
		for _, r := range reactions {
			if r.UserID == upd.UserID && r.Symbol == upd.Reaction {
				l.msgs[i].Reactions = reactions
				return
			}
		}
		reactions = append(reactions, models.Reaction{UserID: upd.UserID, Symbol: upd.Reaction})
	}
	l.msgs[i].Reactions = reactions
}

// ApplyPatch applies a partial-field update to the message with the given ID.
// A delete-for-everyone patch also swaps the content for the fixed
// placeholder. Reports whether the message was found.
func (l *Log) ApplyPatch(upd models.MessageUpdate) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOfID(upd.MessageID)
	if i < 0 {
		return false
	}
	patch := upd.Patch
	if patch.Content != nil {
		l.msgs[i].Content = *patch.Content
	}
	if patch.Deleted != nil {
		l.msgs[i].Deleted = *patch.Deleted
		if *patch.Deleted {
			l.msgs[i].Content = models.DeletedPlaceholder
		}
	}
	for _, user := range patch.DeletedFor {
		if !contains(l.msgs[i].DeletedFor, user) {
			l.msgs[i].DeletedFor = append(l.msgs[i].DeletedFor, user)
		}
	}
	return true
}

// Get returns the message with the given ID.
func (l *Log) Get(id string) (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOfID(id); i >= 0 {
		return l.msgs[i], true
	}
	return models.Message{}, false
}

// Messages returns a copy of the log in its current order.
func (l *Log) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Message(nil), l.msgs...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

// indexOf locates a message by ID, falling back to the
// (content, sender, timestamp) triple while no ID is assigned.
func (l *Log) indexOf(msg models.Message) int {
	for i, m := range l.msgs {
		if msg.ID != "" && m.ID == msg.ID {
			return i
		}
		if msg.ID == "" || m.ID == "" {
			if m.Content == msg.Content && m.SenderID == msg.SenderID && m.Timestamp.Equal(msg.Timestamp) {
				return i
			}
		}
	}
	return -1
}

func (l *Log) indexOfID(id string) int {
	for i, m := range l.msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

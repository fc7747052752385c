package whatsapp

import "sync"

// chatLogCapacity bounds how many messages are remembered per chat. Reports
// only ever look at the most recent window, so older entries can go.
const chatLogCapacity = 50

// chatLog keeps a bounded in-memory history per chat, fed from incoming
// message events and from this server's own sends. whatsmeow has no history
// query, so this is the only source reports can read from.
type chatLog struct {
	mu    sync.RWMutex
	chats map[string][]ChatMessage
}

func newChatLog() *chatLog {
	return &chatLog{chats: make(map[string][]ChatMessage)}
}

func (l *chatLog) Record(msg ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.chats[msg.Chat], msg)
	if len(entries) > chatLogCapacity {
		entries = entries[len(entries)-chatLogCapacity:]
	}
	l.chats[msg.Chat] = entries
}

// MarkRead stamps the read time onto our own messages named in a read
// receipt and bumps their ack to read.
func (l *chatLog) MarkRead(chat string, ids []string, ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	read := make(map[string]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}
	entries := l.chats[chat]
	for i := range entries {
		if entries[i].FromMe && read[entries[i].ID] {
			entries[i].ReadTimestamp = ts
			entries[i].Ack = ackRead
		}
	}
}

// Ack levels as the wire reports them: 1 sent, 2 delivered, 3 read.
const ackRead = 3

// Recent returns up to limit messages for a chat, oldest first.
func (l *chatLog) Recent(chat string, limit int) []ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.chats[chat]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]ChatMessage, len(entries))
	copy(out, entries)
	return out
}

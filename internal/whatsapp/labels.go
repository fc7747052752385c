package whatsapp

import (
	"sort"
	"sync"
)

// labelIndex mirrors the business-label state pushed through app state sync.
// WhatsApp never lets clients query labels directly; the server replays edit
// and association events after connect and this index keeps the result.
type labelIndex struct {
	mu     sync.RWMutex
	labels map[string]Label
	// chats maps labelID -> set of chat JIDs carrying that label.
	chats map[string]map[string]struct{}
}

func newLabelIndex() *labelIndex {
	return &labelIndex{
		labels: make(map[string]Label),
		chats:  make(map[string]map[string]struct{}),
	}
}

func (ix *labelIndex) Upsert(id, name string, color int32, deleted bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if deleted {
		delete(ix.labels, id)
		delete(ix.chats, id)
		return
	}
	ix.labels[id] = Label{ID: id, Name: name, Color: color}
}

func (ix *labelIndex) Associate(labelID, chatJID string, labeled bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !labeled {
		if set, ok := ix.chats[labelID]; ok {
			delete(set, chatJID)
		}
		return
	}
	set, ok := ix.chats[labelID]
	if !ok {
		set = make(map[string]struct{})
		ix.chats[labelID] = set
	}
	set[chatJID] = struct{}{}
}

func (ix *labelIndex) All() []Label {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Label, 0, len(ix.labels))
	for _, l := range ix.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (ix *labelIndex) Chats(labelID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set := ix.chats[labelID]
	out := make([]string, 0, len(set))
	for jid := range set {
		out = append(out, jid)
	}
	sort.Strings(out)
	return out
}

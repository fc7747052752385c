package service

import (
	"context"
	"fmt"

	"github.com/Mauryln/testingserver/internal/helper"
	"github.com/Mauryln/testingserver/internal/model"
	"github.com/Mauryln/testingserver/internal/whatsapp"
)

// Query answers the read-only endpoints. Every method requires a ready
// session and otherwise delegates straight to the client.
type Query struct {
	registry *Registry
}

func NewQuery(registry *Registry) *Query {
	return &Query{registry: registry}
}

func (q *Query) Groups(ctx context.Context, userID string) ([]whatsapp.Group, error) {
	client, err := q.registry.ReadyClient(userID)
	if err != nil {
		return nil, err
	}
	return client.Groups(ctx)
}

// GroupParticipant augments the raw participant with phone-looking strings
// mined from the display name. Contact names sometimes hold the real number
// when the JID hides it; the extraction is heuristic and may be empty.
type GroupParticipant struct {
	whatsapp.Participant
	PhoneCandidates []string `json:"phoneCandidates,omitempty"`
}

func (q *Query) GroupParticipants(ctx context.Context, userID, groupID string) ([]GroupParticipant, error) {
	client, err := q.registry.ReadyClient(userID)
	if err != nil {
		return nil, err
	}
	participants, err := client.GroupParticipants(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupParticipant, 0, len(participants))
	for _, p := range participants {
		out = append(out, GroupParticipant{
			Participant:     p,
			PhoneCandidates: helper.ExtractPhoneCandidates(p.DisplayName),
		})
	}
	return out, nil
}

func (q *Query) Labels(ctx context.Context, userID string) ([]whatsapp.Label, error) {
	client, err := q.registry.ReadyClient(userID)
	if err != nil {
		return nil, err
	}
	return client.Labels(ctx)
}

// LabelChats returns the phone numbers of the chats carrying a label.
func (q *Query) LabelChats(ctx context.Context, userID, labelID string) ([]string, error) {
	client, err := q.registry.ReadyClient(userID)
	if err != nil {
		return nil, err
	}
	chats, err := client.LabelChats(ctx, labelID)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(chats))
	for _, chat := range chats {
		numbers = append(numbers, helper.ExtractPhoneFromJID(chat))
	}
	return numbers, nil
}

// reportWindow is how far back each chat's history is inspected.
const reportWindow = 50

// Report walks every chat under a label and pairs each sent message with the
// first reply that arrived after it. The pairing is heuristic: it assumes a
// reply answers the latest unanswered outgoing message.
func (q *Query) Report(ctx context.Context, userID, labelID string) ([]model.ReportEntry, error) {
	client, err := q.registry.ReadyClient(userID)
	if err != nil {
		return nil, err
	}
	chats, err := client.LabelChats(ctx, labelID)
	if err != nil {
		return nil, err
	}

	var entries []model.ReportEntry
	for _, chat := range chats {
		msgs, err := client.ChatMessages(ctx, chat, reportWindow)
		if err != nil {
			return nil, fmt.Errorf("messages for %s: %w", chat, err)
		}
		entries = append(entries, pairMessages(helper.ExtractPhoneFromJID(chat), msgs)...)
	}
	return entries, nil
}

// pairMessages expects msgs ordered oldest first, the order chat logs keep.
func pairMessages(number string, msgs []whatsapp.ChatMessage) []model.ReportEntry {
	var entries []model.ReportEntry
	for i, msg := range msgs {
		if !msg.FromMe {
			continue
		}
		entry := model.ReportEntry{
			Number:        number,
			Body:          msg.Body,
			Timestamp:     msg.Timestamp,
			Ack:           msg.Ack,
			ReadTimestamp: msg.ReadTimestamp,
		}
		for _, reply := range msgs[i+1:] {
			if !reply.FromMe && reply.Timestamp > msg.Timestamp {
				entry.Response = reply.Body
				entry.ResponseTimestamp = reply.Timestamp
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

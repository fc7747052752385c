package whatsapp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/Mauryln/testingserver/internal/helper"
)

// meowClient adapts one whatsmeow client to the Client surface. All state it
// keeps beyond the library's own (label index, chat log) is per session and
// dies with it.
type meowClient struct {
	userID string
	cli    *whatsmeow.Client
	ev     Events

	labels *labelIndex
	log    *chatLog
}

func newMeowClient(userID string, device *store.Device, ev Events) *meowClient {
	tag := userID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	m := &meowClient{
		userID: userID,
		cli:    whatsmeow.NewClient(device, waLog.Stdout("WA-"+tag, "WARN", true)),
		ev:     ev,
		labels: newLabelIndex(),
		log:    newChatLog(),
	}
	m.cli.AddEventHandler(m.handleEvent)
	return m
}

func (m *meowClient) handleEvent(raw interface{}) {
	switch evt := raw.(type) {
	case *events.Connected:
		if m.cli.Store.ID != nil && m.ev.Authenticated != nil {
			m.ev.Authenticated()
		}
	case *events.PairSuccess:
		log.Printf("✓ device paired for %s (%s)", m.userID, evt.ID.User)
	case *events.LoggedOut:
		if m.ev.AuthFailure != nil {
			m.ev.AuthFailure(fmt.Sprintf("logged out by server (reason %d)", evt.Reason))
		}
	case *events.StreamReplaced:
		if m.ev.AuthFailure != nil {
			m.ev.AuthFailure("connection taken over by another client")
		}
	case *events.Disconnected:
		// whatsmeow reconnects on its own; Connected fires again when it
		// gets through.
		if m.ev.Disconnected != nil {
			m.ev.Disconnected()
		}
	case *events.Receipt:
		if evt.Type == types.ReceiptTypeRead || evt.Type == types.ReceiptTypeReadSelf {
			m.log.MarkRead(evt.Chat.String(), evt.MessageIDs, evt.Timestamp.Unix())
		}
	case *events.Message:
		m.recordIncoming(evt)
	case *events.LabelEdit:
		m.labels.Upsert(evt.LabelID, evt.Action.GetName(), evt.Action.GetColor(), evt.Action.GetDeleted())
	case *events.LabelAssociationChat:
		m.labels.Associate(evt.LabelID, evt.JID.String(), evt.Action.GetLabeled())
	}
}

func (m *meowClient) recordIncoming(evt *events.Message) {
	body := evt.Message.GetConversation()
	if body == "" {
		body = evt.Message.GetExtendedTextMessage().GetText()
	}
	if body == "" {
		return
	}
	m.log.Record(ChatMessage{
		ID:        evt.Info.ID,
		Chat:      evt.Info.Chat.String(),
		Body:      body,
		FromMe:    evt.Info.IsFromMe,
		Timestamp: evt.Info.Timestamp.Unix(),
	})
}

// StartLogin connects and, when no stored credentials exist, pumps QR codes
// to the session callbacks until one is scanned or the login window closes.
// ctx only bounds the QR flow; the connection itself outlives it.
func (m *meowClient) StartLogin(ctx context.Context) error {
	if m.cli.Store.ID != nil {
		return m.cli.Connect()
	}

	qrChan, err := m.cli.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := m.cli.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				if m.ev.QRCode != nil {
					m.ev.QRCode(evt.Code)
				}
			case "success":
				// Authenticated fires from the Connected event.
			case "timeout":
				if m.ev.AuthFailure != nil {
					m.ev.AuthFailure("qr scan window expired")
				}
			default:
				if m.ev.AuthFailure != nil {
					m.ev.AuthFailure("login failed: " + evt.Event)
				}
			}
		}
	}()
	return nil
}

func recipientJID(number string) types.JID {
	return types.NewJID(number, types.DefaultUserServer)
}

func (m *meowClient) SendText(ctx context.Context, number, body string) error {
	jid := recipientJID(number)
	resp, err := m.cli.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return err
	}
	m.recordOwn(jid, resp, body)
	return nil
}

func (m *meowClient) SendMedia(ctx context.Context, number string, media Media, caption string) error {
	jid := recipientJID(number)

	mediaType := whatsmeow.MediaDocument
	if isImageMime(media.MimeType) {
		mediaType = whatsmeow.MediaImage
	}
	uploaded, err := m.cli.Upload(ctx, media.Data, mediaType)
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}

	mime := media.MimeType
	if mime == "" {
		mime = http.DetectContentType(media.Data)
	}

	var msg *waE2E.Message
	if mediaType == whatsmeow.MediaImage {
		thumb, err := helper.BuildJPEGThumbnail(media.Data, mime)
		if err != nil {
			log.Printf("⚠ thumbnail for %s failed: %v", m.userID, err)
		}
		msg = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mime),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(media.Data))),
			JPEGThumbnail: thumb,
		}}
	} else {
		msg = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       proto.String(caption),
			FileName:      proto.String(media.Filename),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mime),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(media.Data))),
		}}
	}

	resp, err := m.cli.SendMessage(ctx, jid, msg)
	if err != nil {
		return err
	}
	m.recordOwn(jid, resp, caption)
	return nil
}

func (m *meowClient) recordOwn(jid types.JID, resp whatsmeow.SendResponse, body string) {
	id := resp.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := resp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	m.log.Record(ChatMessage{
		ID:        id,
		Chat:      jid.String(),
		Body:      body,
		FromMe:    true,
		Timestamp: ts.Unix(),
		Ack:       1,
	})
}

func isImageMime(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

func (m *meowClient) Groups(ctx context.Context) ([]Group, error) {
	groups, err := m.cli.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group{
			ID:           g.JID.String(),
			Name:         g.Name,
			Participants: len(g.Participants),
		})
	}
	return out, nil
}

func (m *meowClient) GroupParticipants(ctx context.Context, groupID string) ([]Participant, error) {
	jid, err := types.ParseJID(groupID)
	if err != nil {
		return nil, fmt.Errorf("parse group id: %w", err)
	}
	info, err := m.cli.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("group info: %w", err)
	}
	out := make([]Participant, 0, len(info.Participants))
	for _, p := range info.Participants {
		name := ""
		if contact, err := m.cli.Store.Contacts.GetContact(ctx, p.JID); err == nil {
			name = contact.FullName
			if name == "" {
				name = contact.PushName
			}
		}
		out = append(out, Participant{
			JID:         p.JID.String(),
			Phone:       p.JID.User,
			DisplayName: name,
			IsAdmin:     p.IsAdmin || p.IsSuperAdmin,
		})
	}
	return out, nil
}

func (m *meowClient) Labels(ctx context.Context) ([]Label, error) {
	return m.labels.All(), nil
}

func (m *meowClient) LabelChats(ctx context.Context, labelID string) ([]string, error) {
	return m.labels.Chats(labelID), nil
}

func (m *meowClient) ChatMessages(ctx context.Context, chat string, limit int) ([]ChatMessage, error) {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return nil, fmt.Errorf("parse chat id: %w", err)
	}
	return m.log.Recent(jid.String(), limit), nil
}

func (m *meowClient) Logout(ctx context.Context) error {
	return m.cli.Logout(ctx)
}

func (m *meowClient) Disconnect() {
	m.cli.Disconnect()
}

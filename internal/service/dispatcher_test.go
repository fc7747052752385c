package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mauryln/testingserver/internal/whatsapp"
)

func newTestDispatcher(t *testing.T, delayAfterLast bool) (*Dispatcher, *fakeClient) {
	t.Helper()
	r, factory := newTestRegistry(t)
	client := startReady(t, r, factory, "alice")

	d := NewDispatcher(r, nil, delayAfterLast)
	return d, client
}

func TestSendBulkResultsMatchRecipients(t *testing.T) {
	d, client := newTestDispatcher(t, false)

	numbers := []string{"+591 7111-1111", "59172222222", "59173333333"}
	report, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: numbers,
		Bodies:  []string{"hola", "segunda", "hola"},
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}

	if len(report.Results) != len(numbers) {
		t.Fatalf("len(results) = %d, want %d", len(report.Results), len(numbers))
	}
	for i, result := range report.Results {
		if result.Number != numbers[i] {
			t.Errorf("results[%d].Number = %q, want submitted form %q", i, result.Number, numbers[i])
		}
		if !result.Success {
			t.Errorf("results[%d] failed: %s", i, result.Error)
		}
	}
	if report.Summary.Total != 3 || report.Summary.Enviados != 3 || report.Summary.Fallidos != 0 {
		t.Fatalf("summary = %+v, want total=3 enviados=3 fallidos=0", report.Summary)
	}

	// Sends use the normalized digit form.
	if len(client.sentTexts) != 3 {
		t.Fatalf("sent %d texts, want 3", len(client.sentTexts))
	}
	if client.sentTexts[0].number != "59171111111" {
		t.Errorf("first send went to %q, want 59171111111", client.sentTexts[0].number)
	}
}

func TestSendBulkBodyPerRecipient(t *testing.T) {
	d, client := newTestDispatcher(t, false)

	// Bodies pair up with recipients by index; a recipient past the end of
	// the list simply gets nothing.
	report, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111", "59172222222", "59173333333"},
		Bodies:  []string{"hi", "yo"},
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if report.Summary.Enviados != 3 {
		t.Fatalf("summary = %+v, want enviados=3", report.Summary)
	}

	want := []sentText{
		{"59171111111", "hi"},
		{"59172222222", "yo"},
	}
	if len(client.sentTexts) != len(want) {
		t.Fatalf("sentTexts = %+v, want %+v", client.sentTexts, want)
	}
	for i := range want {
		if client.sentTexts[i] != want[i] {
			t.Errorf("sentTexts[%d] = %+v, want %+v", i, client.sentTexts[i], want[i])
		}
	}
}

func TestSendBulkIsolatesFailures(t *testing.T) {
	d, client := newTestDispatcher(t, false)
	client.failFor = map[string]error{"59172222222": errors.New("recipient unavailable")}

	numbers := []string{"59171111111", "59172222222", "59173333333"}
	report, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: numbers,
		Bodies:  []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}

	if report.Summary.Enviados != 2 || report.Summary.Fallidos != 1 {
		t.Fatalf("summary = %+v, want enviados=2 fallidos=1", report.Summary)
	}
	if report.Summary.Enviados+report.Summary.Fallidos != report.Summary.Total {
		t.Fatalf("enviados+fallidos != total: %+v", report.Summary)
	}
	if report.Results[1].Success || report.Results[1].Error == "" {
		t.Fatalf("results[1] = %+v, want failure with error text", report.Results[1])
	}
	// The failure did not stop the third recipient.
	if !report.Results[2].Success {
		t.Fatalf("results[2] = %+v, want success", report.Results[2])
	}
}

func TestSendBulkInvalidNumberIsIsolatedToo(t *testing.T) {
	d, _ := newTestDispatcher(t, false)

	report, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"no-digits-here", "59171111111"},
		Bodies:  []string{"x", "y"},
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if report.Results[0].Success {
		t.Fatal("results[0] should fail on an undigitable number")
	}
	if !report.Results[1].Success {
		t.Fatalf("results[1] = %+v, want success", report.Results[1])
	}
}

func TestSendBulkDelayBetweenRecipients(t *testing.T) {
	d, _ := newTestDispatcher(t, false)

	var slept []time.Duration
	d.sleep = func(dur time.Duration) { slept = append(slept, dur) }

	_, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111", "59172222222", "59173333333"},
		Bodies:  []string{"a", "b", "c"},
		Delay:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	// No pause after the final recipient by default.
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(slept))
	}
	for _, dur := range slept {
		if dur != 2*time.Second {
			t.Fatalf("slept %v, want 2s", dur)
		}
	}
}

func TestSendBulkDelayAfterLast(t *testing.T) {
	d, _ := newTestDispatcher(t, true)

	var slept []time.Duration
	d.sleep = func(dur time.Duration) { slept = append(slept, dur) }

	_, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111", "59172222222"},
		Bodies:  []string{"a", "b"},
		Delay:   time.Second,
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2 (including after last)", len(slept))
	}
}

func TestSendBulkMediaWithCaption(t *testing.T) {
	d, client := newTestDispatcher(t, false)

	media := &whatsapp.Media{Data: []byte("fake"), MimeType: "image/png", Filename: "promo.png"}
	report, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111", "59172222222"},
		Bodies:  []string{"caption text"},
		Media:   media,
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if report.Summary.Enviados != 2 {
		t.Fatalf("summary = %+v, want enviados=2", report.Summary)
	}

	// The body rides along as the caption; a recipient without a body
	// still gets the media, just captionless.
	if len(client.sentMedia) != 2 {
		t.Fatalf("sentMedia = %+v, want two sends", client.sentMedia)
	}
	if client.sentMedia[0].caption != "caption text" || client.sentMedia[1].caption != "" {
		t.Fatalf("captions = %q/%q, want 'caption text' then empty", client.sentMedia[0].caption, client.sentMedia[1].caption)
	}
	if len(client.sentTexts) != 0 {
		t.Fatalf("sentTexts = %+v, want none", client.sentTexts)
	}
}

func TestSendBulkMediaWithoutMessages(t *testing.T) {
	d, client := newTestDispatcher(t, false)

	_, err := d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111"},
		Media:   &whatsapp.Media{Data: []byte("fake"), MimeType: "application/pdf", Filename: "doc.pdf"},
	})
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if len(client.sentMedia) != 1 || client.sentMedia[0].caption != "" {
		t.Fatalf("sentMedia = %+v, want one captionless send", client.sentMedia)
	}
}

func TestSendBulkPreconditions(t *testing.T) {
	r, factory := newTestRegistry(t)
	d := NewDispatcher(r, nil, false)

	// No session at all.
	_, err := d.SendBulk(context.Background(), BulkRequest{UserID: "ghost", Numbers: []string{"591"}})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	// Session exists but is not authenticated.
	if err := r.StartSession(context.Background(), "alice"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	_, err = d.SendBulk(context.Background(), BulkRequest{UserID: "alice", Numbers: []string{"591"}})
	if !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("err = %v, want ErrSessionNotReady", err)
	}

	factory.client(t, "alice").ev.Authenticated()

	_, err = d.SendBulk(context.Background(), BulkRequest{UserID: "alice"})
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("err = %v, want ErrNoRecipients", err)
	}

	_, err = d.SendBulk(context.Background(), BulkRequest{
		UserID:  "alice",
		Numbers: []string{"59171111111"},
		Bodies:  []string{""},
	})
	if !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("err = %v, want ErrNothingToSend", err)
	}
}

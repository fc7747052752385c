package service

import (
	"context"
	"log"
	"time"

	"github.com/Mauryln/testingserver/internal/helper"
	"github.com/Mauryln/testingserver/internal/model"
	"github.com/Mauryln/testingserver/internal/whatsapp"
	"github.com/Mauryln/testingserver/internal/ws"
)

// BulkRequest is one send-messages job. Bodies is index-paired with Numbers:
// Bodies[i] is recipient i's message, missing indexes mean no text. Media,
// when set, is shared by every recipient.
type BulkRequest struct {
	UserID  string
	Numbers []string
	Bodies  []string
	Media   *whatsapp.Media
	Delay   time.Duration
}

// Dispatcher runs bulk jobs strictly sequentially per call: one recipient at
// a time, a pause between recipients, and per-recipient error isolation so a
// bad number never aborts the rest.
type Dispatcher struct {
	registry *Registry
	realtime ws.RealtimePublisher

	// delayAfterLast also pauses after the final recipient, for callers
	// that chain jobs back to back.
	delayAfterLast bool

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewDispatcher(registry *Registry, realtime ws.RealtimePublisher, delayAfterLast bool) *Dispatcher {
	return &Dispatcher{
		registry:       registry,
		realtime:       realtime,
		delayAfterLast: delayAfterLast,
		sleep:          time.Sleep,
	}
}

// SendBulk validates the job, then works through the recipients in the order
// given. Results carry each number exactly as submitted.
func (d *Dispatcher) SendBulk(ctx context.Context, req BulkRequest) (*model.BulkReport, error) {
	client, err := d.registry.ReadyClient(req.UserID)
	if err != nil {
		return nil, err
	}
	if len(req.Numbers) == 0 {
		return nil, ErrNoRecipients
	}
	if req.Media == nil && !hasAnyBody(req.Bodies) {
		return nil, ErrNothingToSend
	}

	report := &model.BulkReport{
		Summary: model.BulkSummary{Total: len(req.Numbers)},
		Results: make([]model.SendResult, 0, len(req.Numbers)),
	}

	for i, raw := range req.Numbers {
		body := ""
		if i < len(req.Bodies) {
			body = req.Bodies[i]
		}
		result := model.SendResult{Number: raw}
		if err := d.sendOne(ctx, client, raw, body, req.Media); err != nil {
			log.Printf("⚠ send to %s failed: %v", raw, err)
			result.Error = err.Error()
			report.Summary.Fallidos++
		} else {
			result.Success = true
			report.Summary.Enviados++
		}
		report.Results = append(report.Results, result)

		d.publishProgress(req.UserID, result, i, len(req.Numbers))

		if req.Delay > 0 && (d.delayAfterLast || i < len(req.Numbers)-1) {
			d.sleep(req.Delay)
		}
	}

	log.Printf("✓ bulk job for %s done: %d sent, %d failed",
		req.UserID, report.Summary.Enviados, report.Summary.Fallidos)
	return report, nil
}

// sendOne delivers one recipient's share of the job: media with the body as
// caption when both exist, media alone otherwise, or the body as a plain
// text. An empty body without media sends nothing.
func (d *Dispatcher) sendOne(ctx context.Context, client whatsapp.Client, raw, body string, media *whatsapp.Media) error {
	number, err := helper.NormalizeRecipient(raw)
	if err != nil {
		return err
	}

	switch {
	case media != nil:
		return client.SendMedia(ctx, number, *media, body)
	case body != "":
		return client.SendText(ctx, number, body)
	}
	return nil
}

func hasAnyBody(bodies []string) bool {
	for _, b := range bodies {
		if b != "" {
			return true
		}
	}
	return false
}

func (d *Dispatcher) publishProgress(userID string, result model.SendResult, index, total int) {
	if d.realtime == nil {
		return
	}
	d.realtime.Publish(ws.WsEvent{
		Event:     ws.EventBulkProgress,
		UserID:    userID,
		Timestamp: time.Now(),
		Data: ws.BulkProgressData{
			UserID:  userID,
			Number:  result.Number,
			Index:   index,
			Total:   total,
			Success: result.Success,
			Error:   result.Error,
		},
	})
}

package stub

import (
	"context"
	"strings"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/transport"
)

// eventStream numbers events from 0 and stops at the first write error or
// when ctx is done.
type eventStream struct {
	ctx   context.Context
	w     transport.ResponseWriter
	seq   int
	delay time.Duration
}

func (s *eventStream) emit(ev api.StreamEvent) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	ev.Base().SequenceNumber = s.seq
	s.seq++
	return s.w.WriteEvent(s.ctx, ev)
}

func (s *eventStream) pause() error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-t.C:
		return nil
	}
}

// stream writes the lifecycle of resp as events. The response is stored
// before the terminal event goes out.
func (c *Creator) stream(ctx context.Context, req *api.CreateResponsesRequest, resp *api.Response, input, output api.Items,
	status api.ResponseStatus, usage *api.Usage, w transport.ResponseWriter,
) error {
	s := &eventStream{ctx: ctx, w: w, delay: c.cfg.StreamDelay}

	if err := s.emit(&api.ResponseCreatedEvent{ResponsePayload: api.ResponsePayload{Response: snapshot(resp)}}); err != nil {
		return err
	}
	if err := s.emit(&api.ResponseInProgressEvent{ResponsePayload: api.ResponsePayload{Response: snapshot(resp)}}); err != nil {
		return err
	}

	for i, item := range output {
		var err error
		switch it := item.(type) {
		case *api.Message:
			err = s.message(i, it)
		case *api.FunctionCall:
			err = s.functionCall(i, it)
		}
		if err != nil {
			return err
		}
	}

	finish(resp, output, status, usage, c.now())
	if err := c.save(ctx, req, resp, input); err != nil {
		return err
	}

	final := api.ResponsePayload{Response: snapshot(resp)}
	if status == api.ResponseStatusIncomplete {
		return s.emit(&api.ResponseIncompleteEvent{ResponsePayload: final})
	}
	return s.emit(&api.ResponseCompletedEvent{ResponsePayload: final})
}

func (s *eventStream) message(index int, msg *api.Message) error {
	var text string
	if len(msg.Content) > 0 {
		if t, ok := msg.Content[0].(*api.OutputText); ok {
			text = t.Text
		}
	}

	added := &api.Message{
		ItemBase: api.ItemBase{ID: msg.ID, Status: api.ItemStatusInProgress},
		Role:     msg.Role,
		Content:  api.ContentParts{},
	}
	if err := s.emit(&api.OutputItemAddedEvent{OutputItemPayload: api.OutputItemPayload{OutputIndex: index, Item: added}}); err != nil {
		return err
	}

	part := api.ContentPartPayload{ItemID: msg.ID, OutputIndex: index, Part: &api.OutputText{Annotations: api.Annotations{}}}
	if err := s.emit(&api.ContentPartAddedEvent{ContentPartPayload: part}); err != nil {
		return err
	}

	for _, chunk := range strings.SplitAfter(text, " ") {
		if chunk == "" {
			continue
		}
		delta := api.TextDeltaPayload{ItemID: msg.ID, OutputIndex: index, Delta: chunk}
		if err := s.emit(&api.OutputTextDeltaEvent{TextDeltaPayload: delta}); err != nil {
			return err
		}
		if err := s.pause(); err != nil {
			return err
		}
	}

	done := api.TextDonePayload{ItemID: msg.ID, OutputIndex: index, Text: text}
	if err := s.emit(&api.OutputTextDoneEvent{TextDonePayload: done}); err != nil {
		return err
	}
	part.Part = &api.OutputText{Text: text, Annotations: api.Annotations{}}
	if err := s.emit(&api.ContentPartDoneEvent{ContentPartPayload: part}); err != nil {
		return err
	}
	return s.emit(&api.OutputItemDoneEvent{OutputItemPayload: api.OutputItemPayload{OutputIndex: index, Item: msg}})
}

func (s *eventStream) functionCall(index int, fc *api.FunctionCall) error {
	added := &api.FunctionCall{
		ItemBase: api.ItemBase{ID: fc.ID, Status: api.ItemStatusInProgress},
		CallID:   fc.CallID,
		Name:     fc.Name,
	}
	if err := s.emit(&api.OutputItemAddedEvent{OutputItemPayload: api.OutputItemPayload{OutputIndex: index, Item: added}}); err != nil {
		return err
	}

	delta := api.ItemDeltaPayload{ItemID: fc.ID, OutputIndex: index, Delta: fc.Arguments}
	if err := s.emit(&api.FunctionCallArgumentsDeltaEvent{ItemDeltaPayload: delta}); err != nil {
		return err
	}
	done := api.ArgumentsDonePayload{ItemID: fc.ID, OutputIndex: index, Arguments: fc.Arguments}
	if err := s.emit(&api.FunctionCallArgumentsDoneEvent{ArgumentsDonePayload: done}); err != nil {
		return err
	}
	return s.emit(&api.OutputItemDoneEvent{OutputItemPayload: api.OutputItemPayload{OutputIndex: index, Item: fc}})
}

func snapshot(resp *api.Response) *api.Response {
	r := *resp
	return &r
}

package stub

import (
	"context"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/transport"
)

// startBackground stores resp as queued, answers with it right away and
// completes it in a goroutine.
func (c *Creator) startBackground(ctx context.Context, req *api.CreateResponsesRequest, resp *api.Response, input, output api.Items,
	status api.ResponseStatus, usage *api.Usage, w transport.ResponseWriter,
) error {
	if req.IsStreaming() {
		return api.NewInvalidRequestError("stream", "background responses cannot be streamed")
	}
	if c.store == nil || !req.ResolveStore() {
		return api.NewInvalidRequestError("background", "background mode requires store to be enabled")
	}

	resp.Status = api.ResponseStatusQueued
	if err := c.store.SaveResponse(ctx, resp, input); err != nil {
		return err
	}

	// The job outlives the request but keeps its values, the tenant among them.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.background.Register(resp.ID, cancel)

	job := *resp
	c.wg.Add(1)
	go c.runBackground(jobCtx, &job, output, status, usage)

	return w.WriteResponse(ctx, resp)
}

func (c *Creator) runBackground(ctx context.Context, resp *api.Response, output api.Items, status api.ResponseStatus, usage *api.Usage) {
	defer c.wg.Done()
	defer c.background.Cancel(resp.ID)

	if !sleep(ctx, c.cfg.BackgroundDelay) {
		return
	}
	if !c.transition(ctx, resp, func(r *api.Response) { r.Status = api.ResponseStatusInProgress }) {
		return
	}
	if !sleep(ctx, c.cfg.BackgroundDelay) {
		return
	}
	if c.transition(ctx, resp, func(r *api.Response) { finish(r, output, status, usage, c.now()) }) {
		c.logger.Debug("background response finished", "id", resp.ID, "status", resp.Status)
	}
}

// transition applies change and stores the result unless the job has been
// cancelled in the meantime.
func (c *Creator) transition(ctx context.Context, resp *api.Response, change func(*api.Response)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	change(resp)
	if err := c.store.UpdateResponse(ctx, resp); err != nil {
		c.logger.Warn("background response update failed", "id", resp.ID, "error", err)
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

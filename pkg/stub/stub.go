package stub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/rhuss/respkit/pkg/transport"
)

// Config tunes the pacing of the stub.
type Config struct {
	// BackgroundDelay is how long a background response stays queued and
	// then in progress, each.
	BackgroundDelay time.Duration

	// StreamDelay is slept between text deltas.
	StreamDelay time.Duration

	Logger *slog.Logger
}

// Creator implements transport.ResponseCreator and
// transport.ResponseCanceller.
type Creator struct {
	store  transport.ResponseStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// mu orders background completion against cancellation.
	mu         sync.Mutex
	background *transport.InFlightRegistry
	wg         sync.WaitGroup
}

var (
	_ transport.ResponseCreator   = (*Creator)(nil)
	_ transport.ResponseCanceller = (*Creator)(nil)
)

// New creates a Creator. The store may be nil, which disables
// previous_response_id, background mode and persistence.
func New(store transport.ResponseStore, cfg Config) *Creator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{
		store:      store,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		background: transport.NewInFlightRegistry(),
	}
}

// CreateResponse answers req through w.
func (c *Creator) CreateResponse(ctx context.Context, req *api.CreateResponsesRequest, w transport.ResponseWriter) error {
	input := req.Input.AsItems()
	assignIDs(input)

	history, err := c.loadHistory(ctx, req.PreviousResponseID)
	if err != nil {
		return err
	}

	resp := c.newResponse(req)
	output, status, usage := reply(req, input, history)

	switch {
	case req.IsBackground():
		return c.startBackground(ctx, req, resp, input, output, status, usage, w)
	case req.IsStreaming():
		return c.stream(ctx, req, resp, input, output, status, usage, w)
	}

	finish(resp, output, status, usage, c.now())
	if err := c.save(ctx, req, resp, input); err != nil {
		return err
	}
	debug.Log("server", "response created", "id", resp.ID, "status", resp.Status)
	return w.WriteResponse(ctx, resp)
}

// CancelResponse stops a queued or in-progress background response.
// Cancelling an already cancelled response returns it unchanged.
func (c *Creator) CancelResponse(ctx context.Context, id string) (*api.Response, error) {
	if c.store == nil {
		return nil, api.NewNotFoundError("response " + id + " not found")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.store.GetResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Background == nil || !*resp.Background {
		return nil, api.NewInvalidRequestError("id", "only background responses can be cancelled")
	}
	switch resp.Status {
	case api.ResponseStatusCancelled:
		return resp, nil
	case api.ResponseStatusQueued, api.ResponseStatusInProgress:
	default:
		return nil, api.NewInvalidRequestError("id", "cannot cancel a response with status "+resp.Status.String())
	}

	c.background.Cancel(id)
	resp.Status = api.ResponseStatusCancelled
	if err := c.store.UpdateResponse(ctx, resp); err != nil {
		return nil, err
	}
	c.logger.Info("background response cancelled", "id", id)
	return resp, nil
}

// Wait blocks until all background responses have finished.
func (c *Creator) Wait() {
	c.wg.Wait()
}

// loadHistory follows previous_response_id links, oldest response first.
// Deleted responses still count as links in the chain.
func (c *Creator) loadHistory(ctx context.Context, previousID *string) ([]*api.Response, error) {
	if previousID == nil || *previousID == "" {
		return nil, nil
	}
	if c.store == nil {
		return nil, api.NewInvalidRequestError("previous_response_id", "conversation chaining requires a response store")
	}

	var chain []*api.Response
	visited := make(map[string]bool)
	for id := *previousID; id != ""; {
		if visited[id] {
			return nil, api.NewInvalidRequestError("previous_response_id", "cycle detected in response chain")
		}
		visited[id] = true

		resp, err := c.store.GetResponseForChain(ctx, id)
		if err != nil {
			if apiErr := transport.AsAPIError(err); apiErr.Type == api.ErrorTypeNotFound {
				return nil, api.NewNotFoundError("previous response " + id + " not found")
			}
			return nil, err
		}
		chain = append(chain, resp)
		id = ""
		if resp.PreviousResponseID != nil {
			id = *resp.PreviousResponseID
		}
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// newResponse copies the request settings into an in-progress response.
func (c *Creator) newResponse(req *api.CreateResponsesRequest) *api.Response {
	return &api.Response{
		ID:                 api.NewResponseID(),
		Object:             api.ObjectResponse,
		CreatedAt:          c.now().Unix(),
		Status:             api.ResponseStatusInProgress,
		Model:              req.Model,
		Instructions:       req.Instructions,
		PreviousResponseID: req.PreviousResponseID,
		Output:             api.Items{},
		Tools:              req.Tools,
		ToolChoice:         req.ToolChoice,
		ParallelToolCalls:  req.ParallelToolCalls,
		Temperature:        req.Temperature,
		TopP:               req.TopP,
		MaxOutputTokens:    req.MaxOutputTokens,
		Text:               req.Text,
		Reasoning:          req.Reasoning,
		Truncation:         req.Truncation,
		Store:              req.Store,
		Background:         req.Background,
		ServiceTier:        req.ServiceTier,
		Metadata:           req.Metadata,
		User:               req.User,
	}
}

func (c *Creator) save(ctx context.Context, req *api.CreateResponsesRequest, resp *api.Response, input api.Items) error {
	if c.store == nil || !req.ResolveStore() {
		return nil
	}
	return c.store.SaveResponse(ctx, resp, input)
}

// finish moves resp into its final state.
func finish(resp *api.Response, output api.Items, status api.ResponseStatus, usage *api.Usage, now time.Time) {
	resp.Output = output
	resp.Status = status
	resp.Usage = usage
	if status == api.ResponseStatusIncomplete {
		resp.IncompleteDetails = &api.IncompleteDetails{Reason: "max_output_tokens"}
	}
	resp.CompletedAt = api.Ptr(now.Unix())
	observability.ResponsesCreated.WithLabelValues(resp.Model, string(status)).Inc()
}

func assignIDs(items api.Items) {
	for _, it := range items {
		if b := it.Base(); b.ID == "" {
			b.ID = api.NewItemIDFor(it.ItemType())
		}
	}
}

// reply computes the output for req. history is the previous responses,
// oldest first; their output counts towards input tokens.
func reply(req *api.CreateResponsesRequest, input api.Items, history []*api.Response) (api.Items, api.ResponseStatus, *api.Usage) {
	inputTokens := countTokens(req.Instructions)
	for _, prev := range history {
		inputTokens += len(strings.Fields(prev.OutputText()))
	}
	for _, it := range input {
		inputTokens += len(strings.Fields(itemText(it)))
	}

	text := lastUserText(input)
	if text == "" {
		for i := len(history) - 1; i >= 0 && text == ""; i-- {
			text = history[i].OutputText()
		}
	}

	var output api.Items
	status := api.ResponseStatusCompleted
	var outputTokens int

	if out, ok := lastFunctionOutput(input); ok {
		text = out
	} else if name := allowedFunction(req); name != "" {
		args, _ := json.Marshal(map[string]string{"input": text})
		output = api.Items{&api.FunctionCall{
			ItemBase:  api.ItemBase{ID: api.NewItemIDFor(api.ItemTypeFunctionCall), Status: api.ItemStatusCompleted},
			CallID:    api.NewID("call_"),
			Name:      name,
			Arguments: string(args),
		}}
		outputTokens = len(strings.Fields(string(args)))
	}

	if output == nil {
		words := strings.Fields(text)
		if req.MaxOutputTokens != nil && len(words) > *req.MaxOutputTokens {
			words = words[:*req.MaxOutputTokens]
			text = strings.Join(words, " ")
			status = api.ResponseStatusIncomplete
		}
		outputTokens = len(words)
		itemStatus := api.ItemStatusCompleted
		if status == api.ResponseStatusIncomplete {
			itemStatus = api.ItemStatusIncomplete
		}
		output = api.Items{&api.Message{
			ItemBase: api.ItemBase{ID: api.NewItemIDFor(api.ItemTypeMessage), Status: itemStatus},
			Role:     api.RoleAssistant,
			Content:  api.ContentParts{&api.OutputText{Text: text, Annotations: api.Annotations{}}},
		}}
	}

	return output, status, &api.Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
	}
}

// allowedFunction returns the first function tool that tool_choice permits.
func allowedFunction(req *api.CreateResponsesRequest) string {
	choice := api.ToolChoiceAuto
	if req.ToolChoice != nil {
		choice = *req.ToolChoice
	}
	for _, name := range req.Tools.FunctionNames() {
		if choice.Allows(name) {
			return name
		}
	}
	return ""
}

func lastUserText(input api.Items) string {
	for i := len(input) - 1; i >= 0; i-- {
		if m, ok := input[i].(*api.Message); ok && m.Role == api.RoleUser {
			return itemText(m)
		}
	}
	return ""
}

func lastFunctionOutput(input api.Items) (string, bool) {
	if len(input) == 0 {
		return "", false
	}
	out, ok := input[len(input)-1].(*api.FunctionCallOutput)
	if !ok {
		return "", false
	}
	return out.Output, true
}

// itemText joins the text parts of a message, or returns the payload of a
// function call output.
func itemText(it api.Item) string {
	switch v := it.(type) {
	case *api.Message:
		var parts []string
		for _, p := range v.Content {
			switch t := p.(type) {
			case *api.InputText:
				parts = append(parts, t.Text)
			case *api.OutputText:
				parts = append(parts, t.Text)
			}
		}
		return strings.Join(parts, " ")
	case *api.FunctionCallOutput:
		return v.Output
	}
	return ""
}

func countTokens(s *string) int {
	if s == nil {
		return 0
	}
	return len(strings.Fields(*s))
}

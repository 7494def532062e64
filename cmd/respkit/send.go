package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/client"
	"github.com/rhuss/respkit/pkg/config"
)

type sendFlags struct {
	model        string
	instructions string
	previous     string
	maxTokens    int
	stream       bool
	background   bool
	noStore      bool
	raw          bool
}

func newSendCmd(a *app) *cobra.Command {
	var f sendFlags
	cmd := &cobra.Command{
		Use:   "send [flags] <text>...",
		Short: "Create a response and print its output",
		Long: `Send the arguments as one user message to the Responses API at
client.base_url and print the output text. With --stream the text is
printed as it arrives. With --raw the full response, or every stream
event, is printed as JSON instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(a.cfg.Client)
			req := f.request(strings.Join(args, " "))
			if f.stream {
				return sendStreaming(cmd, c, req, f.raw)
			}

			resp, err := c.CreateResponse(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.raw {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printResponse(cmd.OutOrStdout(), cmd.ErrOrStderr(), resp)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "gpt-4o", "model name")
	fl.StringVarP(&f.instructions, "instructions", "i", "", "system instructions")
	fl.StringVarP(&f.previous, "previous", "p", "", "previous_response_id to continue from")
	fl.IntVar(&f.maxTokens, "max-output-tokens", 0, "limit on output tokens (0 for none)")
	fl.BoolVarP(&f.stream, "stream", "s", false, "stream the response")
	fl.BoolVar(&f.background, "background", false, "run the response in the background")
	fl.BoolVar(&f.noStore, "no-store", false, "ask the server not to store the response")
	fl.BoolVar(&f.raw, "raw", false, "print JSON instead of text")
	cmd.MarkFlagsMutuallyExclusive("stream", "background")
	return cmd
}

func (f sendFlags) request(text string) *api.CreateResponsesRequest {
	req := &api.CreateResponsesRequest{
		Model: f.model,
		Input: api.NewInputText(text),
	}
	if f.instructions != "" {
		req.Instructions = &f.instructions
	}
	if f.previous != "" {
		req.PreviousResponseID = &f.previous
	}
	if f.maxTokens > 0 {
		req.MaxOutputTokens = &f.maxTokens
	}
	if f.background {
		req.Background = api.Ptr(true)
	}
	if f.noStore {
		req.Store = api.Ptr(false)
	}
	return req
}

func newClient(cfg config.ClientConfig) *client.Client {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithRetry(client.RetryConfig{
			MaxRetries:  cfg.Retry.MaxRetries,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			JitterDelay: cfg.Retry.Jitter,
		}),
	}
	if cfg.APIKey != "" {
		if cfg.KeyHeader == "api-key" {
			opts = append(opts, client.WithAPIKeyHeader(cfg.APIKey))
		} else {
			opts = append(opts, client.WithAPIKey(cfg.APIKey))
		}
	}
	if cfg.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.UserAgent))
	}
	if cb := cfg.CircuitBreaker; cb.Enabled {
		bc := client.DefaultBreakerConfig("respkit")
		bc.FailureThreshold = cb.FailureThreshold
		bc.Timeout = cb.Timeout
		opts = append(opts, client.WithCircuitBreaker(bc))
	}
	return client.New(cfg.BaseURL, opts...)
}

func sendStreaming(cmd *cobra.Command, c *client.Client, req *api.CreateResponsesRequest, raw bool) error {
	stream, err := c.CreateResponseStream(cmd.Context(), req)
	if err != nil {
		return err
	}
	defer stream.Close()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	for stream.Next() {
		ev := stream.Event()
		if raw {
			if err := json.NewEncoder(out).Encode(ev); err != nil {
				return err
			}
			continue
		}
		switch ev := ev.(type) {
		case *api.OutputTextDeltaEvent:
			fmt.Fprint(out, ev.Delta)
		case *api.FunctionCallArgumentsDoneEvent:
			fmt.Fprintf(out, "function call arguments: %s", ev.Arguments)
		case *api.ResponseCompletedEvent:
			fmt.Fprintln(out)
			fmt.Fprintf(errOut, "response %s %s\n", ev.Response.ID, ev.Response.Status)
		case *api.ResponseIncompleteEvent:
			fmt.Fprintln(out)
			fmt.Fprintf(errOut, "response %s incomplete\n", ev.Response.ID)
		case *api.ErrorEvent:
			return fmt.Errorf("stream error: %s", ev.Message)
		}
	}
	return stream.Err()
}

func printResponse(out, errOut io.Writer, resp *api.Response) {
	if text := resp.OutputText(); text != "" {
		fmt.Fprintln(out, text)
	}
	for _, fc := range resp.FunctionCalls() {
		fmt.Fprintf(out, "function call %s(%s) [%s]\n", fc.Name, fc.Arguments, fc.CallID)
	}
	fmt.Fprintf(errOut, "response %s %s\n", resp.ID, resp.Status)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rhuss/respkit/pkg/api"
)

// recordingWriter is a minimal ResponseWriter for testing middleware.
type recordingWriter struct {
	events   []api.StreamEvent
	response *api.Response
}

func (w *recordingWriter) WriteEvent(_ context.Context, event api.StreamEvent) error {
	w.events = append(w.events, event)
	return nil
}

func (w *recordingWriter) WriteResponse(_ context.Context, resp *api.Response) error {
	w.response = resp
	return nil
}

func (w *recordingWriter) Flush() error { return nil }

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next ResponseCreator) ResponseCreator {
			return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
				order = append(order, name+":before")
				err := next.CreateResponse(ctx, req, w)
				order = append(order, name+":after")
				return err
			})
		}
	}
	handler := ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
		order = append(order, "handler")
		return nil
	})

	Chain(mw("first"), mw("second"))(handler).CreateResponse(context.Background(), &api.CreateResponsesRequest{}, &recordingWriter{})

	want := []string{"first:before", "second:before", "handler", "second:after", "first:after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
		panic("test panic")
	})

	err := Recovery()(handler).CreateResponse(context.Background(), &api.CreateResponsesRequest{}, &recordingWriter{})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRequestID(t *testing.T) {
	var captured []string
	handler := ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
		captured = append(captured, RequestIDFromContext(ctx))
		return nil
	})
	wrapped := RequestID()(handler)

	wrapped.CreateResponse(context.Background(), &api.CreateResponsesRequest{}, &recordingWriter{})
	wrapped.CreateResponse(context.Background(), &api.CreateResponsesRequest{}, &recordingWriter{})
	wrapped.CreateResponse(ContextWithRequestID(context.Background(), "existing-id"), &api.CreateResponsesRequest{}, &recordingWriter{})

	if !strings.HasPrefix(captured[0], "req_") || captured[0] == captured[1] {
		t.Errorf("generated IDs = %q, %q", captured[0], captured[1])
	}
	if captured[2] != "existing-id" {
		t.Errorf("propagated ID = %q", captured[2])
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    []string
		reqOpts func(*api.CreateResponsesRequest)
	}{
		{
			name: "success",
			want: []string{"level=INFO", "request_id=req-log-test", "model=test-model", "stream=true", `msg="response created"`},
			reqOpts: func(r *api.CreateResponsesRequest) {
				r.Stream = api.Ptr(true)
			},
		},
		{
			name: "rejected",
			err:  api.NewInvalidRequestError("model", "model is required"),
			want: []string{"level=WARN", `msg="response rejected"`, "error_type=invalid_request_error"},
		},
		{
			name: "failure",
			err:  api.NewServerError("test failure"),
			want: []string{"level=ERROR", `msg="response failed"`, `error="test failure"`, "background=false", "previous_response_id=resp_prev"},
			reqOpts: func(r *api.CreateResponsesRequest) {
				r.PreviousResponseID = api.Ptr("resp_prev")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			handler := ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
				return tt.err
			})
			req := &api.CreateResponsesRequest{Model: "test-model"}
			if tt.reqOpts != nil {
				tt.reqOpts(req)
			}
			ctx := ContextWithRequestID(context.Background(), "req-log-test")
			Logging(logger)(handler).CreateResponse(ctx, req, &recordingWriter{})

			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("log output missing %q in:\n%s", w, buf.String())
				}
			}
		})
	}
}

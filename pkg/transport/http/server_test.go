package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	gohttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/transport"
)

type testServerCreator struct {
	response *api.Response
}

func (c *testServerCreator) CreateResponse(ctx context.Context, req *api.CreateResponsesRequest, w transport.ResponseWriter) error {
	return w.WriteResponse(ctx, c.response)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return bytes.NewReader(data)
}

func validRequest() *api.CreateResponsesRequest {
	return &api.CreateResponsesRequest{Model: "test", Input: api.NewInputText("hi")}
}

func startServer(t *testing.T, srv *Server) (string, context.CancelFunc) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "http://" + ln.Addr().String(), cancel
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	creator := &testServerCreator{
		response: &api.Response{ID: "resp_serverTestABCD567890123", Object: api.ObjectResponse, Status: api.ResponseStatusCompleted, Model: "test-model"},
	}
	base, _ := startServer(t, NewServer(creator, nil))

	resp, err := gohttp.Post(base+"/v1/responses", "application/json", jsonBody(t, validRequest()))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("missing X-Request-ID")
	}
	var got api.Response
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != "resp_serverTestABCD567890123" {
		t.Errorf("response ID = %q", got.ID)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	slowCreator := transport.ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w transport.ResponseWriter) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return w.WriteResponse(ctx, &api.Response{ID: "resp_gracefulTestABCD5678901", Status: api.ResponseStatusCompleted})
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	base, stop := startServer(t, NewServer(slowCreator, nil, WithShutdownTimeout(5*time.Second)))

	statusCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Post(base+"/v1/responses", "application/json", jsonBody(t, validRequest()))
		if err != nil {
			statusCh <- 0
			return
		}
		defer resp.Body.Close()
		statusCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	stop()

	if status := <-statusCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
}

func TestServerRoutesAndMiddleware(t *testing.T) {
	var seen []string
	mw := func(next gohttp.Handler) gohttp.Handler {
		return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
	srv := NewServer(&testServerCreator{}, nil,
		WithHTTPMiddleware(mw),
		WithRoute("GET /metrics", gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			w.Write([]byte("metrics"))
		})),
	)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(gohttp.MethodGet, "/metrics", nil))
	if rec.Body.String() != "metrics" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(gohttp.MethodGet, "/healthz", nil))
	if rec.Code != gohttp.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	if len(seen) != 2 {
		t.Errorf("middleware saw %v", seen)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(&testServerCreator{}, nil,
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithShutdownTimeout(10*time.Second),
		WithTimeouts(time.Second, 2*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.config.MaxBodySize, 1024)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", srv.config.ShutdownTimeout)
	}
	if srv.httpServer.ReadTimeout != time.Second || srv.httpServer.WriteTimeout != 2*time.Second {
		t.Errorf("timeouts = %v/%v", srv.httpServer.ReadTimeout, srv.httpServer.WriteTimeout)
	}
}

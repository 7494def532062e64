package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rhuss/respkit/pkg/api"
)

// Operation names, used for metrics and logs.
const (
	OpCreateResponse = "create_response"
	OpStreamResponse = "stream_response"
	OpGetResponse    = "get_response"
	OpDeleteResponse = "delete_response"
	OpCancelResponse = "cancel_response"
	OpListInputItems = "list_input_items"
)

// ErrMissingID is returned when an operation needs a response ID and got "".
var ErrMissingID = errors.New("respkit: response id is required")

// requestSpec is everything needed to build one HTTP request, independent
// of the client it is sent with.
type requestSpec struct {
	op     string
	method string
	path   string
	query  url.Values
	body   []byte
	stream bool
}

// ListInputItemsOptions pages through the input items of a response.
type ListInputItemsOptions struct {
	Limit   *int
	Order   api.Order
	After   string
	Before  string
	Include []api.Includable
}

func (o ListInputItemsOptions) values() url.Values {
	q := url.Values{}
	if o.Limit != nil {
		q.Set("limit", strconv.Itoa(*o.Limit))
	}
	if o.Order != "" {
		q.Set("order", o.Order.String())
	}
	if o.After != "" {
		q.Set("after", o.After)
	}
	if o.Before != "" {
		q.Set("before", o.Before)
	}
	for _, inc := range o.Include {
		q.Add("include", inc.String())
	}
	return q
}

func responsePath(id string, suffix string) (string, error) {
	if id == "" {
		return "", ErrMissingID
	}
	return "/responses/" + url.PathEscape(id) + suffix, nil
}

// buildCreateResponse encodes req with its stream flag forced to match
// stream. The caller's request is not modified.
func buildCreateResponse(req *api.CreateResponsesRequest, stream bool) (requestSpec, error) {
	if req == nil {
		return requestSpec{}, errors.New("respkit: nil request")
	}
	r := *req
	op := OpCreateResponse
	if stream {
		r.Stream = api.Ptr(true)
		op = OpStreamResponse
	} else {
		r.Stream = nil
	}
	body, err := json.Marshal(&r)
	if err != nil {
		return requestSpec{}, fmt.Errorf("respkit: encoding request: %w", err)
	}
	return requestSpec{op: op, method: "POST", path: "/responses", body: body, stream: stream}, nil
}

func buildGetResponse(id string) (requestSpec, error) {
	path, err := responsePath(id, "")
	return requestSpec{op: OpGetResponse, method: "GET", path: path}, err
}

func buildDeleteResponse(id string) (requestSpec, error) {
	path, err := responsePath(id, "")
	return requestSpec{op: OpDeleteResponse, method: "DELETE", path: path}, err
}

func buildCancelResponse(id string) (requestSpec, error) {
	path, err := responsePath(id, "/cancel")
	return requestSpec{op: OpCancelResponse, method: "POST", path: path}, err
}

func buildListInputItems(id string, opts ListInputItemsOptions) (requestSpec, error) {
	path, err := responsePath(id, "/input_items")
	return requestSpec{op: OpListInputItems, method: "GET", path: path, query: opts.values()}, err
}

package jsonapi_test

import (
	"context"
	"sync"
	"testing"

	"go.llib.dev/testcase/assert"

	"go.llib.dev/jsonapi"
	"go.llib.dev/jsonapi/routing"
)

// fixture schemas: a small blog graph (posts, comments, people)

var postSchema = jsonapi.Schema{
	Type: "posts",
	Attributes: []jsonapi.Attribute{
		{Name: "title"},
		{Name: "createdAt", SerializedName: "created_at", Transform: "date"},
		{Name: "author", Kind: jsonapi.ToOne},
		{Name: "comments", Kind: jsonapi.ToMany},
	},
}

var commentSchema = jsonapi.Schema{
	Type: "comments",
	Attributes: []jsonapi.Attribute{
		{Name: "body"},
		{Name: "post", Kind: jsonapi.ToOne},
	},
}

var personSchema = jsonapi.Schema{
	Type: "people",
	Attributes: []jsonapi.Attribute{
		{Name: "name"},
	},
}

const testBaseURL = "https://api.example.test/v1"

func newTestClient(tb testing.TB, tr jsonapi.Transport) *jsonapi.Client {
	c := &jsonapi.Client{
		Transport: tr,
		Router:    &routing.Router{BaseURL: testBaseURL},
	}
	assert.NoError(tb, c.RegisterType(postSchema))
	assert.NoError(tb, c.RegisterType(commentSchema))
	assert.NoError(tb, c.RegisterType(personSchema))
	c.RegisterTransformer(jsonapi.DateTransformer{})
	return c
}

type sentRequest struct {
	Method  string
	URL     string
	Payload []byte
}

// stubTransport records every request and answers through Handle,
// falling back to an empty 200 response.
type stubTransport struct {
	mutex    sync.Mutex
	Requests []sentRequest
	Handle   func(r sentRequest) (jsonapi.Response, error)
}

func (t *stubTransport) Send(ctx context.Context, method string, url string, payload []byte) (jsonapi.Response, error) {
	t.mutex.Lock()
	r := sentRequest{Method: method, URL: url, Payload: payload}
	t.Requests = append(t.Requests, r)
	t.mutex.Unlock()
	if t.Handle != nil {
		return t.Handle(r)
	}
	return jsonapi.Response{StatusCode: 200, Body: []byte(`{"data":[]}`)}, nil
}

func (t *stubTransport) LastRequest() (sentRequest, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if len(t.Requests) == 0 {
		return sentRequest{}, false
	}
	return t.Requests[len(t.Requests)-1], true
}

package jsonapi_test

import (
	"testing"

	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"

	"go.llib.dev/jsonapi"
)

func TestResource_attributes(t *testing.T) {
	s := testcase.NewSpec(t)

	post := testcase.Let(s, func(t *testcase.T) *jsonapi.Resource {
		return jsonapi.NewResource(postSchema)
	})

	s.Test("a fresh resource is neither persisted nor loaded", func(t *testcase.T) {
		t.Must.False(post.Get(t).IsPersisted())
		t.Must.False(post.Get(t).IsLoaded())
		t.Must.Equal("", post.Get(t).ID())
	})

	s.Test("Set marks the attribute dirty", func(t *testcase.T) {
		title := t.Random.String()
		post.Get(t).Set("title", title)
		t.Must.Equal(title, post.Get(t).Get("title"))
		t.Must.True(post.Get(t).IsDirty("title"))
	})

	s.Test("accessing an undeclared attribute is a programmer error", func(t *testcase.T) {
		assert.Panic(t, func() { post.Get(t).Get("nope") })
		assert.Panic(t, func() { post.Get(t).Set("nope", 1) })
	})

	s.Test("accessing an attribute with the wrong kind is a programmer error", func(t *testcase.T) {
		assert.Panic(t, func() { post.Get(t).Get("author") })
		assert.Panic(t, func() { post.Get(t).ToMany("title") })
		assert.Panic(t, func() { post.Get(t).ToOne("comments") })
	})
}

func TestLinkedCollection(t *testing.T) {
	s := testcase.NewSpec(t)

	var (
		client = testcase.Let(s, func(t *testcase.T) *jsonapi.Client {
			return newTestClient(t, &stubTransport{})
		})
		post = testcase.Let(s, func(t *testcase.T) *jsonapi.Resource {
			return deserializeOne(t, client.Get(t), `{"data":{"type":"posts","id":"1",
				"relationships":{"comments":{"data":[{"type":"comments","id":"c1"}]}}}}`)
		})
		comments = testcase.Let(s, func(t *testcase.T) *jsonapi.LinkedCollection {
			return post.Get(t).ToMany("comments")
		})
		c2 = testcase.Let(s, func(t *testcase.T) *jsonapi.Resource {
			return deserializeOne(t, client.Get(t), `{"data":{"type":"comments","id":"c2"}}`)
		})
	)

	s.Test("Append links the resource and records a pending addition", func(t *testcase.T) {
		comments.Get(t).Append(c2.Get(t))

		t.Must.Equal(2, comments.Get(t).Len())
		t.Must.True(comments.Get(t).Contains(c2.Get(t)))
		t.Must.Equal([]string{"c2"}, idsOf(comments.Get(t).PendingAdditions()))
	})

	s.Test("appending an already linked resource is a no-op", func(t *testcase.T) {
		c1 := comments.Get(t).Resources()[0]
		comments.Get(t).Append(c1)

		t.Must.Equal(1, comments.Get(t).Len())
		t.Must.Equal(0, len(comments.Get(t).PendingAdditions()))
	})

	s.Test("Remove unlinks the resource and records a pending removal", func(t *testcase.T) {
		c1 := comments.Get(t).Resources()[0]
		comments.Get(t).Remove(c1)

		t.Must.Equal(0, comments.Get(t).Len())
		t.Must.Equal([]string{"c1"}, idsOf(comments.Get(t).PendingRemovals()))
	})

	s.Test("removing a pending addition cancels it instead of recording a removal", func(t *testcase.T) {
		comments.Get(t).Append(c2.Get(t))
		comments.Get(t).Remove(c2.Get(t))

		t.Must.Equal(0, len(comments.Get(t).PendingAdditions()))
		t.Must.Equal(0, len(comments.Get(t).PendingRemovals()))
		t.Must.False(comments.Get(t).Contains(c2.Get(t)))
	})

	s.Test("re-appending a pending removal cancels the removal", func(t *testcase.T) {
		c1 := comments.Get(t).Resources()[0]
		comments.Get(t).Remove(c1)
		comments.Get(t).Append(c1)

		t.Must.Equal(0, len(comments.Get(t).PendingAdditions()))
		t.Must.Equal(0, len(comments.Get(t).PendingRemovals()))
		t.Must.True(comments.Get(t).Contains(c1))
	})

	s.Test("resources with the same identity are matched across instances", func(t *testcase.T) {
		// a second deserialization pass yields a distinct instance of c1
		otherC1 := deserializeOne(t, client.Get(t), `{"data":{"type":"comments","id":"c1"}}`)
		t.Must.True(comments.Get(t).Contains(otherC1))

		comments.Get(t).Remove(otherC1)
		t.Must.Equal(0, comments.Get(t).Len())
	})
}

package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/sightline/pkg/transport/uds"
)

type countingClient struct {
	calls int
	data  json.RawMessage
	err   error
}

func (c *countingClient) Query(_ context.Context, _ Descriptor, _ Options) (*Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Response{Data: c.data}, nil
}

type memCache struct {
	entries map[string][]byte
	sets    int
	getErr  error
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.entries[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte) error {
	m.sets++
	m.entries[key] = data
	return nil
}

func TestCacheKeyStable(t *testing.T) {
	a, err := GetOneTimeline("abc").CacheKey()
	require.NoError(t, err)
	b, err := GetOneTimeline("abc").CacheKey()
	require.NoError(t, err)
	c, err := GetOneTimeline("abd").CacheKey()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, OpGetOneTimeline+":")
}

func TestResponseField(t *testing.T) {
	resp := &Response{Data: json.RawMessage(`{"getOneTimeline":{"title":"x"},"empty":null}`)}

	var doc map[string]any
	ok, err := resp.Field("getOneTimeline", &doc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", doc["title"])

	ok, err = resp.Field("empty", &doc)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = resp.Field("missing", &doc)
	require.NoError(t, err)
	assert.False(t, ok)

	var nilResp *Response
	ok, err = nilResp.Field("getOneTimeline", &doc)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = (&Response{Data: json.RawMessage(`[1,2]`)}).Field("x", &doc)
	assert.Error(t, err)
}

func TestCachingClientPolicies(t *testing.T) {
	payload := json.RawMessage(`{"getOneTimeline":{"title":"net"}}`)
	d := GetOneTimeline("abc")

	t.Run("cache-first serves from cache after first fetch", func(t *testing.T) {
		next := &countingClient{data: payload}
		cache := newMemCache()
		c := NewCachingClient(next, cache, nil)

		_, err := c.Query(context.Background(), d, Options{FetchPolicy: CacheFirst})
		require.NoError(t, err)
		resp, err := c.Query(context.Background(), d, Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, next.calls)
		assert.JSONEq(t, string(payload), string(resp.Data))
	})

	t.Run("network-only always fetches but stores", func(t *testing.T) {
		next := &countingClient{data: payload}
		cache := newMemCache()
		c := NewCachingClient(next, cache, nil)

		for i := 0; i < 2; i++ {
			_, err := c.Query(context.Background(), d, Options{FetchPolicy: NetworkOnly})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, next.calls)
		assert.Equal(t, 2, cache.sets)
	})

	t.Run("no-cache never touches the cache", func(t *testing.T) {
		next := &countingClient{data: payload}
		cache := newMemCache()
		key, _ := d.CacheKey()
		cache.entries[key] = []byte(`{"getOneTimeline":{"title":"stale"}}`)
		c := NewCachingClient(next, cache, nil)

		resp, err := c.Query(context.Background(), d, Options{FetchPolicy: NoCache})
		require.NoError(t, err)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, 0, cache.sets)
		assert.JSONEq(t, string(payload), string(resp.Data))
	})

	t.Run("cache read failure falls through to backend", func(t *testing.T) {
		next := &countingClient{data: payload}
		cache := newMemCache()
		cache.getErr = errors.New("down")
		c := NewCachingClient(next, cache, nil)

		_, err := c.Query(context.Background(), d, Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("backend error is not cached", func(t *testing.T) {
		next := &countingClient{err: errors.New("boom")}
		cache := newMemCache()
		c := NewCachingClient(next, cache, nil)

		_, err := c.Query(context.Background(), d, Options{})
		assert.Error(t, err)
		assert.Equal(t, 0, cache.sets)
	})
}

type fakeRequester struct {
	method string
	data   any
	reply  uds.Message
	err    error
}

func (f *fakeRequester) Request(_ context.Context, method string, data any) (uds.Message, error) {
	f.method = method
	f.data = data
	return f.reply, f.err
}

func TestUDSClient(t *testing.T) {
	r := &fakeRequester{reply: uds.Message{Type: uds.MsgTypeRes, Data: json.RawMessage(`{"getOneTimeline":null}`)}}
	c := NewUDSClient(r)

	resp, err := c.Query(context.Background(), GetOneTimeline("abc"), Options{FetchPolicy: NoCache})
	require.NoError(t, err)
	assert.Equal(t, OpGetOneTimeline, r.method)
	assert.Equal(t, map[string]any{"id": "abc"}, r.data)
	assert.JSONEq(t, `{"getOneTimeline":null}`, string(resp.Data))

	r.err = errors.New("closed")
	_, err = c.Query(context.Background(), GetOneTimeline("abc"), Options{})
	assert.ErrorContains(t, err, "query GetOneTimeline")
}

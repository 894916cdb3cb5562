package fieldmap

import (
	"context"
	"errors"
	"sync"
)

// memoryCache is an in-memory Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	docs    map[string][]byte
	getErr  error
	putErr  error
	puts    int
	lastPut []byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{docs: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	data, ok := c.docs[key]
	return data, ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.docs[key] = data
	c.lastPut = data
	return nil
}

// fakeDirectory serves a fixed field list.
type fakeDirectory struct {
	fields []RemoteField
	err    error
	calls  int
}

func (d *fakeDirectory) RemoteFields(context.Context) ([]RemoteField, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.fields, nil
}

var errUnavailable = errors.New("service unavailable")

func registryOf(ids map[string]string) *CodeRegistry {
	m := make(map[FieldCode]FieldID, len(ids))
	for code, id := range ids {
		m[FieldCode(code)] = FieldID(id)
	}
	return NewCodeRegistry(m)
}

func tableOf(pairs map[string]string) *SynonymTable {
	m := make(map[string]FieldCode, len(pairs))
	for alias, code := range pairs {
		m[alias] = FieldCode(code)
	}
	return NewSynonymTable(m)
}

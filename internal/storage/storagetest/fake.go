// Package storagetest provides an in-memory storage.Client for tests.
package storagetest

import (
	"context"
	"io"
	"sync"

	"qnup/internal/storage"
)

// Put is one recorded PutObject call.
type Put struct {
	Key     string
	Size    int64
	Body    []byte
	Options storage.PutOptions
}

// Client records uploads in memory. Keys listed in Errors fail with the
// given error, keys listed in Panics make PutObject panic.
type Client struct {
	mu     sync.Mutex
	puts   []Put
	Errors map[string]error
	Panics map[string]bool
	// Hook, when set, runs before every upload with the object key.
	Hook func(key string)
}

// NewClient returns an empty fake client.
func NewClient() *Client {
	return &Client{
		Errors: map[string]error{},
		Panics: map[string]bool{},
	}
}

// PutObject implements storage.Client.
func (c *Client) PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts storage.PutOptions) error {
	if c.Hook != nil {
		c.Hook(key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	fail := c.Errors[key]
	crash := c.Panics[key]
	c.mu.Unlock()

	if crash {
		panic("storagetest: induced panic for " + key)
	}
	if fail != nil {
		return fail
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, Put{Key: key, Size: size, Body: body, Options: opts})
	return nil
}

// Puts returns a copy of the recorded uploads in completion order.
func (c *Client) Puts() []Put {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Put(nil), c.puts...)
}

// Keys returns the keys of all recorded uploads.
func (c *Client) Keys() []string {
	puts := c.Puts()
	keys := make([]string, len(puts))
	for i, p := range puts {
		keys[i] = p.Key
	}
	return keys
}

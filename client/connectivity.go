// Package client holds the board's client-side state machinery: an
// optimistic task store that reflects drags instantly, and a durable
// offline queue that replays buffered writes once connectivity returns.
package client

import "sync"

// Connectivity reports whether the network is reachable and signals
// changes. It is injected so tests and embedders can fake it.
type Connectivity interface {
	IsOnline() bool
	// OnChange registers a callback fired on every transition. The
	// returned function unsubscribes.
	OnChange(fn func(online bool)) func()
}

// StaticConnectivity is a Connectivity implementation driven by
// SetOnline calls. The zero value reports offline.
type StaticConnectivity struct {
	mu      sync.Mutex
	online  bool
	subs    map[int]func(bool)
	nextSub int
}

func NewStaticConnectivity(online bool) *StaticConnectivity {
	return &StaticConnectivity{online: online, subs: make(map[int]func(bool))}
}

func (c *StaticConnectivity) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SetOnline flips the state and notifies subscribers synchronously.
func (c *StaticConnectivity) SetOnline(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	var fns []func(bool)
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

func (c *StaticConnectivity) OnChange(fn func(online bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func(bool))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	addr    string
	clients []*oxidb.Client
	mu      sync.RWMutex
	idx     uint64
	stop    chan struct{}
	once    sync.Once
}

// NewPool dials size connections to the OxiDB server at addr and starts the
// keepalive loop.
func NewPool(ctx context.Context, addr string, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		addr:    addr,
		clients: make([]*oxidb.Client, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := dial(ctx, addr)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	go p.keepalive()
	return p, nil
}

func dial(ctx context.Context, addr string) (*oxidb.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return oxidb.Connect(ctx, addr)
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[n%uint64(len(p.clients))]
}

// Size reports the number of pooled connections.
func (p *Pool) Size() int {
	return len(p.clients)
}

// reconnect replaces a broken client at index i.
func (p *Pool) reconnect(i int) {
	c, err := dial(context.Background(), p.addr)
	if err != nil {
		slog.Warn("pool: reconnect failed", "client", i, "error", err)
		return
	}
	p.mu.Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// Check pings every connection once and reconnects the ones that fail.
// It returns the number of connections that had to be replaced.
func (p *Pool) Check(ctx context.Context) int {
	replaced := 0
	for i := range p.clients {
		p.mu.RLock()
		c := p.clients[i]
		p.mu.RUnlock()
		pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		_, err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("pool: ping failed, reconnecting", "client", i, "error", err)
			p.reconnect(i)
			replaced++
		}
	}
	return replaced
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Check(context.Background())
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.clients {
			if c != nil {
				_ = c.Close()
			}
		}
	})
}

package layout

import (
	"context"
	"log"
	"sync"
	"time"
)

// StorageKey is the fixed key the whole cache is persisted under.
const StorageKey = "layouts.v1"

// BlobStore is the durable key-value facility the cache persists to.
type BlobStore interface {
	SaveBlob(ctx context.Context, key string, blob []byte) error
	// LoadBlob reports ok=false when nothing is stored under key.
	LoadBlob(ctx context.Context, key string) (blob []byte, ok bool, err error)
}

// persister writes cache snapshots on a single background goroutine.
// Pending snapshots are coalesced: only the newest one is written.
type persister struct {
	store   BlobStore
	timeout time.Duration

	mu      sync.Mutex
	pending []byte

	writeMu sync.Mutex
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newPersister(store BlobStore) *persister {
	p := &persister{
		store:   store,
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) schedule(blob []byte) {
	p.mu.Lock()
	p.pending = blob
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := p.flush(ctx); err != nil {
				log.Printf("layout-persister: write failed: %v", err)
			}
			cancel()
		case <-p.quit:
			return
		}
	}
}

// flush writes the pending snapshot, if any. A failed write is re-queued
// unless a newer snapshot arrived meanwhile.
func (p *persister) flush(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	blob := p.pending
	p.pending = nil
	p.mu.Unlock()
	if blob == nil {
		return nil
	}
	if err := p.store.SaveBlob(ctx, StorageKey, blob); err != nil {
		p.mu.Lock()
		if p.pending == nil {
			p.pending = blob
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *persister) close(ctx context.Context) error {
	p.once.Do(func() { close(p.quit) })
	<-p.done
	return p.flush(ctx)
}

package node

import (
	"sync"
	"time"

	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/digital-rights-bft/validators"
)

// LoopbackContext is an in-memory Context for tests: Broadcast/Send just
// record what was sent rather than touching a real transport, and Now is
// an injectable clock so tests control round timeouts deterministically.
type LoopbackContext struct {
	mu sync.Mutex

	db   store.Forker
	sk   crypto.SecretKey
	vs   *validators.Set
	now  time.Time
	sent map[crypto.PubKey][][]byte

	Broadcasts [][]byte
}

// NewLoopbackContext constructs a LoopbackContext backed by db, signing
// with sk, against validator set vs.
func NewLoopbackContext(db store.Forker, sk crypto.SecretKey, vs *validators.Set) *LoopbackContext {
	return &LoopbackContext{
		db:   db,
		sk:   sk,
		vs:   vs,
		now:  time.Unix(0, 0).UTC(),
		sent: make(map[crypto.PubKey][][]byte),
	}
}

func (c *LoopbackContext) Broadcast(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Broadcasts = append(c.Broadcasts, payload)
	return nil
}

func (c *LoopbackContext) Send(to crypto.PubKey, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[to] = append(c.sent[to], payload)
	return nil
}

// SentTo returns everything Send has recorded for to, for test assertions.
func (c *LoopbackContext) SentTo(to crypto.PubKey) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent[to]...)
}

func (c *LoopbackContext) Database() store.Forker { return c.db }

func (c *LoopbackContext) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the injected clock forward by d, for tests exercising
// timeout behavior.
func (c *LoopbackContext) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *LoopbackContext) SelfKey() crypto.SecretKey { return c.sk }

func (c *LoopbackContext) Validators() *validators.Set { return c.vs }

// Package ledger simulates the blockchain layer: mempools for identity
// registrations and transition headers, and a mining step that packages
// pending entries into a hash-chained block, deriving one identity per
// accepted registration.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tonicpow/dap-engine-go/consensus"
	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/store"
)

// Store collections
const (
	collBlocks         = "core.blockchain"
	collUsers          = "core.index.users"
	collMempoolSubTx   = "core.mempool.subtx"
	collMempoolHeaders = "core.mempool.stheaders"
)

// GenesisPrevHash is the prevhash of the first mined block
const GenesisPrevHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Rejection errors
var (
	ErrUsernameTaken = errors.New("username already registered")
	ErrInvalidRecord = errors.New("record failed validation")
)

// BlockInfo identifies the chain tip
type BlockInfo struct {
	Height int    `json:"height" bson:"height"`
	Hash   string `json:"hash" bson:"hash"`
}

// Block is a simplified block carrying confirmed registrations and
// transition headers
type Block struct {
	Height    int                `json:"height" bson:"height"`
	Hash      string             `json:"hash" bson:"hash"`
	PrevHash  string             `json:"prevhash" bson:"prevhash"`
	SubTx     []*object.SubTx    `json:"subtx" bson:"subtx"`
	STHeaders []*object.STHeader `json:"stheaders" bson:"stheaders"`
}

// Subscriber observes new blocks. Subscribers are invoked synchronously
// in registration order after the tip advances, and see strictly
// increasing heights with no gaps.
type Subscriber func(BlockInfo)

// Ledger is the simulated chain. It assumes a single authoritative
// writer; concurrent writers must be serialized by the caller.
type Ledger struct {
	db        store.Store
	validator *consensus.Validator
	tip       BlockInfo
	subs      []Subscriber
	log       *logrus.Entry
}

// New starts a fresh chain on the given store and mines the genesis block
func New(db store.Store, validator *consensus.Validator) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		validator: validator,
		log:       logrus.WithField("component", "ledger"),
	}
	if _, err := l.MineBlock(); err != nil {
		return nil, errors.Wrap(err, "mining genesis")
	}
	return l, nil
}

// Subscribe registers a new-block observer
func (l *Ledger) Subscribe(fn Subscriber) {
	l.subs = append(l.subs, fn)
}

// Tip returns the current chain tip
func (l *Ledger) Tip() BlockInfo {
	return l.tip
}

// SubmitRegistration validates a registration record and enqueues it,
// returning its id as the acceptance token. Usernames already bound to a
// confirmed identity are rejected; pending registrations are not
// considered.
func (l *Ledger) SubmitRegistration(t *object.SubTx) (string, error) {
	if err := object.AssignID(t, nil); err != nil {
		return "", err
	}

	if res := l.validator.ValidateSubTx(t); !res.Valid {
		l.log.WithField("reason", res.String()).Warn("registration rejected")
		return "", errors.Wrap(ErrInvalidRecord, res.String())
	}

	if l.UserByName(t.UName) != nil {
		return "", ErrUsernameTaken
	}

	l.db.Insert(collMempoolSubTx, t)
	l.log.WithField("uname", t.UName).Info("registration queued")
	return t.MetaID(), nil
}

// SubmitTransitionHeader validates a header structurally and enqueues it,
// returning the header's id
func (l *Ledger) SubmitTransitionHeader(h *object.STHeader) (string, error) {
	if err := object.AssignID(h, nil); err != nil {
		return "", err
	}

	if res := l.validator.ValidateSTHeader(h); !res.Valid {
		l.log.WithField("reason", res.String()).Warn("transition rejected")
		return "", errors.Wrap(ErrInvalidRecord, res.String())
	}

	l.db.Insert(collMempoolHeaders, h)
	l.log.WithField("tsid", h.MetaID()).Info("transition queued")
	return h.MetaID(), nil
}

// MineBlock packages all pending registrations and transition headers
// into a new block in FIFO order, registrations first. Identities are
// derived and persisted here; packet-level consensus happens in the
// document index when it observes the block. A call with nothing pending
// still produces a valid empty block.
func (l *Ledger) MineBlock() (*Block, error) {
	block := &Block{
		Height:    l.tip.Height + 1,
		PrevHash:  GenesisPrevHash,
		SubTx:     []*object.SubTx{},
		STHeaders: []*object.STHeader{},
	}
	if l.tip.Height > 0 {
		block.PrevHash = l.tip.Hash
	}

	for _, doc := range l.db.Collection(collMempoolSubTx) {
		t := doc.(*object.SubTx)

		bu, err := object.NewBlockchainUser(t)
		if err != nil {
			return nil, errors.Wrap(err, "deriving identity")
		}
		if res := l.validator.ValidateBlockchainUser(bu); !res.Valid {
			return nil, errors.Errorf("invalid identity derivation: %s", res)
		}

		bu.Meta = object.Meta{"height": block.Height}
		l.db.Insert(collUsers, bu)
		block.SubTx = append(block.SubTx, t)

		l.dequeue(collMempoolSubTx, t)
	}

	for _, doc := range l.db.Collection(collMempoolHeaders) {
		h := doc.(*object.STHeader)

		if res := l.validator.ValidateSTHeader(h); res.Valid {
			block.STHeaders = append(block.STHeaders, h)
		} else {
			l.log.WithField("reason", res.String()).Warn("dropping invalid header")
		}

		l.dequeue(collMempoolHeaders, h)
	}

	hash, err := blockHash(block)
	if err != nil {
		return nil, err
	}
	block.Hash = hash

	l.db.Insert(collBlocks, block)
	l.tip = BlockInfo{Height: block.Height, Hash: block.Hash}
	l.log.WithFields(logrus.Fields{"height": l.tip.Height, "hash": l.tip.Hash}).Info("mined block")

	for _, fn := range l.subs {
		fn(l.tip)
	}

	return block, nil
}

func (l *Ledger) dequeue(collection string, doc interface{}) {
	l.db.Remove(collection, func(d interface{}) bool { return d == doc })
}

func blockHash(b *Block) (string, error) {
	subtx, err := object.CanonicalJSON(b.SubTx)
	if err != nil {
		return "", err
	}
	headers, err := object.CanonicalJSON(b.STHeaders)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(subtx)
	h.Write(headers)
	h.Write([]byte(b.PrevHash))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UserByName returns the confirmed identity registered under a username
func (l *Ledger) UserByName(uname string) *object.BlockchainUser {
	doc, found := l.db.Find(collUsers, func(d interface{}) bool {
		return d.(*object.BlockchainUser).UName == uname
	})
	if !found {
		return nil
	}
	return doc.(*object.BlockchainUser)
}

// UserByID returns the confirmed identity with the given uid
func (l *Ledger) UserByID(uid string) *object.BlockchainUser {
	doc, found := l.db.Find(collUsers, func(d interface{}) bool {
		return d.(*object.BlockchainUser).UID == uid
	})
	if !found {
		return nil
	}
	return doc.(*object.BlockchainUser)
}

// SearchUsers returns all confirmed identities whose username contains
// the pattern
func (l *Ledger) SearchUsers(pattern string) []*object.BlockchainUser {
	if len(pattern) < 1 {
		return nil
	}
	docs := l.db.Search(collUsers, func(d interface{}) bool {
		return strings.Contains(d.(*object.BlockchainUser).UName, pattern)
	})
	users := make([]*object.BlockchainUser, len(docs))
	for i, doc := range docs {
		users[i] = doc.(*object.BlockchainUser)
	}
	return users
}

// GetBlock returns the block with the given hash, or nil
func (l *Ledger) GetBlock(hash string) *Block {
	doc, found := l.db.Find(collBlocks, func(d interface{}) bool {
		return d.(*Block).Hash == hash
	})
	if !found {
		return nil
	}
	return doc.(*Block)
}

// BlockAtHeight returns the block at the given height, or nil
func (l *Ledger) BlockAtHeight(height int) *Block {
	doc, found := l.db.Find(collBlocks, func(d interface{}) bool {
		return d.(*Block).Height == height
	})
	if !found {
		return nil
	}
	return doc.(*Block)
}

// ListTransitionsSinceBlock returns all confirmed transition headers in
// blocks after the one with the given hash, in chain order. An empty or
// unknown hash lists from genesis.
func (l *Ledger) ListTransitionsSinceBlock(hash string) []*object.STHeader {
	sinceHeight := 0
	if hash != "" {
		if b := l.GetBlock(hash); b != nil {
			sinceHeight = b.Height
		}
	}

	var found []*object.STHeader
	for i := sinceHeight + 1; i <= l.tip.Height; i++ {
		if b := l.BlockAtHeight(i); b != nil {
			found = append(found, b.STHeaders...)
		}
	}
	return found
}

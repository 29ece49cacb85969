package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonicpow/dap-engine-go/consensus"
	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/store"
)

func newTestLedger(t *testing.T) *Ledger {
	validator, err := consensus.NewValidator()
	require.NoError(t, err)
	l, err := New(store.NewMemory(), validator)
	require.NoError(t, err)
	return l
}

// TestGenesis will mine an empty first block on construction
func TestGenesis(t *testing.T) {
	l := newTestLedger(t)

	tip := l.Tip()
	assert.Equal(t, 1, tip.Height)
	assert.NotEmpty(t, tip.Hash)

	genesis := l.BlockAtHeight(1)
	require.NotNil(t, genesis)
	assert.Equal(t, GenesisPrevHash, genesis.PrevHash)
	assert.Empty(t, genesis.SubTx)
	assert.Empty(t, genesis.STHeaders)
}

// TestChainIntegrity will link every block to its parent with a content
// hash
func TestChainIntegrity(t *testing.T) {
	l := newTestLedger(t)

	const blocks = 5
	for i := 0; i < blocks; i++ {
		_, err := l.MineBlock()
		require.NoError(t, err)
	}
	assert.Equal(t, 1+blocks, l.Tip().Height)

	seen := map[string]bool{}
	for h := 1; h <= l.Tip().Height; h++ {
		b := l.BlockAtHeight(h)
		require.NotNil(t, b, "height %d", h)
		assert.Equal(t, h, b.Height)
		assert.False(t, seen[b.Hash], "hash reused at height %d", h)
		seen[b.Hash] = true

		if h == 1 {
			assert.Equal(t, GenesisPrevHash, b.PrevHash)
		} else {
			assert.Equal(t, l.BlockAtHeight(h-1).Hash, b.PrevHash)
		}
	}
}

// TestBlockHashContent will move the hash when block content moves
func TestBlockHashContent(t *testing.T) {
	l := newTestLedger(t)

	empty, err := l.MineBlock()
	require.NoError(t, err)

	tx, err := object.NewSubTx("alice", "key1")
	require.NoError(t, err)
	_, err = l.SubmitRegistration(tx)
	require.NoError(t, err)

	filled, err := l.MineBlock()
	require.NoError(t, err)
	assert.NotEqual(t, empty.Hash, filled.Hash)
	require.Len(t, filled.SubTx, 1)
}

// TestRegistrationLifecycle will confirm identities only after mining
func TestRegistrationLifecycle(t *testing.T) {
	l := newTestLedger(t)

	tx, err := object.NewSubTx("alice", "key1")
	require.NoError(t, err)

	uid, err := l.SubmitRegistration(tx)
	require.NoError(t, err)
	assert.Equal(t, tx.MetaID(), uid)

	// pending registrations are not visible identities
	assert.Nil(t, l.UserByName("alice"))

	_, err = l.MineBlock()
	require.NoError(t, err)

	bu := l.UserByName("alice")
	require.NotNil(t, bu)
	assert.Equal(t, uid, bu.UID)
	assert.Equal(t, object.InitialCredits, bu.Credits)
	assert.Equal(t, 2, bu.Meta["height"])

	assert.Equal(t, bu, l.UserByID(uid))
}

// TestRegistrationUsernameTaken will reject confirmed duplicate usernames
func TestRegistrationUsernameTaken(t *testing.T) {
	l := newTestLedger(t)

	tx, err := object.NewSubTx("alice", "key1")
	require.NoError(t, err)
	_, err = l.SubmitRegistration(tx)
	require.NoError(t, err)
	_, err = l.MineBlock()
	require.NoError(t, err)

	again, err := object.NewSubTx("alice", "key2")
	require.NoError(t, err)
	_, err = l.SubmitRegistration(again)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

// TestRegistrationResubmit will collapse identical pending submissions
func TestRegistrationResubmit(t *testing.T) {
	l := newTestLedger(t)

	tx, err := object.NewSubTx("alice", "key1")
	require.NoError(t, err)
	_, err = l.SubmitRegistration(tx)
	require.NoError(t, err)
	_, err = l.SubmitRegistration(tx)
	require.NoError(t, err)

	block, err := l.MineBlock()
	require.NoError(t, err)
	assert.Len(t, block.SubTx, 1)
	assert.Len(t, l.SearchUsers("alice"), 1)
}

// TestRegistrationInvalid will reject structurally broken records
func TestRegistrationInvalid(t *testing.T) {
	l := newTestLedger(t)

	tx, err := object.NewSubTx("ab", "key1")
	require.NoError(t, err)
	_, err = l.SubmitRegistration(tx)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

// TestSubmitTransitionHeader will queue valid headers in FIFO order
func TestSubmitTransitionHeader(t *testing.T) {
	l := newTestLedger(t)

	h1, err := object.NewSTHeader("pak-one", "alice-uid", "")
	require.NoError(t, err)
	h2, err := object.NewSTHeader("pak-two", "alice-uid", h1.MetaID())
	require.NoError(t, err)

	_, err = l.SubmitTransitionHeader(h1)
	require.NoError(t, err)
	_, err = l.SubmitTransitionHeader(h2)
	require.NoError(t, err)

	block, err := l.MineBlock()
	require.NoError(t, err)
	require.Len(t, block.STHeaders, 2)
	assert.Equal(t, "pak-one", block.STHeaders[0].PakID)
	assert.Equal(t, "pak-two", block.STHeaders[1].PakID)

	bad, err := object.NewSTHeader("", "alice-uid", "")
	require.NoError(t, err)
	_, err = l.SubmitTransitionHeader(bad)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

// TestSubscribers will notify in registration order with gapless heights
func TestSubscribers(t *testing.T) {
	l := newTestLedger(t)

	var order []string
	var heights []int
	l.Subscribe(func(info BlockInfo) {
		order = append(order, "first")
		heights = append(heights, info.Height)
	})
	l.Subscribe(func(info BlockInfo) {
		order = append(order, "second")
	})

	_, err := l.MineBlock()
	require.NoError(t, err)
	_, err = l.MineBlock()
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
	assert.Equal(t, []int{2, 3}, heights)
}

// TestListTransitionsSinceBlock will return headers in chain order
func TestListTransitionsSinceBlock(t *testing.T) {
	l := newTestLedger(t)

	h1, err := object.NewSTHeader("pak-one", "alice-uid", "")
	require.NoError(t, err)
	_, err = l.SubmitTransitionHeader(h1)
	require.NoError(t, err)
	blockA, err := l.MineBlock()
	require.NoError(t, err)

	h2, err := object.NewSTHeader("pak-two", "alice-uid", "")
	require.NoError(t, err)
	h3, err := object.NewSTHeader("pak-three", "alice-uid", "")
	require.NoError(t, err)
	_, err = l.SubmitTransitionHeader(h2)
	require.NoError(t, err)
	_, err = l.SubmitTransitionHeader(h3)
	require.NoError(t, err)
	_, err = l.MineBlock()
	require.NoError(t, err)

	all := l.ListTransitionsSinceBlock("")
	require.Len(t, all, 3)
	assert.Equal(t, "pak-one", all[0].PakID)
	assert.Equal(t, "pak-two", all[1].PakID)
	assert.Equal(t, "pak-three", all[2].PakID)

	since := l.ListTransitionsSinceBlock(blockA.Hash)
	require.Len(t, since, 2)
	assert.Equal(t, "pak-two", since[0].PakID)

	assert.Empty(t, l.ListTransitionsSinceBlock(l.Tip().Hash))
}

// TestGetBlock will look blocks up by hash
func TestGetBlock(t *testing.T) {
	l := newTestLedger(t)

	block, err := l.MineBlock()
	require.NoError(t, err)

	assert.Equal(t, block, l.GetBlock(block.Hash))
	assert.Nil(t, l.GetBlock("unknown"))
}

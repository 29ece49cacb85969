// Package state keeps the mongo query mirror in sync with confirmed
// engine state, one block at a time.
package state

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tonicpow/dap-engine-go/database"
	"github.com/tonicpow/dap-engine-go/gateway"
	"github.com/tonicpow/dap-engine-go/ledger"
	"github.com/tonicpow/dap-engine-go/object"
)

// Syncer mirrors each confirmed block's effects. Mirror failures are
// logged and never affect consensus state.
type Syncer struct {
	conn *database.Connection
	gw   *gateway.Gateway
	log  *logrus.Entry
}

// NewSyncer subscribes a mirror connection to the gateway's new-block
// notifications
func NewSyncer(conn *database.Connection, gw *gateway.Gateway) *Syncer {
	s := &Syncer{
		conn: conn,
		gw:   gw,
		log:  logrus.WithField("component", "state"),
	}
	gw.OnNewBlock(s.onNewBlock)
	return s
}

func (s *Syncer) onNewBlock(info ledger.BlockInfo) {
	ctx := context.Background()

	block := s.gw.Chain.GetBlock(info.Hash)
	if block == nil {
		s.log.WithField("hash", info.Hash).Warn("mined block not found")
		return
	}

	if err := s.conn.UpsertBlock(ctx, block); err != nil {
		s.log.WithError(err).Warn("mirroring block")
	}

	for _, subtx := range block.SubTx {
		s.mirrorIdentity(ctx, subtx)
	}

	// contracts and object data are few in a simulated stack; refresh all
	for _, contract := range s.gw.SearchDaps("") {
		dapid, _ := contract.Meta["dapid"].(string)
		if dapid == "" {
			continue
		}
		if err := s.conn.UpsertContract(ctx, dapid, contract); err != nil {
			s.log.WithError(err).Warn("mirroring contract")
		}
		if err := s.conn.UpsertDapData(ctx, dapid, s.gw.Drive.GetDapData(dapid)); err != nil {
			s.log.WithError(err).Warn("mirroring dap data")
		}
	}
}

func (s *Syncer) mirrorIdentity(ctx context.Context, subtx *object.SubTx) {
	uid, err := object.HashSubTx(subtx)
	if err != nil {
		s.log.WithError(err).Warn("hashing registration")
		return
	}

	bu := s.gw.Chain.UserByID(uid)
	if bu == nil {
		s.log.WithField("uid", uid).Warn("confirmed identity not found")
		return
	}

	if err = s.conn.UpsertIdentity(ctx, bu); err != nil {
		s.log.WithError(err).Warn("mirroring identity")
	}
}

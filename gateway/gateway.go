// Package gateway orchestrates the ledger and document index behind a
// single request surface. A Gateway owns one instance of every engine
// component; constructing a new Gateway is the reset operation for test
// isolation.
package gateway

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tonicpow/dap-engine-go/consensus"
	"github.com/tonicpow/dap-engine-go/drive"
	"github.com/tonicpow/dap-engine-go/ledger"
	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
	"github.com/tonicpow/dap-engine-go/store"
)

// Rejection errors
var (
	ErrSchemaRejected  = errors.New("schema definition rejected")
	ErrInvalidUsername = errors.New("invalid username")
)

// Gateway is the explicit registry owning the engine component instances
type Gateway struct {
	DB        store.Store
	Validator *consensus.Validator
	Chain     *ledger.Ledger
	Drive     *drive.Drive

	log *logrus.Entry
}

// New constructs a fresh engine stack on an in-memory store, mining the
// genesis block
func New() (*Gateway, error) {
	validator, err := consensus.NewValidator()
	if err != nil {
		return nil, err
	}

	db := store.NewMemory()
	chain, err := ledger.New(db, validator)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		DB:        db,
		Validator: validator,
		Chain:     chain,
		Drive:     drive.New(db, chain, validator),
		log:       logrus.WithField("component", "gateway"),
	}, nil
}

// OnNewBlock registers a synchronous new-block subscriber
func (g *Gateway) OnNewBlock(fn ledger.Subscriber) {
	g.Chain.Subscribe(fn)
}

// RegisterIdentity submits a registration record and mines it into a
// block, returning the new identity's id
func (g *Gateway) RegisterIdentity(t *object.SubTx) (string, error) {
	g.log.WithField("uname", t.UName).Info("register identity")

	uid, err := g.Chain.SubmitRegistration(t)
	if err != nil {
		return "", err
	}
	if _, err = g.Chain.MineBlock(); err != nil {
		return "", err
	}
	return uid, nil
}

// RegisterSchema compiles a DAP schema definition and, when well-formed,
// registers it on the chain on behalf of the given identity. Returns the
// new DAP's id.
func (g *Gateway) RegisterSchema(uid string, dapSchema schema.Def) (string, error) {
	if res := schema.CompileDapSchema(dapSchema); !res.Valid {
		return "", errors.Wrapf(ErrSchemaRejected, "%s (keyword %q)", res.Code, res.Keyword)
	}

	contract, err := object.NewDapContract(dapSchema)
	if err != nil {
		return "", err
	}

	pkt := object.NewSTPacket()
	pkt.DapName = contract.DapName
	pkt.DapContract = contract
	if err = object.AssignID(pkt, nil); err != nil {
		return "", err
	}

	hdr, err := object.NewSTHeader(pkt.MetaID(), uid, "")
	if err != nil {
		return "", err
	}

	return g.submit(hdr, pkt)
}

// SubmitMutation pins a packet, broadcasts its header, and mines the
// confirming block. Returns the transition id.
func (g *Gateway) SubmitMutation(hdr *object.STHeader, pkt *object.STPacket) (string, error) {
	return g.submit(hdr, pkt)
}

func (g *Gateway) submit(hdr *object.STHeader, pkt *object.STPacket) (string, error) {
	if _, err := g.Drive.PinPacket(hdr, pkt); err != nil {
		return "", err
	}

	tsid, err := g.Chain.SubmitTransitionHeader(hdr)
	if err != nil {
		return "", err
	}
	if _, err = g.Chain.MineBlock(); err != nil {
		return "", err
	}
	return tsid, nil
}

// GetContext returns an identity's own and related objects for a DAP
func (g *Gateway) GetContext(dapid, uid string) *drive.Context {
	return g.Drive.GetDapContext(dapid, uid)
}

// FindIdentity returns the identity registered under a username, or nil
func (g *Gateway) FindIdentity(uname string) (*object.BlockchainUser, error) {
	if !consensus.ValidateUsername(uname) {
		return nil, ErrInvalidUsername
	}
	return g.Chain.UserByName(uname), nil
}

// SearchIdentities returns identities whose username contains the pattern
func (g *Gateway) SearchIdentities(pattern string) []*object.BlockchainUser {
	return g.Chain.SearchUsers(pattern)
}

// GetDap returns a registered contract by id, or nil
func (g *Gateway) GetDap(dapid string) *object.DapContract {
	return g.Drive.GetDapContract(dapid)
}

// SearchDaps returns registered contracts whose name contains the pattern
func (g *Gateway) SearchDaps(pattern string) []*object.DapContract {
	return g.Drive.SearchDapContracts(pattern)
}

// Package drive simulates the distributed document store: packets are
// pinned while unconfirmed, committed once their header appears in a
// block, and folded into per-identity object collections with a derived
// cross-user relation view.
package drive

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tonicpow/dap-engine-go/consensus"
	"github.com/tonicpow/dap-engine-go/ledger"
	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
	"github.com/tonicpow/dap-engine-go/store"
)

// Store collections
const (
	collPackets   = "drive.packets"
	collContracts = "drive.index.dapcontracts"
	collObjects   = "drive.index.dapobjects"
)

// Rejection and consistency errors
var (
	ErrInvalidHeader = errors.New("invalid transition header")
	ErrInvalidPacket = errors.New("invalid transition packet")
	ErrDapNotFound   = errors.New("dap contract not found")

	// ErrPinnedPacketMissing indicates a store inconsistency: a header was
	// confirmed but its packet is not pinned locally
	ErrPinnedPacketMissing = errors.New("pinned packet not found")
)

// dapData is one DAP's object collection across all identities
type dapData struct {
	DapID   string               `json:"dapId" bson:"dapId"`
	Objects []object.OwnedObject `json:"objects" bson:"objects"`
}

// Context is a read-only derived view of one identity's documents for a
// DAP: its own objects plus objects from other identities that reference
// it through a relation field
type Context struct {
	DapID   string             `json:"dapid" bson:"dapid"`
	UID     string             `json:"uid" bson:"uid"`
	Objects []object.DapObject `json:"objects" bson:"objects"`
	Related []object.DapObject `json:"related" bson:"related"`
}

// Drive is the document index. Confirmed state is only written by the
// block-observation path.
type Drive struct {
	db        store.Store
	chain     *ledger.Ledger
	validator *consensus.Validator
	tip       ledger.BlockInfo
	log       *logrus.Entry
}

// New wires a document index to a ledger's new-block notifications
func New(db store.Store, chain *ledger.Ledger, validator *consensus.Validator) *Drive {
	d := &Drive{
		db:        db,
		chain:     chain,
		validator: validator,
		log:       logrus.WithField("component", "drive"),
	}
	chain.Subscribe(d.onNewBlock)
	return d
}

// PinPacket validates a header/packet pair against current state and
// persists the packet as unconfirmed, returning the packet's id. Pinning
// the same content twice is an idempotent success.
func (d *Drive) PinPacket(hdr *object.STHeader, pkt *object.STPacket) (string, error) {
	if err := object.AssignID(hdr, nil); err != nil {
		return "", err
	}
	if res := d.validator.ValidateSTHeader(hdr); !res.Valid {
		return "", errors.Wrap(ErrInvalidHeader, res.String())
	}

	var dapSchema schema.Def
	if pkt.IsObjects() {
		dapSchema = d.GetDapSchema(pkt.DapID)
		if dapSchema == nil {
			return "", ErrDapNotFound
		}
	}

	if res := d.validator.ValidateSTPacket(pkt, dapSchema); !res.Valid {
		return "", errors.Wrap(ErrInvalidPacket, res.String())
	}

	dapData := d.ownedObjects(pkt.DapID)
	if res := d.validator.ValidateTransitionData(hdr, pkt, dapData, dapSchema); !res.Valid {
		d.log.WithField("reason", res.String()).Warn("packet rejected")
		return "", errors.Wrap(ErrInvalidPacket, res.String())
	}

	if err := object.AssignID(pkt, dapSchema); err != nil {
		return "", err
	}
	pkt.Meta["tsid"] = hdr.MetaID()
	pkt.Meta["uid"] = hdr.UID

	// multiple headers may reference the same packet content
	if _, pinned := d.findPacket(pkt.MetaID(), false); !pinned {
		d.db.Insert(collPackets, pkt)
		d.log.WithField("pakid", pkt.MetaID()).Info("pinned packet")
	}
	return pkt.MetaID(), nil
}

// onNewBlock imports transitions confirmed since the last seen block.
// A packet that fails here is skipped whole; it never partially applies
// and never corrupts committed state.
func (d *Drive) onNewBlock(info ledger.BlockInfo) {
	d.log.WithFields(logrus.Fields{"height": info.Height, "hash": info.Hash}).Info("detected new block")

	for _, hdr := range d.chain.ListTransitionsSinceBlock(d.tip.Hash) {
		if hdr.PakID == "" {
			continue
		}
		if err := d.commitPacket(hdr, info); err != nil {
			d.log.WithError(err).WithField("pakid", hdr.PakID).Error("commit failed")
		}
	}

	d.tip = info
}

func (d *Drive) commitPacket(hdr *object.STHeader, info ledger.BlockInfo) error {
	if err := object.AssignID(hdr, nil); err != nil {
		return err
	}

	pkt, found := d.findPacket(hdr.PakID, false)
	if !found {
		return ErrPinnedPacketMissing
	}

	switch {
	case pkt.IsContract():
		d.registerContract(hdr, pkt)

	case pkt.IsObjects():
		if err := d.applyObjects(hdr, pkt); err != nil {
			return err
		}
	}

	// the block hash in metadata marks the packet confirmed
	d.db.Update(collPackets,
		func(doc interface{}) bool { return doc.(*object.STPacket).MetaID() == pkt.MetaID() },
		func(doc interface{}) interface{} {
			p := doc.(*object.STPacket)
			p.Meta["block"] = info.Hash
			return p
		})

	d.log.WithField("pakid", pkt.MetaID()).Info("confirmed packet")
	return nil
}

// registerContract indexes a contract under the confirming header's id
// and initializes its empty object collection
func (d *Drive) registerContract(hdr *object.STHeader, pkt *object.STPacket) {
	contract := pkt.DapContract
	if contract.Meta == nil {
		contract.Meta = object.Meta{}
	}
	contract.Meta["dapid"] = hdr.MetaID()

	d.db.Insert(collContracts, contract)
	d.db.Insert(collObjects, &dapData{DapID: hdr.MetaID(), Objects: []object.OwnedObject{}})
}

// applyObjects re-validates an object packet against current state and
// applies its mutations to the submitting identity's slot
func (d *Drive) applyObjects(hdr *object.STHeader, pkt *object.STPacket) error {
	dapSchema := d.GetDapSchema(pkt.DapID)
	if dapSchema == nil {
		return ErrDapNotFound
	}

	// state may have advanced since pinning
	current := d.ownedObjects(pkt.DapID)
	if res := d.validator.ValidateTransitionData(hdr, pkt, current, dapSchema); !res.Valid {
		return errors.Wrap(ErrInvalidPacket, res.String())
	}

	applied := make([]object.OwnedObject, len(current))
	copy(applied, current)

	for _, obj := range pkt.DapObjects {
		owned := object.OwnedObject{UserID: hdr.UID, Data: obj}

		switch obj.Act() {
		case object.ActCreate:
			applied = append(applied, owned)

		case object.ActUpdate:
			for i, existing := range applied {
				if existing.Data.ObjType() == obj.ObjType() && existing.Data.ID() == obj.ID() {
					applied[i] = owned
					break
				}
			}

		case object.ActDelete:
			kept := applied[:0:0]
			for _, existing := range applied {
				if existing.Data.ObjType() == obj.ObjType() && existing.Data.ID() == obj.ID() {
					continue
				}
				kept = append(kept, existing)
			}
			applied = kept

		default:
			return errors.Errorf("invalid dapobject action %d", obj.Act())
		}
	}

	updated := d.db.Update(collObjects,
		func(doc interface{}) bool { return doc.(*dapData).DapID == pkt.DapID },
		func(doc interface{}) interface{} {
			data := doc.(*dapData)
			data.Objects = applied
			return data
		})
	if !updated {
		return errors.Wrapf(ErrDapNotFound, "dap data %s", pkt.DapID)
	}
	return nil
}

func (d *Drive) findPacket(pakid string, confirmed bool) (*object.STPacket, bool) {
	doc, found := d.db.Find(collPackets, func(doc interface{}) bool {
		p := doc.(*object.STPacket)
		_, hasBlock := p.Meta["block"]
		return p.MetaID() == pakid && hasBlock == confirmed
	})
	if !found {
		return nil, false
	}
	return doc.(*object.STPacket), true
}

// GetDapContract returns the registered contract with the given dapid
func (d *Drive) GetDapContract(dapid string) *object.DapContract {
	doc, found := d.db.Find(collContracts, func(doc interface{}) bool {
		c := doc.(*object.DapContract)
		id, _ := c.Meta["dapid"].(string)
		return id == dapid
	})
	if !found {
		return nil
	}
	return doc.(*object.DapContract)
}

// SearchDapContracts returns contracts whose name contains the pattern
func (d *Drive) SearchDapContracts(pattern string) []*object.DapContract {
	docs := d.db.Search(collContracts, func(doc interface{}) bool {
		return strings.Contains(doc.(*object.DapContract).DapName, pattern)
	})
	contracts := make([]*object.DapContract, len(docs))
	for i, doc := range docs {
		contracts[i] = doc.(*object.DapContract)
	}
	return contracts
}

// GetDapSchema returns the schema of a registered contract, or nil
func (d *Drive) GetDapSchema(dapid string) schema.Def {
	contract := d.GetDapContract(dapid)
	if contract == nil {
		return nil
	}
	return contract.DapSchema
}

// GetDapData returns all identities' objects for a DAP with their owners
func (d *Drive) GetDapData(dapid string) []object.OwnedObject {
	return d.ownedObjects(dapid)
}

// ownedObjects returns all identities' objects for a DAP, with owners
func (d *Drive) ownedObjects(dapid string) []object.OwnedObject {
	doc, found := d.db.Find(collObjects, func(doc interface{}) bool {
		return doc.(*dapData).DapID == dapid
	})
	if !found {
		return nil
	}
	return doc.(*dapData).Objects
}

// GetDapSpace returns one identity's own objects for a DAP. Only
// block-confirmed mutations are visible.
func (d *Drive) GetDapSpace(dapid, uid string) []object.DapObject {
	var space []object.DapObject
	for _, owned := range d.ownedObjects(dapid) {
		if owned.UserID == uid {
			space = append(space, owned.Data)
		}
	}
	return space
}

// GetRelatedObjects scans all identities' objects for the DAP and returns
// those whose relation field references the given identity, annotated
// with the referencing identity's uid and username
func (d *Drive) GetRelatedObjects(dapid, uid string) []object.DapObject {
	dapSchema := d.GetDapSchema(dapid)
	if dapSchema == nil {
		return nil
	}
	relations := schema.SchemaRelations(dapSchema)

	var related []object.DapObject
	for _, owned := range d.ownedObjects(dapid) {
		fields := relations[owned.Data.ObjType()]
		if len(fields) == 0 || !isRelatedTo(owned.Data, fields, uid) {
			continue
		}

		annotated, err := cloneObject(owned.Data)
		if err != nil {
			d.log.WithError(err).Warn("skipping unserializable object")
			continue
		}
		annotated.SetMeta("uid", owned.UserID)
		if bu := d.chain.UserByID(owned.UserID); bu != nil {
			annotated.SetMeta("uname", bu.UName)
		}
		related = append(related, annotated)
	}
	return related
}

func isRelatedTo(obj object.DapObject, fields []string, uid string) bool {
	for _, field := range fields {
		if obj.RelationUserID(field) == uid {
			return true
		}
	}
	return false
}

func cloneObject(obj object.DapObject) (object.DapObject, error) {
	canon, err := object.Canonicalize(obj)
	if err != nil {
		return nil, err
	}
	m, ok := canon.(map[string]interface{})
	if !ok {
		return nil, errors.New("object is not a mapping")
	}
	return object.DapObject(m), nil
}

// GetDapContext returns an identity's own objects plus the objects of
// other identities that reference it
func (d *Drive) GetDapContext(dapid, uid string) *Context {
	return &Context{
		DapID:   dapid,
		UID:     uid,
		Objects: d.GetDapSpace(dapid, uid),
		Related: d.GetRelatedObjects(dapid, uid),
	}
}

// GetDapSpacePackets returns the confirmed packets an identity committed
// to a DAP
func (d *Drive) GetDapSpacePackets(dapid, uid string) []*object.STPacket {
	docs := d.db.Search(collPackets, func(doc interface{}) bool {
		p := doc.(*object.STPacket)
		pktUID, _ := p.Meta["uid"].(string)
		_, confirmed := p.Meta["block"]
		return p.DapID == dapid && pktUID == uid && confirmed
	})
	packets := make([]*object.STPacket, len(docs))
	for i, doc := range docs {
		packets[i] = doc.(*object.STPacket)
	}
	return packets
}

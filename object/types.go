// Package object defines the engine's document kinds and the codec that
// derives their canonical hashes, metadata ids, and composite primary keys.
package object

// Meta is the non-consensus metadata section of a document. It is never
// part of the document's canonical hash.
type Meta map[string]interface{}

// Registration actions carried on a SubTx
const (
	ActionRegister = 1
	ActionTopup    = 2
	ActionChangeKey = 3
	ActionDeactivate = 4
)

// DapObject opcodes
const (
	ActCreate = 1
	ActUpdate = 2
	ActDelete = 3
)

// InitialCredits is granted to every identity at registration
const InitialCredits = 100000

// SubTx is an identity registration record awaiting block inclusion
type SubTx struct {
	Pver   int    `json:"pver" bson:"pver"`
	Action int    `json:"action" bson:"action"`
	UName  string `json:"uname" bson:"uname"`
	PubKey string `json:"pubkey" bson:"pubkey"`
	Meta   Meta   `json:"meta,omitempty" bson:"meta,omitempty"`
}

// BlockchainUser is an identity derived from a confirmed SubTx. The uid is
// the hash of the founding registration and never changes.
type BlockchainUser struct {
	Pver    int    `json:"pver" bson:"pver"`
	UName   string `json:"uname" bson:"uname"`
	UID     string `json:"uid" bson:"uid"`
	PubKey  string `json:"pubkey" bson:"pubkey"`
	Credits int    `json:"credits" bson:"credits"`
	Meta    Meta   `json:"meta,omitempty" bson:"meta,omitempty"`
}

// STHeader is the signed envelope of a state transition. Signatures are
// opaque to the engine and stored unverified.
type STHeader struct {
	Pver  int    `json:"pver" bson:"pver"`
	Fee   int    `json:"fee" bson:"fee"`
	UID   string `json:"uid" bson:"uid"`
	PTSID string `json:"ptsid" bson:"ptsid"`
	PakID string `json:"pakid" bson:"pakid"`
	USig  string `json:"usig" bson:"usig"`
	QSig  string `json:"qsig" bson:"qsig"`
	Meta  Meta   `json:"meta,omitempty" bson:"meta,omitempty"`
}

// STPacket is the payload of a state transition: either one DapContract
// registration or a batch of DapObjects for a single DAP
type STPacket struct {
	Pver             int          `json:"pver" bson:"pver"`
	DapID            string       `json:"dapid,omitempty" bson:"dapid,omitempty"`
	DapName          string       `json:"dapname,omitempty" bson:"dapname,omitempty"`
	DapObjMerkleRoot string       `json:"dapobjmerkleroot,omitempty" bson:"dapobjmerkleroot,omitempty"`
	DapContract      *DapContract `json:"dapcontract,omitempty" bson:"dapcontract,omitempty"`
	DapObjects       []DapObject  `json:"dapobjects,omitempty" bson:"dapobjects,omitempty"`
	Meta             Meta         `json:"meta,omitempty" bson:"meta,omitempty"`
}

// DapContract wraps a registered DAP schema with its chain metadata
type DapContract struct {
	Pver      int                    `json:"pver" bson:"pver"`
	Idx       int                    `json:"idx" bson:"idx"`
	DapID     string                 `json:"dapid" bson:"dapid"`
	DapName   string                 `json:"dapname" bson:"dapname"`
	DapVer    string                 `json:"dapver" bson:"dapver"`
	DapSchema map[string]interface{} `json:"dapschema" bson:"dapschema"`
	Meta      Meta                   `json:"meta,omitempty" bson:"meta,omitempty"`
}

// DapObject is one application record conforming to a subschema of the
// active DAP. Field names beyond the base set are schema-defined.
type DapObject map[string]interface{}

// OwnedObject pairs a DapObject with its owning identity inside a DAP's
// object collection
type OwnedObject struct {
	UserID string    `json:"userId" bson:"userId"`
	Data   DapObject `json:"data" bson:"data"`
}

// ObjType returns the declared subschema name
func (o DapObject) ObjType() string {
	t, _ := o["objtype"].(string)
	return t
}

// ID returns the object's primary key field
func (o DapObject) ID() string {
	id, _ := o["id"].(string)
	return id
}

// Rev returns the revision counter
func (o DapObject) Rev() int {
	return intField(o["rev"])
}

// Act returns the mutation opcode
func (o DapObject) Act() int {
	return intField(o["act"])
}

// Meta returns the metadata section, creating it when absent
func (o DapObject) Meta() Meta {
	if m, ok := o["meta"].(map[string]interface{}); ok {
		return m
	}
	m := map[string]interface{}{}
	o["meta"] = m
	return m
}

// SetMeta stores a metadata value on the object
func (o DapObject) SetMeta(key string, val interface{}) {
	o.Meta()[key] = val
}

// RelationUserID returns the identity referenced by the named relation
// field, or "" when the field is absent
func (o DapObject) RelationUserID(field string) string {
	rel, _ := o[field].(map[string]interface{})
	if rel == nil {
		return ""
	}
	uid, _ := rel["userId"].(string)
	return uid
}

// values decoded from JSON arrive as float64
func intField(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func (m Meta) id() string {
	if m == nil {
		return ""
	}
	id, _ := m["id"].(string)
	return id
}

// MetaID returns the assigned content hash of a SubTx
func (t *SubTx) MetaID() string { return t.Meta.id() }

// MetaID returns the assigned content hash of an STHeader
func (h *STHeader) MetaID() string { return h.Meta.id() }

// MetaID returns the assigned content hash of an STPacket
func (p *STPacket) MetaID() string { return p.Meta.id() }

// MetaID returns the assigned content hash of a DapContract
func (c *DapContract) MetaID() string { return c.Meta.id() }

// IsContract reports whether the packet registers a DAP contract
func (p *STPacket) IsContract() bool { return p.DapContract != nil }

// IsObjects reports whether the packet carries object mutations
func (p *STPacket) IsObjects() bool { return len(p.DapObjects) > 0 }

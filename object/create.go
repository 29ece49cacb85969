package object

import "github.com/tonicpow/dap-engine-go/schema"

// Pver is the platform protocol version stamped on new instances
const Pver = 1

// NewSubTx builds an identity registration record and assigns its id
func NewSubTx(uname, pubkey string) (*SubTx, error) {
	t := &SubTx{
		Pver:   Pver,
		Action: ActionRegister,
		UName:  uname,
		PubKey: pubkey,
	}
	if err := AssignID(t, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// NewSTHeader builds a transition header referencing a packet and the
// submitter's previous transition, and assigns its id. Signatures are
// left empty for the surrounding application to fill in.
func NewSTHeader(pakid, uid, ptsid string) (*STHeader, error) {
	h := &STHeader{
		Pver:  Pver,
		Fee:   0,
		UID:   uid,
		PTSID: ptsid,
		PakID: pakid,
		USig:  "",
		QSig:  "",
	}
	if err := AssignID(h, nil); err != nil {
		return nil, err
	}
	return h, nil
}

// NewSTPacket builds an empty transition packet
func NewSTPacket() *STPacket {
	return &STPacket{Pver: Pver}
}

// NewDapContract wraps a DAP schema for registration, named from the
// schema title, and assigns its id
func NewDapContract(dapSchema schema.Def) (*DapContract, error) {
	title, _ := dapSchema["title"].(string)
	c := &DapContract{
		Pver:      Pver,
		Idx:       0,
		DapID:     "",
		DapName:   title,
		DapVer:    "",
		DapSchema: dapSchema,
	}
	if err := AssignID(c, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDapObject builds a create-opcode object of the given subschema type
func NewDapObject(typeName string) DapObject {
	return DapObject{
		"objtype": typeName,
		"rev":     0,
		"act":     ActCreate,
	}
}

// NewBlockchainUser derives an identity record from a registration. The
// uid is the hash of the founding registration record.
func NewBlockchainUser(t *SubTx) (*BlockchainUser, error) {
	uid, err := HashSubTx(t)
	if err != nil {
		return nil, err
	}
	return &BlockchainUser{
		Pver:    t.Pver,
		UName:   t.UName,
		UID:     uid,
		PubKey:  t.PubKey,
		Credits: InitialCredits,
	}, nil
}

package object

// Kind is the explicit tag distinguishing the engine's document kinds.
// Carried alongside payloads instead of being inferred from their shape.
type Kind int

// Document kinds
const (
	KindSubTx Kind = iota + 1
	KindBlockchainUser
	KindSTHeader
	KindSTPacket
	KindDapContract
	KindDapObject
)

// Keyword returns the system schema envelope key for the kind. DapObjects
// are user-typed and have no system envelope.
func (k Kind) Keyword() string {
	switch k {
	case KindSubTx:
		return "subtx"
	case KindBlockchainUser:
		return "blockchainuser"
	case KindSTHeader:
		return "stheader"
	case KindSTPacket:
		return "stpacket"
	case KindDapContract:
		return "dapcontract"
	}
	return ""
}

func (k Kind) String() string {
	if k == KindDapObject {
		return "dapobject"
	}
	return k.Keyword()
}

package consensus

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
)

const compiledCacheSize = 256

// Validator performs structural validation of documents against the
// system schema and DAP subschemas, caching compiled subschema validators
type Validator struct {
	sys   *gojsonschema.Schema
	cache *lru.Cache
}

// NewValidator compiles the system schema and prepares the subschema cache
func NewValidator() (*Validator, error) {
	sys, err := schema.CompileSystemSchema()
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(compiledCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "validator cache")
	}
	return &Validator{sys: sys, cache: cache}, nil
}

// validateSysObject checks a document against its system schema envelope
func (v *Validator) validateSysObject(kind object.Kind, doc interface{}) *Result {
	canon, err := object.Canonicalize(doc)
	if err != nil {
		return Fail(KindStructural, kind.String(), "", "", err.Error())
	}
	wrapped := map[string]interface{}{kind.Keyword(): canon}

	res, err := v.sys.Validate(gojsonschema.NewGoLoader(wrapped))
	if err != nil {
		return Fail(KindStructural, kind.String(), "", "", err.Error())
	}
	if !res.Valid() {
		first := res.Errors()[0]
		return Fail(KindStructural, kind.String(), "", first.Field(), first.Description())
	}
	return OK()
}

// ValidateSubTx checks a registration record structurally
func (v *Validator) ValidateSubTx(t *object.SubTx) *Result {
	return v.validateSysObject(object.KindSubTx, t)
}

// ValidateBlockchainUser checks a derived identity record structurally
func (v *Validator) ValidateBlockchainUser(u *object.BlockchainUser) *Result {
	return v.validateSysObject(object.KindBlockchainUser, u)
}

// ValidateSTHeader checks a transition header structurally
func (v *Validator) ValidateSTHeader(h *object.STHeader) *Result {
	return v.validateSysObject(object.KindSTHeader, h)
}

// ValidateDapContract checks a contract record structurally
func (v *Validator) ValidateDapContract(c *object.DapContract) *Result {
	return v.validateSysObject(object.KindDapContract, c)
}

// ValidateSTPacket checks a packet structurally. Object packets also
// validate every carried object against its subschema.
func (v *Validator) ValidateSTPacket(p *object.STPacket, dapSchema schema.Def) *Result {
	if res := v.validateSysObject(object.KindSTPacket, p); !res.Valid {
		return res
	}
	if p.IsObjects() {
		if dapSchema == nil {
			return Fail(KindStructural, "stpacket", "", "dapid", "dap schema required for object packets")
		}
		return v.ValidatePacketObjects(p.DapObjects, dapSchema)
	}
	return OK()
}

// ValidateDapObject checks one object against its declared subschema
func (v *Validator) ValidateDapObject(obj object.DapObject, dapSchema schema.Def) *Result {
	objType := obj.ObjType()
	sub := schema.SubSchema(dapSchema, objType)
	if sub == nil {
		return Fail(KindStructural, objType, obj.ID(), "objtype", "unknown subschema")
	}

	compiled, err := v.compiledSubSchema(sub)
	if err != nil {
		return Fail(KindStructural, objType, obj.ID(), "", err.Error())
	}

	canon, err := object.Canonicalize(obj)
	if err != nil {
		return Fail(KindStructural, objType, obj.ID(), "", err.Error())
	}
	res, err := compiled.Validate(gojsonschema.NewGoLoader(canon))
	if err != nil {
		return Fail(KindStructural, objType, obj.ID(), "", err.Error())
	}
	if !res.Valid() {
		first := res.Errors()[0]
		return Fail(KindStructural, objType, obj.ID(), first.Field(), first.Description())
	}
	return OK()
}

// ValidatePacketObjects checks every object of a batch against the schema
func (v *Validator) ValidatePacketObjects(objs []object.DapObject, dapSchema schema.Def) *Result {
	for _, obj := range objs {
		if res := v.ValidateDapObject(obj, dapSchema); !res.Valid {
			return res
		}
	}
	return OK()
}

func (v *Validator) compiledSubSchema(sub map[string]interface{}) (*gojsonschema.Schema, error) {
	key, err := cacheKey(sub)
	if err != nil {
		return nil, err
	}
	if cached, found := v.cache.Get(key); found {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := schema.CompileSubSchema(sub)
	if err != nil {
		return nil, err
	}
	v.cache.Add(key, compiled)
	return compiled, nil
}

func cacheKey(sub map[string]interface{}) (string, error) {
	b, err := object.CanonicalJSON(sub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

// ValidateUsername reports whether a username is acceptable for lookup or
// registration
func ValidateUsername(uname string) bool {
	return usernamePattern.MatchString(uname)
}

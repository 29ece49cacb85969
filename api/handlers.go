package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apirouter "github.com/mrz1836/go-api-router"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
)

type registerIdentityBody struct {
	UName  string `json:"uname"`
	PubKey string `json:"pubkey"`
}

func (s *Server) registerIdentity(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body registerIdentityBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}

	subtx, err := object.NewSubTx(body.UName, body.PubKey)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}

	uid, err := s.gw.RegisterIdentity(subtx)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	apirouter.ReturnResponse(w, req, http.StatusCreated, map[string]string{"uid": uid})
}

type registerSchemaBody struct {
	UID    string     `json:"uid"`
	Schema schema.Def `json:"schema"`
}

func (s *Server) registerSchema(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body registerSchemaBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}

	dapid, err := s.gw.RegisterSchema(body.UID, body.Schema)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	apirouter.ReturnResponse(w, req, http.StatusCreated, map[string]string{"dapid": dapid})
}

type submitMutationBody struct {
	Header *object.STHeader `json:"stheader"`
	Packet *object.STPacket `json:"stpacket"`
}

func (s *Server) submitMutation(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body submitMutationBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if body.Header == nil || body.Packet == nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, "stheader and stpacket are required")
		return
	}

	tsid, err := s.gw.SubmitMutation(body.Header, body.Packet)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	apirouter.ReturnResponse(w, req, http.StatusCreated, map[string]string{"tsid": tsid})
}

func (s *Server) findIdentity(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	uname := params.GetString("uname")

	bu, err := s.gw.FindIdentity(uname)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if bu == nil {
		apirouter.ReturnResponse(w, req, http.StatusNotFound, nil)
		return
	}
	apirouter.ReturnResponse(w, req, http.StatusOK, bu)
}

func (s *Server) searchIdentities(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	pattern := params.GetString("pattern")
	apirouter.ReturnResponse(w, req, http.StatusOK, s.gw.SearchIdentities(pattern))
}

func (s *Server) getDap(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	dapid := params.GetString("dapid")

	contract := s.gw.GetDap(dapid)
	if contract == nil {
		apirouter.ReturnResponse(w, req, http.StatusNotFound, nil)
		return
	}
	apirouter.ReturnResponse(w, req, http.StatusOK, contract)
}

func (s *Server) searchDaps(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	pattern := params.GetString("pattern")
	apirouter.ReturnResponse(w, req, http.StatusOK, s.gw.SearchDaps(pattern))
}

func (s *Server) getContext(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	dapid := params.GetString("dapid")
	uid := params.GetString("uid")
	apirouter.ReturnResponse(w, req, http.StatusOK, s.gw.GetContext(dapid, uid))
}

func (s *Server) getDapSpace(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	params := apirouter.GetParams(req)
	dapid := params.GetString("dapid")
	uid := params.GetString("uid")
	apirouter.ReturnResponse(w, req, http.StatusOK, s.gw.Drive.GetDapSpace(dapid, uid))
}

// findDocs serves base64-encoded bson filters against the query mirror
func (s *Server) findDocs(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	if s.mirror == nil {
		apirouter.ReturnResponse(w, req, http.StatusNotImplemented, "query mirror not configured")
		return
	}

	params := apirouter.GetParams(req)
	collection := params.GetString("collection")
	limit := params.GetInt("limit")
	skip := params.GetInt("skip")
	find := params.GetString("query")

	q := bson.M{}
	if len(find) > 0 {
		decoded, err := base64.StdEncoding.DecodeString(find)
		if err != nil {
			apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
			return
		}
		if err = json.Unmarshal(decoded, &q); err != nil {
			apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
			return
		}
	}

	records, err := s.mirror.GetStateDocs(req.Context(), collection, int64(limit), int64(skip), q)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusExpectationFailed, err.Error())
		return
	}

	apirouter.ReturnResponse(w, req, http.StatusOK, records)
}

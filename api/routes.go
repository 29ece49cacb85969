package api

import (
	apirouter "github.com/mrz1836/go-api-router"

	"github.com/tonicpow/dap-engine-go/database"
	"github.com/tonicpow/dap-engine-go/gateway"
)

// Server exposes the gateway surface over HTTP. The mirror connection is
// optional; the find endpoint requires it.
type Server struct {
	gw     *gateway.Gateway
	mirror *database.Connection
}

// NewServer wraps a gateway (and optional query mirror) for HTTP
func NewServer(gw *gateway.Gateway, mirror *database.Connection) *Server {
	return &Server{gw: gw, mirror: mirror}
}

// RegisterRoutes registers all the package specific routes
func (s *Server) RegisterRoutes(router *apirouter.Router) {

	// gateway surface
	router.HTTPRouter.POST("/identity", router.Request(s.registerIdentity))
	router.HTTPRouter.POST("/dap", router.Request(s.registerSchema))
	router.HTTPRouter.POST("/transition", router.Request(s.submitMutation))

	router.HTTPRouter.GET("/identity/:uname", router.Request(s.findIdentity))
	router.HTTPRouter.GET("/identities/:pattern", router.Request(s.searchIdentities))
	router.HTTPRouter.GET("/dap/:dapid", router.Request(s.getDap))
	router.HTTPRouter.GET("/daps/:pattern", router.Request(s.searchDaps))
	router.HTTPRouter.GET("/context/:dapid/:uid", router.Request(s.getContext))
	router.HTTPRouter.GET("/space/:dapid/:uid", router.Request(s.getDapSpace))

	// mirror find
	router.HTTPRouter.GET("/find/:collection", router.Request(s.findDocs))
}

package config

import "os"

// Defaults for the local engine stack.
const (
	DefaultAddr         = ":8888"
	DefaultDatabaseName = "dapengine"
)

// Addr returns the listen address for the HTTP server
func Addr() string {
	if addr := os.Getenv("DAP_ENGINE_ADDR"); len(addr) > 0 {
		return addr
	}
	return DefaultAddr
}

// MongoURL returns the connection string for the query mirror.
// An empty value disables mirroring entirely.
func MongoURL() string {
	return os.Getenv("DAP_ENGINE_MONGO_URL")
}

// DatabaseName returns the mongo database used by the query mirror
func DatabaseName() string {
	if name := os.Getenv("DAP_ENGINE_MONGO_DB"); len(name) > 0 {
		return name
	}
	return DefaultDatabaseName
}

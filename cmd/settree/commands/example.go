package commands

import (
	"time"

	"github.com/dshills/settree/internal/config/annotated"
	"github.com/dshills/settree/internal/config/tree"
)

// Example is the settings of a small HTTP daemon.
type Example struct {
	Debug    bool   `comment:"Enable debug output"`
	LogLevel string `comment:"Minimum log level" oneof:"debug info warn error"`

	Server struct {
		Host           string        `comment:"Listen address" minlen:"1"`
		Port           int           `comment:"Listen port" min:"1" max:"65535"`
		ReadTimeout    time.Duration `comment:"Maximum time to read a request"`
		AllowedOrigins []string      `comment:"Origins allowed for CORS requests" unique:"true"`
	} `comment:"HTTP server"`

	Cache struct {
		Size int           `comment:"Cache size in entries, a multiple of 64" min:"0" max:"1048576" step:"64"`
		TTL  time.Duration `comment:"Entry lifetime"`
	} `comment:"Response cache"`

	Limits map[string]uint32 `comment:"Requests per minute by route" maxsize:"32"`

	Theme struct {
		Accent string `comment:"Accent colour of the status page" regex:"#[0-9a-fA-F]{6}"`
	} `comment:"Status page"`

	Plugins struct {
		Enabled bool     `comment:"Load plugins at startup"`
		Paths   []string `comment:"Plugin search paths"`
	} `comment:"Plugins, stored apart from the main file" separate:"true"`
}

// DefaultExample returns the default example settings.
func DefaultExample() Example {
	var e Example
	e.LogLevel = "info"
	e.Server.Host = "localhost"
	e.Server.Port = 8080
	e.Server.ReadTimeout = 15 * time.Second
	e.Cache.Size = 4096
	e.Cache.TTL = 5 * time.Minute
	e.Limits = map[string]uint32{"default": 600}
	e.Theme.Accent = "#3366ff"
	return e
}

func exampleTree() (*tree.Branch, error) {
	e := DefaultExample()
	return annotated.Build(&e, annotated.WithComment("settree example daemon"))
}

package config

import (
	"fmt"
	"strings"
)

const defaultPProfAddr = "localhost:6060"

// PProfConfig enables the net/http/pprof endpoints on a separate listener.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// String returns a string representation of the pprof configuration.
func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  pprof.addr: %s\n", c.Addr))
	}
	return b.String()
}

// Validate defaults the address to loopback so profiles are not exposed by accident.
func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		c.Addr = defaultPProfAddr
	}
	if !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("invalid pprof address, expected host:port: %q", c.Addr)
	}
	return nil
}

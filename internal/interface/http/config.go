package httpservice

import (
	"fmt"
	"net"
)

type Config struct {
	Port               uint32
	CORSAllowedOrigins []string
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" && len(c.CORSAllowedOrigins) > 1 {
			return fmt.Errorf("wildcard cors origin must be the only one")
		}
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

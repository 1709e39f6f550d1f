package config

import "time"

// JWT is the signing setup shared by the auth service and middleware.
type JWT struct {
	Secret     []byte
	Expiration time.Duration
}

func (c *Config) JWT() JWT {
	return JWT{Secret: []byte(c.JWTSecret), Expiration: c.JWTExpiration}
}

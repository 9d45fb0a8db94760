package model

import (
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// Origin identifies the channel an order was placed through.
type Origin string

const (
	OriginTable Origin = "TABLE"
	OriginKiosk Origin = "KIOSK"
)

// Valid reports whether the origin is one of the known channels.
func (o Origin) Valid() bool {
	return o == OriginTable || o == OriginKiosk
}

// ParseOrigin accepts an origin tag in any letter case.
func ParseOrigin(raw string) (Origin, error) {
	origin := Origin(strings.ToUpper(strings.TrimSpace(raw)))
	if !origin.Valid() {
		return "", fmt.Errorf("%w: unknown origin %q", domainErrors.ErrValidation, raw)
	}
	return origin, nil
}

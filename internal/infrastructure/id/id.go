// Package id issues entity ids and order-number suffixes.
package id

import (
	"strings"

	"github.com/google/uuid"
)

const suffixLen = 8

type Generator struct{}

func New() Generator { return Generator{} }

func (Generator) NewID() string { return uuid.NewString() }

// NewSuffix returns eight upper-case hex characters from a random UUID.
func (Generator) NewSuffix() string {
	u := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:suffixLen])
}

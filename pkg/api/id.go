package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ID prefixes by object kind.
const (
	PrefixResponse     = "resp_"
	PrefixItem         = "item_"
	PrefixMessage      = "msg_"
	PrefixFunctionCall = "fc_"
)

var idPatterns = map[string]*regexp.Regexp{
	PrefixResponse:     regexp.MustCompile(`^resp_[a-zA-Z0-9]{24}$`),
	PrefixItem:         regexp.MustCompile(`^item_[a-zA-Z0-9]{24}$`),
	PrefixMessage:      regexp.MustCompile(`^msg_[a-zA-Z0-9]{24}$`),
	PrefixFunctionCall: regexp.MustCompile(`^fc_[a-zA-Z0-9]{24}$`),
}

// NewID returns prefix followed by 24 cryptographically random
// alphanumeric characters.
func NewID(prefix string) string {
	return prefix + randomAlphanumeric(idLength)
}

// NewResponseID generates a new response ID with the "resp_" prefix.
func NewResponseID() string { return NewID(PrefixResponse) }

// NewItemID generates a new generic item ID with the "item_" prefix.
func NewItemID() string { return NewID(PrefixItem) }

// NewItemIDFor picks the conventional prefix for an item of type t.
func NewItemIDFor(t ItemType) string {
	switch t {
	case ItemTypeMessage:
		return NewID(PrefixMessage)
	case ItemTypeFunctionCall:
		return NewID(PrefixFunctionCall)
	}
	return NewID(PrefixItem)
}

// ValidateResponseID checks whether id is a generated response ID.
func ValidateResponseID(id string) bool {
	return idPatterns[PrefixResponse].MatchString(id)
}

// ValidateItemID checks whether id is a generated item ID of any kind.
func ValidateItemID(id string) bool {
	for prefix, p := range idPatterns {
		if prefix != PrefixResponse && p.MatchString(id) {
			return true
		}
	}
	return false
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}

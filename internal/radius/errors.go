package radius

import (
	"errors"
	"fmt"
)

// Sentinel errors for the RADIUS codec. Callers should use errors.Is
// against these rather than comparing formatted strings; each is wrapped
// with fmt.Errorf("...: %w", ...) at the point of failure so the message
// carries context while remaining matchable.
var (
	// ErrMalformedIPAddr indicates an IPv4/IPv6 address string or prefix
	// could not be parsed, or a byte slice did not match any of the
	// lengths this codec accepts.
	ErrMalformedIPAddr = errors.New("malformed ip address")

	// ErrMalformedAttribute indicates an attribute's value bytes violate
	// its declared type's width constraint, or a salt-decrypted value is
	// internally inconsistent.
	ErrMalformedAttribute = errors.New("malformed attribute")

	// ErrMalformedPacket indicates a header or TLV could not be parsed:
	// truncated buffer, a length field disagreeing with the data present.
	ErrMalformedPacket = errors.New("malformed radius packet")

	// ErrValidation indicates a Request or Response Authenticator did not
	// match its expected MD5 digest.
	ErrValidation = errors.New("authenticator validation failed")

	// ErrMissingAttribute indicates a lookup against the dictionary found
	// no attribute definition for the given name or code.
	ErrMissingAttribute = errors.New("attribute not defined in dictionary")

	// ErrDictionaryParse indicates a dictionary file line could not be
	// parsed; wrapped by DictionaryError, which carries file/line/reason.
	ErrDictionaryParse = errors.New("dictionary parse error")
)

// DictionaryError reports the file, line, and reason a dictionary file
// failed to parse.
type DictionaryError struct {
	File   string
	Line   int
	Reason string
}

func (e *DictionaryError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

func (e *DictionaryError) Unwrap() error {
	return ErrDictionaryParse
}

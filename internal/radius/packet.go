package radius

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Code identifies a RADIUS packet's type (RFC 2865 §4.1, RFC 2866 §4.1,
// RFC 5176 §3).
type Code uint8

// Packet codes. Numeric values match the codes on the wire.
const (
	CodeAccessRequest      Code = 1
	CodeAccessAccept       Code = 2
	CodeAccessReject       Code = 3
	CodeAccountingRequest  Code = 4
	CodeAccountingResponse Code = 5
	CodeAccessChallenge    Code = 11
	CodeStatusServer       Code = 12
	CodeStatusClient       Code = 13
	CodeDisconnectRequest  Code = 40
	CodeDisconnectACK      Code = 41
	CodeDisconnectNAK      Code = 42
	CodeCoARequest         Code = 43
	CodeCoAACK             Code = 44
	CodeCoANAK             Code = 45
)

var codeNames = map[Code]string{
	CodeAccessRequest:      "Access-Request",
	CodeAccessAccept:       "Access-Accept",
	CodeAccessReject:       "Access-Reject",
	CodeAccountingRequest:  "Accounting-Request",
	CodeAccountingResponse: "Accounting-Response",
	CodeAccessChallenge:    "Access-Challenge",
	CodeStatusServer:       "Status-Server",
	CodeStatusClient:       "Status-Client",
	CodeDisconnectRequest:  "Disconnect-Request",
	CodeDisconnectACK:      "Disconnect-ACK",
	CodeDisconnectNAK:      "Disconnect-NAK",
	CodeCoARequest:         "CoA-Request",
	CodeCoAACK:             "CoA-ACK",
	CodeCoANAK:             "CoA-NAK",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", c)
}

// IsResponse reports whether c is one of the reply codes whose
// Authenticator is a Response Authenticator (MD5 over the reply plus the
// request's Request Authenticator), rather than a freshly generated or
// zero-seeded Request Authenticator.
func (c Code) IsResponse() bool {
	switch c {
	case CodeAccessAccept, CodeAccessReject, CodeAccessChallenge,
		CodeAccountingResponse, CodeDisconnectACK, CodeDisconnectNAK,
		CodeCoAACK, CodeCoANAK:
		return true
	default:
		return false
	}
}

// HeaderSize is the fixed RADIUS packet header size (RFC 2865 §3):
// code (1) + identifier (1) + length (2) + authenticator (16).
const HeaderSize = 20

// MaxPacketSize is the maximum RADIUS datagram size this codec accepts
// (RFC 2865 §3: "length... MUST NOT exceed 4096").
const MaxPacketSize = 4096

// MsgType keys the three RADIUS services a Server dispatches between:
// authentication, accounting, and change-of-authorization.
type MsgType uint8

const (
	MsgAuth MsgType = iota
	MsgAcct
	MsgCoA
)

func (m MsgType) String() string {
	switch m {
	case MsgAuth:
		return "auth"
	case MsgAcct:
		return "acct"
	case MsgCoA:
		return "coa"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Packet is a decoded or to-be-encoded RADIUS datagram. Attributes are
// kept in wire order; order is preserved across a decode/re-encode
// round trip.
type Packet struct {
	Code          Code
	Identifier    uint8
	Authenticator [16]byte
	Attributes    []*Attribute

	// requestAuthenticator, when set by NewReplyPacket, seeds the
	// Response Authenticator computed by ToBytes for reply codes.
	requestAuthenticator [16]byte
	isReply              bool
}

// NewRequestPacket builds a fresh request packet. For CodeAccessRequest
// the Authenticator is filled with 16 random bytes, per RFC 2865 §4.1. For
// CodeAccountingRequest and other non-reply request codes, ToBytes
// computes the Request Authenticator as MD5(header-with-zero-auth ||
// attributes || secret) per RFC 2866 §4.1, once secret is known.
func NewRequestPacket(code Code, identifier uint8, attrs []*Attribute) (*Packet, error) {
	p := &Packet{Code: code, Identifier: identifier, Attributes: attrs}
	if code == CodeAccessRequest {
		if _, err := rand.Read(p.Authenticator[:]); err != nil {
			return nil, fmt.Errorf("generating request authenticator: %w", err)
		}
	}
	return p, nil
}

// NewReplyPacket builds a reply to a previously received request, copying
// the request's Request Authenticator out of requestBytes so ToBytes can
// compute the Response Authenticator.
func NewReplyPacket(code Code, identifier uint8, attrs []*Attribute, requestBytes []byte) (*Packet, error) {
	if len(requestBytes) < HeaderSize {
		return nil, fmt.Errorf("request too short to extract authenticator: %w", ErrMalformedPacket)
	}
	p := &Packet{Code: code, Identifier: identifier, Attributes: attrs, isReply: true}
	copy(p.requestAuthenticator[:], requestBytes[4:20])
	return p, nil
}

// Len returns the total encoded size of the packet: header plus the sum
// of each attribute's encoded TLV length.
func (p *Packet) Len() (int, error) {
	n := HeaderSize
	for _, a := range p.Attributes {
		tlv, err := a.encodeTLV()
		if err != nil {
			return 0, err
		}
		n += len(tlv)
	}
	return n, nil
}

// ToBytes serializes the packet. secret is required whenever the
// Authenticator must be computed (accounting requests and any reply
// code); it is ignored for an AccessRequest, whose Authenticator was
// already generated by NewRequestPacket.
func (p *Packet) ToBytes(secret []byte) ([]byte, error) {
	body, err := p.encodeAttributes()
	if err != nil {
		return nil, err
	}

	total := HeaderSize + len(body)
	if total > MaxPacketSize {
		return nil, fmt.Errorf("packet length %d exceeds %d: %w", total, MaxPacketSize, ErrMalformedPacket)
	}

	buf := make([]byte, total)
	buf[0] = byte(p.Code)
	buf[1] = p.Identifier
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[20:], body)

	switch {
	case p.Code == CodeAccessRequest && !p.isReply:
		copy(buf[4:20], p.Authenticator[:])
	case p.isReply || p.Code.IsResponse():
		copy(buf[4:20], p.requestAuthenticator[:])
		sum := md5.Sum(append(append([]byte{}, buf...), secret...))
		copy(buf[4:20], sum[:])
	default:
		// Request Authenticator for non-Access requests (e.g. Accounting-
		// Request, RFC 2866 §4.1): MD5 over the packet with a zeroed
		// authenticator field, plus the shared secret.
		sum := md5.Sum(append(append([]byte{}, buf...), secret...))
		copy(buf[4:20], sum[:])
		p.Authenticator = sum
	}
	return buf, nil
}

func (p *Packet) encodeAttributes() ([]byte, error) {
	var body []byte
	for _, a := range p.Attributes {
		tlv, err := a.encodeTLV()
		if err != nil {
			return nil, err
		}
		body = append(body, tlv...)
	}
	return body, nil
}

// ParsePacket decodes a received datagram into a Packet. It validates
// the fixed header, the declared length against the buffer size, and
// each attribute TLV in turn.
func ParsePacket(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("packet length %d below header size %d: %w", len(buf), HeaderSize, ErrMalformedPacket)
	}
	length := int(binary.BigEndian.Uint16(buf[2:4]))
	if length < HeaderSize || length > len(buf) {
		return nil, fmt.Errorf("declared length %d inconsistent with buffer of %d bytes: %w", length, len(buf), ErrMalformedPacket)
	}

	p := &Packet{Code: Code(buf[0]), Identifier: buf[1]}
	copy(p.Authenticator[:], buf[4:20])

	rest := buf[HeaderSize:length]
	for len(rest) > 0 {
		attr, n, err := decodeTLV(rest)
		if err != nil {
			return nil, err
		}
		p.Attributes = append(p.Attributes, attr)
		rest = rest[n:]
	}
	return p, nil
}

// VerifyResponseAuthenticator recomputes the Response Authenticator of a
// received reply against the Request Authenticator that was sent, and
// reports whether it matches.
func VerifyResponseAuthenticator(replyBytes []byte, requestAuthenticator [16]byte, secret []byte) error {
	if len(replyBytes) < HeaderSize {
		return fmt.Errorf("reply too short: %w", ErrMalformedPacket)
	}
	got := make([]byte, len(replyBytes))
	copy(got, replyBytes)
	received := make([]byte, 16)
	copy(received, got[4:20])
	copy(got[4:20], requestAuthenticator[:])

	sum := md5.Sum(append(got, secret...))
	for i := range sum {
		if sum[i] != received[i] {
			return fmt.Errorf("response authenticator mismatch: %w", ErrValidation)
		}
	}
	return nil
}

package radius

import "fmt"

// vsaType is the RADIUS attribute code reserved for Vendor-Specific
// Attributes (RFC 2865 §5.26).
const vsaType = 26

// tlvHeaderSize is the type+length overhead of every attribute TLV.
const tlvHeaderSize = 2

// vsaHeaderSize is the vendor-id overhead inside a VSA's value, before its
// nested vendor-type/vendor-length/vendor-value TLV.
const vsaHeaderSize = 4

// Attribute is one decoded TLV from a packet's attribute list. Code and
// Value are always populated; VendorID is nonzero only for attributes
// carried inside a Vendor-Specific Attribute.
type Attribute struct {
	Code     uint8
	VendorID uint32
	Value    []byte
}

// CreateAttributeByName builds an Attribute from raw value bytes, looking
// up its code and vendor scope (if any) in dict and validating the value
// against the declared type's width constraint.
func CreateAttributeByName(dict *Dictionary, name string, value []byte) (*Attribute, error) {
	def, err := dict.AttributeByName(name)
	if err != nil {
		return nil, err
	}
	if err := validateWidth(def.Type, value); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	return &Attribute{Code: def.Code, VendorID: def.VendorID, Value: value}, nil
}

// CreateAttributeByID is CreateAttributeByName's numeric twin.
func CreateAttributeByID(dict *Dictionary, code uint8, vendorID uint32, value []byte) (*Attribute, error) {
	def, err := dict.AttributeByCode(code, vendorID)
	if err != nil {
		return nil, err
	}
	if err := validateWidth(def.Type, value); err != nil {
		return nil, fmt.Errorf("attribute code %d: %w", code, err)
	}
	return &Attribute{Code: def.Code, VendorID: def.VendorID, Value: value}, nil
}

// validateWidth checks value against the byte-width constraints each
// attribute type places on its wire value.
func validateWidth(t AttrType, value []byte) error {
	switch t {
	case TypeIPAddr:
		if len(value) != 4 && len(value) != 6 {
			return fmt.Errorf("ipaddr value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeIPv6Addr:
		if len(value) != 16 && len(value) != 18 {
			return fmt.Errorf("ipv6addr value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeIPv6Prefix:
		if len(value) < 2 || len(value) > 18 {
			return fmt.Errorf("ipv6prefix value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeInteger:
		if len(value) != 4 {
			return fmt.Errorf("integer value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeInteger64:
		if len(value) != 8 {
			return fmt.Errorf("integer64 value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeDate:
		if len(value) != 4 {
			return fmt.Errorf("date value len %d: %w", len(value), ErrMalformedAttribute)
		}
	case TypeString, TypeOctets:
		if len(value) > 253 {
			return fmt.Errorf("value len %d exceeds 253: %w", len(value), ErrMalformedAttribute)
		}
	}
	return nil
}

// encodeTLV serializes one attribute as its wire TLV, wrapping it in a
// Vendor-Specific Attribute envelope when VendorID is nonzero.
func (a *Attribute) encodeTLV() ([]byte, error) {
	if a.VendorID == 0 {
		return encodeSimpleTLV(a.Code, a.Value)
	}
	inner, err := encodeSimpleTLV(a.Code, a.Value)
	if err != nil {
		return nil, err
	}
	value := make([]byte, 0, vsaHeaderSize+len(inner))
	value = append(value, byte(a.VendorID>>24), byte(a.VendorID>>16), byte(a.VendorID>>8), byte(a.VendorID))
	value = append(value, inner...)
	return encodeSimpleTLV(vsaType, value)
}

func encodeSimpleTLV(code uint8, value []byte) ([]byte, error) {
	total := tlvHeaderSize + len(value)
	if total > 255 {
		return nil, fmt.Errorf("attribute %d value too long (%d bytes): %w", code, len(value), ErrMalformedAttribute)
	}
	out := make([]byte, total)
	out[0] = code
	out[1] = byte(total)
	copy(out[2:], value)
	return out, nil
}

// decodeTLV parses one TLV from the front of buf, returning the decoded
// attribute and the number of bytes consumed. A code-26 (Vendor-Specific)
// TLV is unwrapped into an Attribute carrying the inner vendor-type code
// and the nested vendor id.
func decodeTLV(buf []byte) (*Attribute, int, error) {
	if len(buf) < tlvHeaderSize {
		return nil, 0, fmt.Errorf("truncated attribute header: %w", ErrMalformedPacket)
	}
	code := buf[0]
	length := int(buf[1])
	if length < tlvHeaderSize || length > len(buf) {
		return nil, 0, fmt.Errorf("attribute code %d length %d exceeds buffer: %w", code, length, ErrMalformedPacket)
	}
	value := buf[tlvHeaderSize:length]

	if code != vsaType {
		return &Attribute{Code: code, Value: value}, length, nil
	}

	if len(value) < vsaHeaderSize+tlvHeaderSize {
		return nil, 0, fmt.Errorf("vendor-specific attribute too short: %w", ErrMalformedPacket)
	}
	vendorID := uint32(value[0])<<24 | uint32(value[1])<<16 | uint32(value[2])<<8 | uint32(value[3])
	inner := value[vsaHeaderSize:]
	innerCode := inner[0]
	innerLen := int(inner[1])
	if innerLen < tlvHeaderSize || innerLen > len(inner) {
		return nil, 0, fmt.Errorf("vendor-specific sub-attribute length %d exceeds value: %w", innerLen, ErrMalformedPacket)
	}
	return &Attribute{Code: innerCode, VendorID: vendorID, Value: inner[tlvHeaderSize:innerLen]}, length, nil
}

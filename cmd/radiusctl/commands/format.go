package commands

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/radiusgo/radiusd/internal/radius"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// formatPacket renders a decoded packet (header plus attributes) in the
// requested format.
func formatPacket(pkt *radius.Packet, dict *radius.Dictionary, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatPacketJSON(pkt, dict)
	case formatTable:
		return formatPacketTable(pkt, dict), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatPacketTable(pkt *radius.Packet, dict *radius.Dictionary) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Code:        %s\n", pkt.Code)
	fmt.Fprintf(&buf, "Identifier:  %d\n", pkt.Identifier)
	fmt.Fprintf(&buf, "Authenticator: %s\n", hex.EncodeToString(pkt.Authenticator[:]))
	fmt.Fprintln(&buf, "Attributes:")

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tVENDOR\tVALUE")
	for _, a := range pkt.Attributes {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", attributeName(dict, a), vendorLabel(a.VendorID), attributeValueString(dict, a))
	}
	_ = w.Flush()

	return buf.String()
}

func formatPacketJSON(pkt *radius.Packet, dict *radius.Dictionary) (string, error) {
	data, err := json.MarshalIndent(packetToView(pkt, dict), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal packet to JSON: %w", err)
	}
	return string(data), nil
}

type attributeView struct {
	Name     string `json:"name"`
	VendorID uint32 `json:"vendor_id,omitempty"`
	Value    string `json:"value"`
}

type packetView struct {
	Code          string          `json:"code"`
	Identifier    uint8           `json:"identifier"`
	Authenticator string          `json:"authenticator"`
	Attributes    []attributeView `json:"attributes"`
}

func packetToView(pkt *radius.Packet, dict *radius.Dictionary) *packetView {
	v := &packetView{
		Code:          pkt.Code.String(),
		Identifier:    pkt.Identifier,
		Authenticator: hex.EncodeToString(pkt.Authenticator[:]),
		Attributes:    make([]attributeView, 0, len(pkt.Attributes)),
	}
	for _, a := range pkt.Attributes {
		v.Attributes = append(v.Attributes, attributeView{
			Name:     attributeName(dict, a),
			VendorID: a.VendorID,
			Value:    attributeValueString(dict, a),
		})
	}
	return v
}

func vendorLabel(vendorID uint32) string {
	if vendorID == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", vendorID)
}

// attributeName resolves an attribute's dictionary name, falling back to
// its numeric code when the dictionary has no matching definition.
func attributeName(dict *radius.Dictionary, a *radius.Attribute) string {
	if dict == nil {
		return fmt.Sprintf("Attribute-%d", a.Code)
	}
	def, err := dict.AttributeByCode(a.Code, a.VendorID)
	if err != nil {
		return fmt.Sprintf("Attribute-%d", a.Code)
	}
	return def.Name
}

// attributeValueString renders an attribute's value bytes according to its
// dictionary type, falling back to hex when the type is unknown or the
// value fails to decode as that type.
func attributeValueString(dict *radius.Dictionary, a *radius.Attribute) string {
	if dict != nil {
		if def, err := dict.AttributeByCode(a.Code, a.VendorID); err == nil {
			if s, ok := decodeTypedValue(def.Type, a.Value); ok {
				return s
			}
		}
	}
	return hex.EncodeToString(a.Value)
}

func decodeTypedValue(t radius.AttrType, value []byte) (string, bool) {
	switch t {
	case radius.TypeString:
		return string(value), true
	case radius.TypeIPAddr:
		s, err := radius.BytesToIPv4String(value)
		return s, err == nil
	case radius.TypeIPv6Addr, radius.TypeIPv6Prefix:
		s, err := radius.BytesToIPv6String(value)
		return s, err == nil
	case radius.TypeInteger:
		if len(value) != 4 {
			return "", false
		}
		return fmt.Sprintf("%d", radius.BytesToInteger([4]byte(value))), true
	case radius.TypeInteger64:
		if len(value) != 8 {
			return "", false
		}
		return fmt.Sprintf("%d", radius.BytesToInteger64([8]byte(value))), true
	case radius.TypeDate:
		if len(value) != 4 {
			return "", false
		}
		return fmt.Sprintf("%d", radius.BytesToTimestamp([4]byte(value))), true
	default:
		return "", false
	}
}

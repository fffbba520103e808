package radius

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AttrType identifies the wire encoding of an attribute's value.
type AttrType uint8

// Attribute value types recognized by the dictionary parser and the
// attribute encoder/decoder.
const (
	TypeString AttrType = iota
	TypeOctets
	TypeIPAddr
	TypeIPv6Addr
	TypeIPv6Prefix
	TypeInteger
	TypeInteger64
	TypeDate
)

var typeNames = map[string]AttrType{
	"string":      TypeString,
	"octets":      TypeOctets,
	"ipaddr":      TypeIPAddr,
	"ipv6addr":    TypeIPv6Addr,
	"ipv6prefix":  TypeIPv6Prefix,
	"integer":     TypeInteger,
	"integer64":   TypeInteger64,
	"date":        TypeDate,
}

func (t AttrType) String() string {
	for name, v := range typeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// AttributeDef is one ATTRIBUTE declaration: a name, numeric code, value
// type, and (for vendor-scoped attributes) the owning vendor's id.
type AttributeDef struct {
	Name     string
	Code     uint8
	Type     AttrType
	VendorID uint32 // 0 for standard (non-vendor-specific) attributes
}

// vendorKey uniquely identifies an attribute definition's (vendor, code)
// slot: codes are unique per (vendor-id, code).
type vendorKey struct {
	vendorID uint32
	code     uint8
}

// Dictionary holds the parsed attribute, value-alias, and vendor tables
// that drive attribute encoding/decoding.
type Dictionary struct {
	byName  map[string]*AttributeDef
	byCode  map[vendorKey]*AttributeDef
	values  map[string]map[string]uint32 // attr name -> alias -> integer
	vendors map[string]uint32            // vendor name -> id
}

// NewDictionary returns an empty dictionary. LoadDictionaryFile builds a
// populated one from a file.
func NewDictionary() *Dictionary {
	return &Dictionary{
		byName:  make(map[string]*AttributeDef),
		byCode:  make(map[vendorKey]*AttributeDef),
		values:  make(map[string]map[string]uint32),
		vendors: make(map[string]uint32),
	}
}

// LoadDictionaryFile parses a textual dictionary file and any files it
// INCLUDEs (relative to the including file's directory), returning a
// populated Dictionary or a *DictionaryError.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	d := NewDictionary()
	if err := d.loadFile(path); err != nil {
		return nil, err
	}
	return d, nil
}

// loadFile parses one file into the receiver, tracking BEGIN-VENDOR scope
// and following INCLUDE directives.
func (d *Dictionary) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &DictionaryError{File: path, Line: 0, Reason: err.Error()}
	}
	defer f.Close()

	var vendorScope string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "VENDOR":
			if err := d.parseVendor(fields); err != nil {
				return &DictionaryError{File: path, Line: lineNo, Reason: err.Error()}
			}
		case "BEGIN-VENDOR":
			if len(fields) != 2 {
				return &DictionaryError{File: path, Line: lineNo, Reason: "BEGIN-VENDOR requires a vendor name"}
			}
			if vendorScope != "" {
				return &DictionaryError{File: path, Line: lineNo, Reason: "nested BEGIN-VENDOR"}
			}
			if _, ok := d.vendors[fields[1]]; !ok {
				return &DictionaryError{File: path, Line: lineNo, Reason: "BEGIN-VENDOR references unknown vendor " + fields[1]}
			}
			vendorScope = fields[1]
		case "END-VENDOR":
			if len(fields) != 2 || fields[1] != vendorScope {
				return &DictionaryError{File: path, Line: lineNo, Reason: "END-VENDOR does not match open BEGIN-VENDOR"}
			}
			vendorScope = ""
		case "ATTRIBUTE":
			if err := d.parseAttribute(fields, vendorScope); err != nil {
				return &DictionaryError{File: path, Line: lineNo, Reason: err.Error()}
			}
		case "VALUE":
			if err := d.parseValue(fields); err != nil {
				return &DictionaryError{File: path, Line: lineNo, Reason: err.Error()}
			}
		case "INCLUDE":
			if len(fields) != 2 {
				return &DictionaryError{File: path, Line: lineNo, Reason: "INCLUDE requires a path"}
			}
			incPath := fields[1]
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(path), incPath)
			}
			if err := d.loadFile(incPath); err != nil {
				return err
			}
		default:
			return &DictionaryError{File: path, Line: lineNo, Reason: "unrecognized directive " + fields[0]}
		}
	}
	if err := scanner.Err(); err != nil {
		return &DictionaryError{File: path, Line: lineNo, Reason: err.Error()}
	}
	if vendorScope != "" {
		return &DictionaryError{File: path, Line: lineNo, Reason: "missing END-VENDOR for " + vendorScope}
	}
	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func (d *Dictionary) parseVendor(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("VENDOR requires name and id")
	}
	id, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid vendor id %q: %w", fields[2], err)
	}
	d.vendors[fields[1]] = uint32(id)
	return nil
}

func (d *Dictionary) parseAttribute(fields []string, vendorScope string) error {
	if len(fields) != 4 {
		return fmt.Errorf("ATTRIBUTE requires name, code, type")
	}
	code, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid attribute code %q: %w", fields[2], err)
	}
	typ, ok := typeNames[fields[3]]
	if !ok {
		return fmt.Errorf("unknown attribute type %q", fields[3])
	}

	var vendorID uint32
	if vendorScope != "" {
		vendorID = d.vendors[vendorScope]
	}

	if _, exists := d.byName[fields[1]]; exists {
		return fmt.Errorf("duplicate attribute name %q", fields[1])
	}
	key := vendorKey{vendorID: vendorID, code: uint8(code)}
	if _, exists := d.byCode[key]; exists {
		return fmt.Errorf("duplicate attribute code %d for vendor %d", code, vendorID)
	}

	def := &AttributeDef{Name: fields[1], Code: uint8(code), Type: typ, VendorID: vendorID}
	d.byName[fields[1]] = def
	d.byCode[key] = def
	return nil
}

func (d *Dictionary) parseValue(fields []string) error {
	if len(fields) != 4 {
		return fmt.Errorf("VALUE requires attribute, alias, integer")
	}
	attr, ok := d.byName[fields[1]]
	if !ok {
		return fmt.Errorf("VALUE references unknown attribute %q", fields[1])
	}
	if attr.Type != TypeInteger && attr.Type != TypeInteger64 {
		return fmt.Errorf("VALUE on non-integer attribute %q", fields[1])
	}
	n, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", fields[3], err)
	}
	if d.values[fields[1]] == nil {
		d.values[fields[1]] = make(map[string]uint32)
	}
	d.values[fields[1]][fields[2]] = uint32(n)
	return nil
}

// AttributeByName looks up an attribute definition by its dictionary name.
func (d *Dictionary) AttributeByName(name string) (*AttributeDef, error) {
	def, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrMissingAttribute)
	}
	return def, nil
}

// AttributeByCode looks up an attribute definition by its numeric code,
// optionally scoped to a vendor id (0 for standard attributes).
func (d *Dictionary) AttributeByCode(code uint8, vendorID uint32) (*AttributeDef, error) {
	def, ok := d.byCode[vendorKey{vendorID: vendorID, code: code}]
	if !ok {
		return nil, fmt.Errorf("code %d vendor %d: %w", code, vendorID, ErrMissingAttribute)
	}
	return def, nil
}

// ValueByName resolves a VALUE alias (e.g. Service-Type's "Framed-User")
// to its integer value.
func (d *Dictionary) ValueByName(attr, alias string) (uint32, error) {
	aliases, ok := d.values[attr]
	if !ok {
		return 0, fmt.Errorf("%q has no value aliases: %w", attr, ErrMissingAttribute)
	}
	v, ok := aliases[alias]
	if !ok {
		return 0, fmt.Errorf("%q has no alias %q: %w", attr, alias, ErrMissingAttribute)
	}
	return v, nil
}

// VendorID resolves a vendor name to its numeric id.
func (d *Dictionary) VendorID(name string) (uint32, error) {
	id, ok := d.vendors[name]
	if !ok {
		return 0, fmt.Errorf("unknown vendor %q: %w", name, ErrMissingAttribute)
	}
	return id, nil
}

// Attributes returns every loaded attribute definition, in no particular
// order. Intended for tooling that dumps a dictionary's contents.
func (d *Dictionary) Attributes() []*AttributeDef {
	defs := make([]*AttributeDef, 0, len(d.byName))
	for _, def := range d.byName {
		defs = append(defs, def)
	}
	return defs
}

// Values returns the VALUE aliases declared for attr, or nil if it has
// none.
func (d *Dictionary) Values(attr string) map[string]uint32 {
	return d.values[attr]
}

// Vendors returns the vendor name-to-id table.
func (d *Dictionary) Vendors() map[string]uint32 {
	return d.vendors
}

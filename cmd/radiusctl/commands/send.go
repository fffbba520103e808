package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiusgo/radiusd/internal/client"
	"github.com/radiusgo/radiusd/internal/radius"
)

// Sentinel errors for CLI validation.
var (
	errDictionaryRequired = errors.New("--dictionary flag is required")
	errSecretRequired     = errors.New("--secret flag is required")
	errMalformedAttrFlag  = errors.New("--attr must be name=value")
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a RADIUS request and print the verified reply",
	}

	cmd.AddCommand(sendAuthCmd())
	cmd.AddCommand(sendAcctCmd())
	cmd.AddCommand(sendCoACmd())

	return cmd
}

func sendAuthCmd() *cobra.Command {
	var (
		attrFlags []string
		identity  uint8
		retries   int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Send an Access-Request",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSend(radius.MsgAuth, radius.CodeAccessRequest, identity, attrFlags, retries, timeout)
		},
	}
	addSendFlags(cmd, &attrFlags, &identity, &retries, &timeout)
	return cmd
}

func sendAcctCmd() *cobra.Command {
	var (
		attrFlags []string
		identity  uint8
		retries   int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "acct",
		Short: "Send an Accounting-Request",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSend(radius.MsgAcct, radius.CodeAccountingRequest, identity, attrFlags, retries, timeout)
		},
	}
	addSendFlags(cmd, &attrFlags, &identity, &retries, &timeout)
	return cmd
}

func sendCoACmd() *cobra.Command {
	var (
		attrFlags []string
		identity  uint8
		retries   int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "coa",
		Short: "Send a CoA-Request",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSend(radius.MsgCoA, radius.CodeCoARequest, identity, attrFlags, retries, timeout)
		},
	}
	addSendFlags(cmd, &attrFlags, &identity, &retries, &timeout)
	return cmd
}

func addSendFlags(cmd *cobra.Command, attrFlags *[]string, identity *uint8, retries *int, timeout *time.Duration) {
	flags := cmd.Flags()
	flags.StringArrayVar(attrFlags, "attr", nil, "attribute as name=value, repeatable")
	flags.Uint8Var(identity, "identifier", 1, "packet identifier")
	flags.IntVar(retries, "retries", 3, "retry count")
	flags.DurationVar(timeout, "timeout", 2*time.Second, "per-attempt timeout")
}

func runSend(svc radius.MsgType, code radius.Code, identifier uint8, attrFlags []string, retries int, timeout time.Duration) error {
	if dict == nil {
		return errDictionaryRequired
	}
	if secret == "" {
		return errSecretRequired
	}

	attrs, err := parseAttrFlags(dict, attrFlags)
	if err != nil {
		return err
	}

	pkt, err := radius.NewRequestPacket(code, identifier, attrs)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	c := client.New(dict, serverAddr, []byte(secret), nil,
		client.WithRetries(retries),
		client.WithTimeout(timeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(retries+1))
	defer cancel()

	reply, err := c.Send(ctx, svc, pkt)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	out, err := formatPacket(reply, dict, outputFormat)
	if err != nil {
		return fmt.Errorf("format reply: %w", err)
	}
	fmt.Print(out)
	return nil
}

// parseAttrFlags converts repeated --attr name=value flags into Attributes,
// encoding each value's string form according to the attribute's dictionary
// type.
func parseAttrFlags(dict *radius.Dictionary, flags []string) ([]*radius.Attribute, error) {
	attrs := make([]*radius.Attribute, 0, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("%q: %w", f, errMalformedAttrFlag)
		}
		def, err := dict.AttributeByName(name)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		value, err := encodeTypedValue(def.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q value %q: %w", name, raw, err)
		}
		attr, err := radius.CreateAttributeByID(dict, def.Code, def.VendorID, value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// encodeTypedValue turns a CLI string into wire bytes according to the
// attribute's declared dictionary type. It mirrors attributeValueString
// except for octets, which are taken as the string's raw bytes while
// attributeValueString prints them as hex.
func encodeTypedValue(t radius.AttrType, raw string) ([]byte, error) {
	switch t {
	case radius.TypeString, radius.TypeOctets:
		return []byte(raw), nil
	case radius.TypeIPAddr:
		return radius.IPv4StringToBytes(raw)
	case radius.TypeIPv6Addr, radius.TypeIPv6Prefix:
		return radius.IPv6StringToBytes(raw)
	case radius.TypeInteger:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse integer: %w", err)
		}
		return radius.IntegerToBytes(uint32(n)), nil
	case radius.TypeInteger64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse integer64: %w", err)
		}
		return radius.Integer64ToBytes(n), nil
	case radius.TypeDate:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		return radius.IntegerToBytes(uint32(n)), nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %v", t)
	}
}

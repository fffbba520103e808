package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/radiusgo/radiusd/internal/radius"
)

func dictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dict",
		Short: "Dump the loaded dictionary's attributes, vendors, and value aliases",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if dict == nil {
				return errDictionaryRequired
			}
			out, err := formatDictionary(dict, outputFormat)
			if err != nil {
				return fmt.Errorf("format dictionary: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func formatDictionary(dict *radius.Dictionary, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatDictionaryJSON(dict)
	case formatTable:
		return formatDictionaryTable(dict), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatDictionaryTable(dict *radius.Dictionary) string {
	defs := dict.Attributes()
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].VendorID != defs[j].VendorID {
			return defs[i].VendorID < defs[j].VendorID
		}
		return defs[i].Code < defs[j].Code
	})

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCODE\tVENDOR\tTYPE\tVALUES")
	for _, def := range defs {
		var aliases []string
		for alias := range dict.Values(def.Name) {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", def.Name, def.Code, vendorLabel(def.VendorID), def.Type, strings.Join(aliases, ","))
	}
	_ = w.Flush()
	return buf.String()
}

type dictAttributeView struct {
	Name     string   `json:"name"`
	Code     uint8    `json:"code"`
	VendorID uint32   `json:"vendor_id,omitempty"`
	Type     string   `json:"type"`
	Values   []string `json:"values,omitempty"`
}

func formatDictionaryJSON(dict *radius.Dictionary) (string, error) {
	defs := dict.Attributes()
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].VendorID != defs[j].VendorID {
			return defs[i].VendorID < defs[j].VendorID
		}
		return defs[i].Code < defs[j].Code
	})

	views := make([]dictAttributeView, 0, len(defs))
	for _, def := range defs {
		var aliases []string
		for alias := range dict.Values(def.Name) {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		views = append(views, dictAttributeView{
			Name:     def.Name,
			Code:     def.Code,
			VendorID: def.VendorID,
			Type:     def.Type.String(),
			Values:   aliases,
		})
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dictionary to JSON: %w", err)
	}
	return string(data), nil
}

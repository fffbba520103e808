package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radiusgo/radiusd/internal/radius"
)

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <capture-file>",
		Short: "Decode a raw RADIUS packet captured to a file and print its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read capture %s: %w", args[0], err)
			}

			pkt, err := radius.ParsePacket(raw)
			if err != nil {
				return fmt.Errorf("parse packet: %w", err)
			}

			out, err := formatPacket(pkt, dict, outputFormat)
			if err != nil {
				return fmt.Errorf("format packet: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

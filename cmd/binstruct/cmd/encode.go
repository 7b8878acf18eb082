/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/binstruct/pkg/binstruct"
	"github.com/ssargent/binstruct/pkg/interchange"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <struct>",
	Short: "Encode records of a struct to binary",
	Long: `Encode a JSON object, or an array of objects, into consecutive binary
records. Output is written as hex unless --out names a file for the raw bytes.

Examples:
	  echo '{"magic":"GIF","version":"89a","width":16,"height":32,"bg_color_index":0,"pixel_aspect_ratio":0}' | binstruct encode gif_header
	  binstruct encode packet --input packets.cbor --format cbor --out packets.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		s, err := e.lookup(args[0])
		if err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		data, err := readInput(cmd, input)
		if err != nil {
			return err
		}
		recs, err := parseRecords(s, data, format)
		if err != nil {
			return err
		}
		encoded, err := s.EncodeAll(recs)
		if err != nil {
			return err
		}

		if out != "" {
			if err := os.WriteFile(out, encoded, 0640); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			cmd.Printf("Wrote %d records (%d bytes) to %s\n", len(recs), len(encoded), out)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
		return nil
	},
}

// parseRecords reads records for s in the given interchange format
func parseRecords(s *binstruct.Struct, data []byte, format string) ([]binstruct.Record, error) {
	switch format {
	case outputJSON, "":
		return interchange.UnmarshalJSON(s, data)
	case outputCBOR:
		return interchange.UnmarshalCBOR(s, data)
	}
	return nil, fmt.Errorf("unknown input format %q (want json or cbor)", format)
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringP("input", "i", "-", "Input file of records (default: stdin)")
	encodeCmd.Flags().StringP("format", "f", outputJSON, "Input format: json or cbor")
	encodeCmd.Flags().String("out", "", "Write raw bytes to this file instead of printing hex")
}

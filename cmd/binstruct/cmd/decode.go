/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/binstruct/pkg/binstruct"
	"github.com/ssargent/binstruct/pkg/interchange"
)

const (
	outputJSON = "json"
	outputCBOR = "cbor"
	outputText = "text"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <struct> [file]",
	Short: "Decode binary records of a struct",
	Long: `Decode one or more consecutive records of a struct from a binary file,
or from standard input when the file is omitted or "-".

Examples:
	  binstruct decode gif_header image.gif
	  binstruct decode packet capture.bin --offset 24 --count 0 --output cbor > packets.cbor`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		s, err := e.lookup(args[0])
		if err != nil {
			return err
		}

		path := "-"
		if len(args) == 2 {
			path = args[1]
		}
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}

		if isHex, _ := cmd.Flags().GetBool("hex"); isHex {
			if data, err = decodeHex(string(data)); err != nil {
				return err
			}
		}

		offset, _ := cmd.Flags().GetInt("offset")
		count, _ := cmd.Flags().GetInt("count")
		output, _ := cmd.Flags().GetString("output")

		recs, err := decodeRecords(s, data, offset, count)
		if err != nil {
			return err
		}
		return writeRecords(cmd.OutOrStdout(), s, recs, output)
	},
}

// decodeRecords decodes count records starting at offset. A count of zero
// or less decodes as many whole records as the data holds.
func decodeRecords(s *binstruct.Struct, data []byte, offset, count int) ([]binstruct.Record, error) {
	if offset < 0 || offset > len(data) {
		return nil, fmt.Errorf("offset %d out of range for %d bytes", offset, len(data))
	}
	data = data[offset:]

	if count <= 0 {
		size := s.Size()
		if size <= 0 {
			return nil, fmt.Errorf("cannot infer a record count for variable size struct %s", s.Format())
		}
		count = len(data) / size
		if count == 0 {
			return nil, fmt.Errorf("%d bytes is shorter than one %d byte record", len(data), size)
		}
	}
	if limit := s.MaxRecords(len(data)); count > limit {
		return nil, fmt.Errorf("count %d exceeds the %d records %d bytes can hold", count, limit, len(data))
	}
	return s.DecodeN(data, count)
}

func writeRecords(w io.Writer, s *binstruct.Struct, recs []binstruct.Record, output string) error {
	switch output {
	case outputJSON, "":
		out, err := interchange.MarshalJSON(recs)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err
	case outputCBOR:
		out, err := interchange.MarshalCBOR(recs)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case outputText:
		for i, rec := range recs {
			if len(recs) > 1 {
				fmt.Fprintf(w, "# record %d\n", i)
			}
			for _, name := range s.Names() {
				fmt.Fprintf(w, "%s = %v\n", name, rec[name])
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q (want json, cbor or text)", output)
}

// readInput reads a whole file, or standard input for "" and "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeHex accepts hex with optional whitespace between bytes
func decodeHex(s string) ([]byte, error) {
	clean := bytes.Join(bytes.Fields([]byte(s)), nil)
	out := make([]byte, hex.DecodedLen(len(clean)))
	n, err := hex.Decode(out, clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return out[:n], nil
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Int("offset", 0, "Byte offset of the first record")
	decodeCmd.Flags().IntP("count", "n", 1, "Number of records to decode (0 decodes every whole record)")
	decodeCmd.Flags().StringP("output", "o", outputJSON, "Output format: json, cbor or text")
	decodeCmd.Flags().Bool("hex", false, "Treat the input as hex text")
}

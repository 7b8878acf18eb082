/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/binstruct"
	"github.com/ssargent/binstruct/pkg/storage"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <struct> [json]",
	Short: "Encode a record and store it",
	Long: `Encode one record of a struct and store its bytes in the data directory.
The record is read from the argument, or from --input.

Example:
  binstruct put point '{"x": 3, "y": -4}'`,
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

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		} else {
			input, _ := cmd.Flags().GetString("input")
			if data, err = readInput(cmd, input); err != nil {
				return err
			}
		}

		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := putRecords(store, args[0], s, data)
		if err != nil {
			return err
		}
		for _, id := range ids {
			e.logger.Debug("stored record", zap.String("struct", args[0]), zap.String("id", id.String()))
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
		}
		return nil
	},
}

// putRecords encodes and stores every record in the JSON input
func putRecords(store *storage.RecordStore, name string, s *binstruct.Struct, input []byte) ([]ksuid.KSUID, error) {
	recs, err := parseRecords(s, input, outputJSON)
	if err != nil {
		return nil, err
	}
	ids := make([]ksuid.KSUID, 0, len(recs))
	for _, rec := range recs {
		data, err := s.Encode(rec)
		if err != nil {
			return ids, err
		}
		id, err := store.Create(name, data)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <struct> <id>",
	Short: "Decode a stored record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		s, err := e.lookup(args[0])
		if err != nil {
			return err
		}
		id, err := ksuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		data, err := store.Read(args[0], id)
		if err != nil {
			return err
		}
		if asHex, _ := cmd.Flags().GetBool("hex"); asHex {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		}

		rec, err := s.Decode(data)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return writeRecords(cmd.OutOrStdout(), s, []binstruct.Record{rec}, output)
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <struct> <id>",
	Short: "Delete a stored record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		id, err := ksuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(args[0], id); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", id)
		return nil
	},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <struct>",
	Short: "List stored record ids of a struct",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.List(args[0])
		if err != nil {
			return err
		}
		for _, id := range ids {
			cmd.Printf("%s\t%s\n", id, id.Time().UTC().Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)

	putCmd.Flags().StringP("input", "i", "-", "Input file of JSON records (default: stdin)")
	getCmd.Flags().Bool("hex", false, "Print the stored bytes as hex")
	getCmd.Flags().StringP("output", "o", outputJSON, "Output format: json, cbor or text")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

// structsCmd lists the catalog
var structsCmd = &cobra.Command{
	Use:   "structs",
	Short: "List struct definitions in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		cat, err := e.loadCatalog()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tFORMAT")
		for _, name := range cat.Names() {
			s, err := cat.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", name, s.Size(), s.Format())
		}
		return tw.Flush()
	},
}

// sizeCmd prints the byte size of one struct
var sizeCmd = &cobra.Command{
	Use:   "size <struct>",
	Short: "Print the byte size of a struct",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		s, err := e.lookup(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Size())
		return nil
	},
}

// fieldsCmd prints the fields of one struct
var fieldsCmd = &cobra.Command{
	Use:   "fields <struct>",
	Short: "Print the fields of a struct",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		s, err := e.lookup(args[0])
		if err != nil {
			return err
		}
		return writeFields(cmd.OutOrStdout(), s)
	},
}

// writeFields renders a struct as an aligned table with running offsets.
// Offsets after a star-count field are relative to its start.
func writeFields(w io.Writer, s *binstruct.Struct) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tFORMAT\tSIZE\tNAME")
	offset := 0
	for tok, name := range s.All() {
		size := tok.Size()
		sz := fmt.Sprint(size)
		if tok.Count().Star {
			sz = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", offset, tok, sz, name)
		offset += size
	}
	fmt.Fprintf(tw, "\t\t%d\t(total)\n", s.Size())
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(structsCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(fieldsCmd)
}

package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/profile"
	"github.com/bankfeed-dev/bankfeed/internal/tabular"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Detect the layout of a statement file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, path string) error {
	r, err := tabular.Open(path, 0)
	if err != nil {
		return err
	}
	defer r.Close()

	var head [][]string
	for len(head) < profile.HeaderInspectRows {
		row, err := r.Next(cmd.Context())
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading file head: %w", err)
		}
		head = append(head, row)
	}
	if len(head) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	headerRow := profile.DetectHeaderRow(head)
	header := head[headerRow]
	prof := profile.Detect(header)
	mapping := profile.ProposeMapping(prof, header)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", path)
	fmt.Fprintf(out, "Delimiter:  %s\n", delimiterName(r.Delimiter()))
	fmt.Fprintf(out, "Header row: %d\n", headerRow+1)
	fmt.Fprintf(out, "Profile:    %s\n", prof)
	fmt.Fprintln(out, "Columns:")
	for i, cell := range header {
		tag := "(skipped)"
		if t, ok := mapping[i]; ok && t != model.FieldSkip {
			tag = string(t)
		}
		fmt.Fprintf(out, "  %2d  %-30s %s\n", i+1, cell, tag)
	}
	return nil
}

func delimiterName(d rune) string {
	switch d {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	}
	return strconv.QuoteRune(d)
}

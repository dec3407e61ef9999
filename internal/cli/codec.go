package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rtcdate/internal/bcd"
)

// Conversion is one date and its packed form.
type Conversion struct {
	Date   string `json:"date"`
	Packed string `json:"packed"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <YYYY-MM-DD>...",
		Short: "Print the packed BCD word for each date",
		Example: `  rtcdate encode 2000-02-29
  rtcdate encode 1970-01-01 3999-12-31 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			convs := make([]Conversion, 0, len(args))
			for _, arg := range args {
				d, err := bcd.Parse(arg)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid date", err)
				}
				w, err := bcd.Pack(d)
				if err != nil {
					return WrapExitError(ExitCommandError, "cannot pack date", err)
				}
				convs = append(convs, Conversion{Date: d.String(), Packed: fmt.Sprintf("%08x", w)})
			}
			return outputConversions(rootOpts, cmd, convs, func(c Conversion) string { return c.Packed })
		},
	}
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <packed>...",
		Short: "Print the calendar date of each packed BCD word",
		Example: `  rtcdate decode 20000229
  rtcdate decode 0x40000101 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			convs := make([]Conversion, 0, len(args))
			for _, arg := range args {
				w, err := bcd.ParseHex(arg)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid packed date", err)
				}
				d, _ := bcd.Unpack(w)
				if err := bcd.Validate(d); err != nil {
					return WrapExitError(ExitCommandError, "invalid packed date", err)
				}
				convs = append(convs, Conversion{Date: d.String(), Packed: fmt.Sprintf("%08x", w)})
			}
			return outputConversions(rootOpts, cmd, convs, func(c Conversion) string { return c.Date })
		},
	}
}

// outputConversions prints one field per line in text mode, or every
// conversion in JSON mode.
func outputConversions(opts *RootOptions, cmd *cobra.Command, convs []Conversion, field func(Conversion) string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(convs)
	}
	for _, c := range convs {
		if err := formatter.Success(field(c)); err != nil {
			return err
		}
	}
	return nil
}

// Command rtcdate drives a real-time date core over a Wishbone bus and
// checks it against the calendar.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rtcdate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

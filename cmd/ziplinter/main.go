// Command ziplinter inspects and extracts ZIP archives, emitting a
// byte-accurate forensic inventory of every recognized region.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/trifectatechfoundation/ziplinter/internal/cmd/extract"
	"github.com/trifectatechfoundation/ziplinter/internal/cmd/inspect"
)

var opts struct {
	Inspect inspect.Command `command:"inspect" description:"parse archives and print their forensic inventory as JSON"`
	Extract extract.Command `command:"extract" description:"decompress every entry of one or more archives to disk"`
}

func main() {
	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		return command.Execute(args)
	}

	_, err := p.Parse()

	waitForKeypressOnWindows()

	if err != nil && !flags.WroteHelp(err) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

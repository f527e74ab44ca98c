package mission

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"mediakiller/internal/util"
)

// WriteScript emits a POSIX shell script that creates every target folder
// once and then runs each mission's command line in order.
func WriteScript(w io.Writer, missions []Mission) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#!/bin/sh")
	fmt.Fprintf(bw, "# %d mission(s)\n", len(missions))

	seen := make(map[string]bool)
	for _, m := range missions {
		for _, t := range m.Targets() {
			dir := filepath.Dir(t)
			if dir == "." || seen[dir] {
				continue
			}
			seen[dir] = true
			fmt.Fprintf(bw, "mkdir -p %s\n", util.Quote(dir))
		}
	}
	if len(seen) > 0 {
		fmt.Fprintln(bw)
	}
	for _, m := range missions {
		fmt.Fprintln(bw, m.CommandLine())
	}
	return bw.Flush()
}

package theme

import (
	"fmt"
	"io"
)

// Banner returns the CLI banner shown above help output.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  ✦✵✷   " + magenta + "REPOMATCH" + reset + "   ✷✵✦\n" +
		cyan + "   ┌─┐  ┌─┐     ┌─┐  ┌─┐\n" + reset +
		cyan + "   │◆├──┤◇│ ≈≈≈ │◇├──┤◆│\n" + reset +
		cyan + "   └─┘  └─┘     └─┘  └─┘\n" + reset +
		yellow + "     ────────────────────────\n" + reset +
		"   repositories like the ones you build ✦\n"
	return art
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}

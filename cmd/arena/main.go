// Command arena runs matches between UCI chess engines and manages the
// profiles describing them.
package main

import (
	"os"

	"arena/cmd/arena/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command captionctl administers caption contest data directly on disk and
// drives load runs against a running captionboard.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

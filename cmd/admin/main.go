// Command admin manages administrator accounts and seed content in a
// database-backed store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openStore).Execute(); err != nil {
		os.Exit(1)
	}
}

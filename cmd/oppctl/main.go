// Command oppctl inspects and cleans up bank side resources: the ASPSP directory,
// consents, payment initiations and signing baskets.
package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	if err := newRootCmd(connectBank).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

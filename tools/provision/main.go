// Command provision creates the tables, buckets, queues and file share the
// back-office service expects, and can seed the first admin user.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command remotelog-sink receives remotelog batches and writes them to a local zap logger.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

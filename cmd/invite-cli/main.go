package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openStorage).Execute(); err != nil {
		os.Exit(1)
	}
}

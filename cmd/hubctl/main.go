// Command hubctl is a terminal front end for the projecthub API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, StyleRed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

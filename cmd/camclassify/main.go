// Package main is the camclassify command itself.
package main

import (
	"log"
	"os"

	"github.com/camclassify/camclassify/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

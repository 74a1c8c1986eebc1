package main

import (
	"os"

	"github.com/dgallion1/archindex/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

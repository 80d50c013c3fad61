package main

import (
	"os"

	"github.com/dmitrijs2005/wipecert/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

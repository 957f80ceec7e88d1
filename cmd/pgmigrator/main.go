package main

import (
	"os"

	"github.com/bcomnes/pgmigrator/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"gcsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

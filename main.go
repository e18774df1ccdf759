package main

import (
	"os"

	_ "fcc-bootstrap/cmd"
	"fcc-bootstrap/cmd/root"
)

func main() {
	os.Exit(root.Execute())
}

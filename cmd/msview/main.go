package main

import "github.com/dspacex/msview/cmd"

func main() {
	cmd.Execute()
}

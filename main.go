package main

import "github.com/tristendillon/nixbundle/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/tanq16/filedown/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/rpupo63/inkwell/cmd/blogctl/commands"

func main() {
	commands.Execute()
}

package main

import "github.com/pointer-app/pointer/cmd/pointer/commands"

func main() {
	commands.Execute()
}

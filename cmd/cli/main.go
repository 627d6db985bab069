package main

import "librahub/cmd/cli/command"

func main() {
	command.Execute()
}

package main

import "melodex/cmd"

func main() {
	cmd.Execute()
}

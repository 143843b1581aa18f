package main

import "romforge/cmd"

func main() {
	cmd.Execute()
}

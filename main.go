package main

import "u2b/cmd"

func main() {
	cmd.Execute()
}

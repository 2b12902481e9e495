package main

import "chaosq/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/jmehdipour/eventlog/cmd"

func main() {
	cmd.Execute()
}

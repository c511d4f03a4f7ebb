package main

import "github.com/RyanBlaney/sonido-follow/cmd"

func main() {
	cmd.Execute()
}

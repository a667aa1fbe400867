package main

import "github.com/emberkv/ember/cmd"

func main() {
	cmd.Execute()
}

package main

import "go-battle/cmd"

func main() {
	cmd.Execute()
}

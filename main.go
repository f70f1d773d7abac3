package main

import "bitwise74/trackbook/cmd"

func main() {
	cmd.Execute()
}

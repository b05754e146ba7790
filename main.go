package main

import "pixelplay/cmd"

func main() {
	cmd.Execute()
}

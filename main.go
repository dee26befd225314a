package main

import "github.com/cweiture/blink-lapse/cmd"

func main() {
	cmd.Execute()
}

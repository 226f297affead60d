package main

import "github.com/Go-routine-4595/iba-monitor/cmd"

func main() {
	cmd.Execute()
}

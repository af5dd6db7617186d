package main

import "github.com/worklane/portal-realtime/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/netops-tools/welcome-wizard/cmd"

func main() {
	cmd.Execute()
}

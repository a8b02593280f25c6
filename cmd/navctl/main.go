package main

import "navmenus/cmd/navctl/cmd"

func main() {
	cmd.Execute()
}

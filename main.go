package main

import "github.com/LIKO-12/Discord/cmd"

func main() {
	cmd.Execute()
}

package main

import "collection-engine/cmd"

func main() {
	cmd.Execute()
}

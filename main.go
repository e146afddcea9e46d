package main

import "mspro-labs/eco-buddy/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/cosmoslab/twopt/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/site360/site360-go/cmd"

func main() {
	cmd.Execute()
}

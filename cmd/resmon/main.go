package main

import "github.com/Dicklesworthstone/resmon/cmd/resmon/cmd"

func main() {
	cmd.Execute()
}

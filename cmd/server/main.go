package main

import "github.com/guideops/chat-core/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/theirongolddev/ynabd/cmd"

func main() {
	cmd.Execute()
}

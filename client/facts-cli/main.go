package main

import "TodayInHistory/client/facts-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "ev-subsidy-scraper/commands"

func main() {
	commands.Execute()
}

package main

import "mipsdisasm/cmd/mipsdis"

func main() {
	mipsdis.Execute()
}

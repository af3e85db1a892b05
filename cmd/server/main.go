package main

import (
	"log"

	"github.com/Daniel-Penner/CampusLink-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

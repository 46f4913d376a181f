package core

import (
	"log"
	"os"
)

// Getwd returns the working directory the process was started in.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/cmd"
)

// init configures the initial logging level before flags are parsed.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

func main() {
	cmd.Execute()
}

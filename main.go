package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"matchserver/config"
)

func main() {
	log.SetFlags(0)
	if err := godotenv.Load(); err != nil {
		log.Print("no .env file found; using environment variables")
	}

	cfg := config.Load()
	cobra.CheckErr(newCmd(cfg).Execute())
}

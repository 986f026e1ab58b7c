package main

import (
	"log"

	"github.com/avelune/xmrbridge/app"
	corecmd "github.com/avelune/xmrbridge/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("bridgebot: %v", err)
	}
}

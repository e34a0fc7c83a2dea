package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/unimail/unimail/pkgs/config"
)

func handleInit() error {
	root := config.ExampleRootConfig()

	configPath := strings.TrimSpace(os.Getenv(config.EnvConfigJSONPath))
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := config.SaveConfig(configPath, root); err != nil {
		return err
	}
	fmt.Printf("Created config file at: %s\n", configPath)
	if os.Getenv(config.EnvConfigJSONPath) == "" {
		fmt.Printf("Tip: set %s=%s to use a different location.\n", config.EnvConfigJSONPath, configPath)
	}
	fmt.Println("Please edit the file to add your email account credentials.")
	return nil
}

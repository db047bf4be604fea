package config_test

import (
	"fmt"

	"github.com/actionsum/appwatch/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Mode:", cfg.Tracker.Mode)
	fmt.Println("Poll Interval:", cfg.Tracker.PollInterval)
	// Output:
	// Mode: events
	// Poll Interval: 5s
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
